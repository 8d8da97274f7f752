package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hotel-booking/config"
	"hotel-booking/logger"
	"hotel-booking/metrics"
	"hotel-booking/models"
)

const (
	readyQueueKey   = "outbox:email:ready"
	delayedQueueKey = "outbox:email:delayed"
)

// Deliverer performs the side effect behind one task.
type Deliverer interface {
	Deliver(ctx context.Context, task models.EmailTask) error
}

// Outbox persists email tasks in MySQL and schedules them through Redis.
// A task is pushed to the ready list once; failures move it to a sorted set keyed by retry time.
type Outbox struct {
	db          *gorm.DB
	rdb         *redis.Client
	deliverer   Deliverer
	log         logger.Logger
	maxAttempts int
	backoff     time.Duration
	poll        time.Duration
	now         func() time.Time
}

func NewOutbox(db *gorm.DB, rdb *redis.Client, deliverer Deliverer, cfg config.OutboxConfig, log logger.Logger) *Outbox {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Outbox{
		db:          db,
		rdb:         rdb,
		deliverer:   deliverer,
		log:         log,
		maxAttempts: maxAttempts,
		backoff:     cfg.Backoff,
		poll:        poll,
		now:         time.Now,
	}
}

// NewTask builds a pending task row without saving it.
func NewTask(kind, hotelID string, bookingID *string, recipient string) *models.EmailTask {
	return &models.EmailTask{
		ID:        uuid.NewString(),
		HotelID:   hotelID,
		BookingID: bookingID,
		Kind:      kind,
		Recipient: recipient,
		Status:    models.EmailStatusPending,
	}
}

// Save writes the task row using tx, which may be an open transaction.
func (o *Outbox) Save(tx *gorm.DB, task *models.EmailTask) error {
	return tx.Create(task).Error
}

// Push makes a saved task visible to workers. Call it after the surrounding transaction committed.
func (o *Outbox) Push(ctx context.Context, taskID string) error {
	return o.rdb.LPush(ctx, readyQueueKey, taskID).Err()
}

// Enqueue saves and pushes in one call, for callers outside a transaction.
func (o *Outbox) Enqueue(ctx context.Context, task *models.EmailTask) error {
	if err := o.Save(o.db.WithContext(ctx), task); err != nil {
		return fmt.Errorf("save email task: %w", err)
	}
	if err := o.Push(ctx, task.ID); err != nil {
		o.log.Warn("email task saved but not queued; recovery will pick it up", map[string]interface{}{
			"task_id": task.ID,
			"error":   err.Error(),
		})
	}
	return nil
}

// Recover re-queues pending rows that never reached Redis, for instance after a crash between commit and push.
func (o *Outbox) Recover(ctx context.Context) (int, error) {
	var ids []string
	if err := o.db.WithContext(ctx).Model(&models.EmailTask{}).
		Where("status = ?", models.EmailStatusPending).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	queued, err := o.rdb.LRange(ctx, readyQueueKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	delayed, err := o.rdb.ZRange(ctx, delayedQueueKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(queued)+len(delayed))
	for _, id := range append(queued, delayed...) {
		known[id] = struct{}{}
	}

	n := 0
	for _, id := range ids {
		if _, ok := known[id]; ok {
			continue
		}
		if err := o.Push(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// promoteDue moves tasks whose retry time has passed back to the ready list.
func (o *Outbox) promoteDue(ctx context.Context) error {
	upper := strconv.FormatInt(o.now().UnixMilli(), 10)
	due, err := o.rdb.ZRangeByScore(ctx, delayedQueueKey, &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
	if err != nil {
		return err
	}
	for _, id := range due {
		removed, err := o.rdb.ZRem(ctx, delayedQueueKey, id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue // another worker took it
		}
		if err := o.Push(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ProcessNext handles at most one task. It returns false when nothing was ready.
func (o *Outbox) ProcessNext(ctx context.Context) (bool, error) {
	if err := o.promoteDue(ctx); err != nil {
		return false, fmt.Errorf("promote delayed tasks: %w", err)
	}

	id, err := o.rdb.RPop(ctx, readyQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var task models.EmailTask
	if err := o.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			o.log.Warn("dropping queued email task without row", map[string]interface{}{"task_id": id})
			return true, nil
		}
		// Put it back so the row is retried once the database answers again.
		_ = o.rdb.ZAdd(ctx, delayedQueueKey, redis.Z{Score: float64(o.now().Add(o.poll).UnixMilli()), Member: id}).Err()
		return true, err
	}
	if task.Status != models.EmailStatusPending {
		return true, nil
	}

	deliverErr := o.deliverer.Deliver(ctx, task)
	task.Attempts++

	updates := map[string]interface{}{"attempts": task.Attempts}
	log := o.log.WithFields(map[string]interface{}{"task_id": task.ID, "kind": task.Kind, "attempt": task.Attempts})

	switch {
	case deliverErr == nil:
		updates["status"] = models.EmailStatusSent
		updates["last_error"] = ""
		metrics.OutboxTasks.WithLabelValues(task.Kind, "sent").Inc()
		log.Info("email task delivered", nil)

	case task.Attempts >= o.maxAttempts:
		updates["status"] = models.EmailStatusFailed
		updates["last_error"] = deliverErr.Error()
		metrics.OutboxTasks.WithLabelValues(task.Kind, "failed").Inc()
		log.Error("email task failed permanently", map[string]interface{}{"error": deliverErr.Error()})

	default:
		updates["last_error"] = deliverErr.Error()
		retryAt := o.now().Add(o.retryDelay(task.Attempts))
		if err := o.rdb.ZAdd(ctx, delayedQueueKey, redis.Z{Score: float64(retryAt.UnixMilli()), Member: task.ID}).Err(); err != nil {
			log.Error("could not schedule email retry", map[string]interface{}{"error": err.Error()})
		}
		metrics.OutboxTasks.WithLabelValues(task.Kind, "retry").Inc()
		log.Warn("email task failed, will retry", map[string]interface{}{"error": deliverErr.Error(), "retry_at": retryAt})
	}

	if err := o.db.WithContext(ctx).Model(&models.EmailTask{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		return true, fmt.Errorf("update email task: %w", err)
	}
	return true, nil
}

// retryDelay doubles the base backoff per attempt, capped at one hour.
func (o *Outbox) retryDelay(attempts int) time.Duration {
	d := o.backoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	return d
}

// Run drains the queue and then polls until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) error {
	if n, err := o.Recover(ctx); err != nil {
		o.log.Warn("outbox recovery failed", map[string]interface{}{"error": err.Error()})
	} else if n > 0 {
		o.log.Info("re-queued pending email tasks", map[string]interface{}{"count": n})
	}

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	for {
		for {
			processed, err := o.ProcessNext(ctx)
			if err != nil {
				o.log.Error("outbox processing error", map[string]interface{}{"error": err.Error()})
				break
			}
			if !processed {
				break
			}
		}

		if depth, err := o.rdb.LLen(ctx, readyQueueKey).Result(); err == nil {
			metrics.OutboxQueueDepth.Set(float64(depth))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
