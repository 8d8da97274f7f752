package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	draftKeyPrefix = "wizard:"

	// draftUpdateAttempts bounds how often a write is replayed after a concurrent change.
	draftUpdateAttempts = 10
)

// ErrDraftConflict means the draft kept changing underneath an update.
var ErrDraftConflict = errors.New("wizard draft changed concurrently")

// DraftStore keeps wizard drafts in Redis, expiring together with their link.
type DraftStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDraftStore(rdb *redis.Client) *DraftStore {
	return &DraftStore{rdb: rdb, now: time.Now}
}

func draftKey(linkID string) string { return draftKeyPrefix + linkID }

func decodeDraft(raw []byte, err error) (*WizardDraft, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard draft: %w", err)
	}

	var d WizardDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode wizard draft: %w", err)
	}
	if d.Files == nil {
		d.Files = map[FileSlot]*FileState{}
	}
	return &d, nil
}

// Get returns nil without error when no draft exists.
func (s *DraftStore) Get(ctx context.Context, linkID string) (*WizardDraft, error) {
	return decodeDraft(s.rdb.Get(ctx, draftKey(linkID)).Bytes())
}

// Update loads the draft (a fresh one when missing), applies fn and writes the result with a TTL
// running to expiresAt. The write only lands if nobody changed the key since it was read; otherwise
// fn runs again on the newer draft. An error from fn aborts without writing.
func (s *DraftStore) Update(ctx context.Context, linkID string, expiresAt time.Time, fn func(d *WizardDraft) error) (*WizardDraft, error) {
	key := draftKey(linkID)
	var saved *WizardDraft

	txf := func(tx *redis.Tx) error {
		d, err := decodeDraft(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		if d == nil {
			d = NewWizardDraft(linkID)
		}
		if err := fn(d); err != nil {
			return err
		}

		ttl := expiresAt.Sub(s.now())
		if ttl <= 0 {
			return ErrLinkExpired
		}
		d.UpdatedAt = s.now().UTC()
		raw, err := json.Marshal(d)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		if err == nil {
			saved = d
		}
		return err
	}

	for attempt := 0; attempt < draftUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return saved, nil
	}
	return nil, ErrDraftConflict
}

func (s *DraftStore) Delete(ctx context.Context, linkID string) error {
	return s.rdb.Del(ctx, draftKey(linkID)).Err()
}
