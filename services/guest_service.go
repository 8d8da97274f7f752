package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hotel-booking/logger"
	"hotel-booking/metrics"
	"hotel-booking/models"
	"hotel-booking/notify"
	"hotel-booking/storage"
)

// TaskQueue is the email outbox as seen by services: rows are saved inside the caller's
// transaction and pushed to workers after commit.
type TaskQueue interface {
	Save(tx *gorm.DB, task *models.EmailTask) error
	Push(ctx context.Context, taskID string) error
}

type BankDetails struct {
	AccountHolder string `json:"accountHolder"`
	BankName      string `json:"bankName"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
}

// WizardView is everything the guest page needs to render the current step.
type WizardView struct {
	LinkID            string                  `json:"linkId"`
	HotelName         string                  `json:"hotelName"`
	Step              WizardStep              `json:"step"`
	Steps             []WizardStep            `json:"steps"`
	Prefill           models.Prefill          `json:"prefill"`
	GuestInfo         GuestInfo               `json:"guestInfo"`
	Companions        []models.Companion      `json:"companions"`
	CompanionCapacity int                     `json:"companionCapacity"`
	PaymentOption     string                  `json:"paymentOption"`
	Amounts           Amounts                 `json:"amounts"`
	Bank              BankDetails             `json:"bank"`
	Files             map[FileSlot]*FileState `json:"files"`
	ExpiresAt         time.Time               `json:"expiresAt"`
}

type SubmitResult struct {
	BookingID string  `json:"bookingId"`
	Status    string  `json:"status"`
	Amounts   Amounts `json:"amounts"`
}

// GuestService drives the guest wizard for one link at a time.
type GuestService struct {
	DB       *gorm.DB
	Resolver *LinkResolver
	Drafts   *DraftStore
	Store    storage.BlobStore
	Queue    TaskQueue
	Log      logger.Logger

	now     func() time.Time
	pending sync.WaitGroup
}

func NewGuestService(db *gorm.DB, resolver *LinkResolver, drafts *DraftStore, store storage.BlobStore, queue TaskQueue, log logger.Logger) *GuestService {
	return &GuestService{
		DB:       db,
		Resolver: resolver,
		Drafts:   drafts,
		Store:    store,
		Queue:    queue,
		Log:      log,
		now:      time.Now,
	}
}

type wizardSession struct {
	link  models.BookingLink
	hotel models.Hotel
	draft *WizardDraft
}

func (ws wizardSession) capacity() int {
	return models.CompanionCapacity(ws.link.Prefill.Data().Rooms)
}

func (s *GuestService) open(ctx context.Context, linkID string) (wizardSession, error) {
	link, hotel, err := s.Resolver.loadActive(ctx, linkID)
	if err != nil {
		return wizardSession{}, err
	}
	draft, err := s.Drafts.Get(ctx, linkID)
	if err != nil {
		return wizardSession{}, err
	}
	if draft == nil {
		draft = NewWizardDraft(linkID)
	}
	return wizardSession{link: link, hotel: hotel, draft: draft}, nil
}

func (s *GuestService) view(ws wizardSession) *WizardView {
	prefill := ws.link.Prefill.Data()
	return &WizardView{
		LinkID:            ws.link.ID,
		HotelName:         ws.hotel.Name,
		Step:              ws.draft.Step,
		Steps:             WizardSteps,
		Prefill:           prefill,
		GuestInfo:         ws.draft.GuestInfo,
		Companions:        ws.draft.Companions,
		CompanionCapacity: ws.capacity(),
		PaymentOption:     ws.draft.PaymentOption,
		Amounts:           ComputeAmounts(prefill.PriceTotal, ws.draft.PaymentOption),
		Bank: BankDetails{
			AccountHolder: ws.hotel.BankAccountHolder,
			BankName:      ws.hotel.BankName,
			IBAN:          ws.hotel.IBAN,
			BIC:           ws.hotel.BIC,
		},
		Files:     ws.draft.Files,
		ExpiresAt: ws.link.ExpiresAt,
	}
}

// update applies fn to the stored draft and keeps the result on ws.
func (s *GuestService) update(ctx context.Context, ws *wizardSession, fn func(d *WizardDraft) error) error {
	d, err := s.Drafts.Update(ctx, ws.link.ID, ws.link.ExpiresAt, fn)
	if err != nil {
		return err
	}
	ws.draft = d
	return nil
}

// Draft returns the current wizard state, starting at GuestInfo for a fresh link.
func (s *GuestService) Draft(ctx context.Context, linkID string) (*WizardView, error) {
	ws, err := s.open(ctx, linkID)
	if err != nil {
		return nil, err
	}
	return s.view(ws), nil
}

// Next saves what the guest typed even when the step fails validation; the step only advances on
// success. The view is returned in both cases.
func (s *GuestService) Next(ctx context.Context, linkID string, in StepInput) (*WizardView, error) {
	ws, err := s.open(ctx, linkID)
	if err != nil {
		return nil, err
	}

	capacity := ws.capacity()
	var stepErr error
	err = s.update(ctx, &ws, func(d *WizardDraft) error {
		stepErr = d.Next(in, capacity)
		if errors.Is(stepErr, ErrWizardStep) {
			return stepErr
		}
		return nil
	})
	if errors.Is(err, ErrWizardStep) {
		return s.view(ws), err
	}
	if err != nil {
		return nil, err
	}
	return s.view(ws), stepErr
}

func (s *GuestService) Back(ctx context.Context, linkID string) (*WizardView, error) {
	ws, err := s.open(ctx, linkID)
	if err != nil {
		return nil, err
	}
	err = s.update(ctx, &ws, func(d *WizardDraft) error {
		return d.Back()
	})
	if errors.Is(err, ErrWizardStep) {
		return s.view(ws), err
	}
	if err != nil {
		return nil, err
	}
	return s.view(ws), nil
}

// AttachFile stores a document for slot right away. A file that is too large or of the wrong type
// is not an error: it is recorded on the slot and blocks the step until replaced or removed.
// Uploads for different slots of the same link may run concurrently.
func (s *GuestService) AttachFile(ctx context.Context, linkID, slotName, filename string, body io.Reader) (*WizardView, error) {
	slot, err := ParseFileSlot(slotName)
	if err != nil {
		return nil, err
	}
	ws, err := s.open(ctx, linkID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(filename)
	var state *FileState

	file, err := storage.Sniff(body)
	switch {
	case errors.Is(err, storage.ErrFileTooLarge), errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrFileEmpty):
		state = &FileState{Name: name, Error: err.Error()}

	case err != nil:
		return nil, err

	default:
		key := storage.DocumentKey(ws.link.HotelID, ws.link.BookingID, string(slot), file.Extension)
		url, err := s.Store.Put(ctx, key, file.ContentType, file.Reader(), file.Size())
		if err != nil {
			s.Log.Error("guest document upload failed", map[string]interface{}{"link_id": linkID, "slot": slot, "error": err.Error()})
			return nil, fmt.Errorf("store document: %w", err)
		}
		state = &FileState{
			Name:        name,
			ContentType: file.ContentType,
			Size:        file.Size(),
			URL:         url,
			Uploaded:    true,
		}
	}

	return s.putSlot(ctx, ws, slot, state)
}

// RejectFile records reason on slot for an upload that never reached the service, such as a
// request body cut off at the size limit.
func (s *GuestService) RejectFile(ctx context.Context, linkID, slotName, filename string, reason error) (*WizardView, error) {
	slot, err := ParseFileSlot(slotName)
	if err != nil {
		return nil, err
	}
	ws, err := s.open(ctx, linkID)
	if err != nil {
		return nil, err
	}
	return s.putSlot(ctx, ws, slot, &FileState{Name: strings.TrimSpace(filename), Error: reason.Error()})
}

// putSlot writes state into slot, touching no other slot, and discards the object it replaced.
func (s *GuestService) putSlot(ctx context.Context, ws wizardSession, slot FileSlot, state *FileState) (*WizardView, error) {
	var previous *FileState
	err := s.update(ctx, &ws, func(d *WizardDraft) error {
		previous = d.Files[slot]
		d.Files[slot] = state
		return nil
	})
	if err != nil {
		s.discardAsync(state.URL)
		return nil, err
	}
	if previous != nil && previous.URL != state.URL {
		s.discardAsync(previous.URL)
	}
	return s.view(ws), nil
}

// RemoveFile clears a slot. The stored object is deleted in the background; failures are only logged.
func (s *GuestService) RemoveFile(ctx context.Context, linkID, slotName string) (*WizardView, error) {
	slot, err := ParseFileSlot(slotName)
	if err != nil {
		return nil, err
	}
	ws, err := s.open(ctx, linkID)
	if err != nil {
		return nil, err
	}

	var previous *FileState
	err = s.update(ctx, &ws, func(d *WizardDraft) error {
		previous = d.Files[slot]
		delete(d.Files, slot)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous != nil {
		s.discardAsync(previous.URL)
	}
	return s.view(ws), nil
}

func (s *GuestService) discardAsync(url string) {
	if url == "" || s.Store == nil {
		return
	}
	key, err := s.Store.KeyFromURL(url)
	if err != nil {
		s.Log.Warn("discarded guest document has a foreign url", map[string]interface{}{"url": url})
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Store.Delete(ctx, key); err != nil {
			s.Log.Warn("discarded guest document not deleted", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}()
}

// Wait blocks until background deletions finished.
func (s *GuestService) Wait() {
	s.pending.Wait()
}

// Submit commits the wizard: the link flips active→used only if it is still active and unexpired,
// and the booking update plus the confirmation email task share that transaction.
func (s *GuestService) Submit(ctx context.Context, linkID string) (*SubmitResult, error) {
	ws, err := s.open(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if ws.draft.Step != StepReview {
		return nil, ErrWizardStep
	}
	if err := ws.draft.ValidateAll(ws.capacity()); err != nil {
		metrics.BookingSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	d := ws.draft
	prefill := ws.link.Prefill.Data()
	amounts := ComputeAmounts(prefill.PriceTotal, d.PaymentOption)
	status := StatusAfterSubmit(d.PaymentOption)
	now := s.now().UTC()

	var idFront, idBack string
	if d.GuestInfo.DocumentOption == models.DocumentOptionUpload {
		idFront = d.Files[SlotIDFront].URL
		idBack = d.Files[SlotIDBack].URL
	}

	bookingID := ws.link.BookingID
	task := notify.NewTask(models.EmailKindBookingConfirmation, ws.link.HotelID, &bookingID, d.GuestInfo.Email)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BookingLink{}).
			Where("id = ? AND status = ? AND expires_at > ?", linkID, models.LinkStatusActive, now).
			Update("status", models.LinkStatusUsed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return classifyLinkFailure(tx, linkID, now)
		}

		res = tx.Model(&models.Booking{}).
			Where("id = ? AND hotel_id = ?", bookingID, ws.link.HotelID).
			Updates(map[string]interface{}{
				"status":            status,
				"guest_first_name":  d.GuestInfo.FirstName,
				"guest_last_name":   d.GuestInfo.LastName,
				"guest_email":       d.GuestInfo.Email,
				"guest_phone":       d.GuestInfo.Phone,
				"guest_notes":       d.GuestInfo.Notes,
				"companions":        datatypes.JSONSlice[models.Companion](d.Companions),
				"document_option":   d.GuestInfo.DocumentOption,
				"id_front_url":      idFront,
				"id_back_url":       idBack,
				"payment_option":    d.PaymentOption,
				"payment_proof_url": d.Files[SlotPaymentProof].URL,
				"amount_due":        amounts.Due,
				"amount_remaining":  amounts.Remaining,
				"submitted_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookingNotFound
		}

		return s.Queue.Save(tx, task)
	})
	if err != nil {
		if errors.Is(err, ErrLinkUsed) || errors.Is(err, ErrLinkExpired) || errors.Is(err, ErrLinkNotFound) || errors.Is(err, ErrBookingNotFound) {
			metrics.BookingSubmissions.WithLabelValues("rejected").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("commit submission: %w", err)
	}

	if err := s.Queue.Push(ctx, task.ID); err != nil {
		s.Log.Warn("confirmation email not queued; recovery will pick it up", map[string]interface{}{"task_id": task.ID, "error": err.Error()})
	}

	if err := s.Drafts.Delete(ctx, linkID); err != nil {
		s.Log.Warn("submitted draft not removed", map[string]interface{}{"link_id": linkID, "error": err.Error()})
	}

	result := "confirmed"
	if status == models.BookingStatusPartialPayment {
		result = "partial_payment"
	}
	metrics.BookingSubmissions.WithLabelValues(result).Inc()
	s.Log.Info("guest submission committed", map[string]interface{}{
		"hotel_id":   ws.link.HotelID,
		"booking_id": bookingID,
		"status":     status,
	})

	return &SubmitResult{BookingID: bookingID, Status: status, Amounts: amounts}, nil
}

// classifyLinkFailure explains why the conditional update matched no row.
func classifyLinkFailure(tx *gorm.DB, linkID string, now time.Time) error {
	var link models.BookingLink
	if err := tx.Where("id = ?", linkID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLinkNotFound
		}
		return err
	}
	if err := checkLinkUsable(link, now); err != nil {
		return err
	}
	return ErrLinkUsed
}
