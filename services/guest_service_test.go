package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-booking/logger"
	"hotel-booking/models"
)

const (
	testLinkID    = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	testHotelID   = "h1"
	testBookingID = "b1"
)

type guestFixture struct {
	svc   *GuestService
	mock  sqlmock.Sqlmock
	store *memStore
	queue *fakeQueue
}

func newGuestFixture(t *testing.T) *guestFixture {
	db, mock := newMockDB(t)
	_, rdb := newRedis(t)
	store := newMemStore()
	queue := &fakeQueue{}
	svc := NewGuestService(db, NewLinkResolver(db), NewDraftStore(rdb), store, queue, logger.NewTestLogger(t))
	return &guestFixture{svc: svc, mock: mock, store: store, queue: queue}
}

func prefillJSON(t *testing.T, rooms []models.RoomLine, price float64) []byte {
	t.Helper()
	raw, err := json.Marshal(models.Prefill{
		GuestName:  "Anna Berg",
		CheckIn:    "2026-07-01",
		CheckOut:   "2026-07-04",
		BoardType:  "Half board",
		Rooms:      rooms,
		PriceTotal: price,
	})
	require.NoError(t, err)
	return raw
}

func linkRows(t *testing.T, status string, expiresAt time.Time, rooms []models.RoomLine) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "booking_id", "hotel_id", "status", "prefill", "created_at", "expires_at"}).
		AddRow(testLinkID, testBookingID, testHotelID, status, prefillJSON(t, rooms, 210), time.Now().Add(-time.Hour), expiresAt)
}

func hotelRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "owner_email", "iban"}).
		AddRow(testHotelID, "Alpenhof", "owner@alpenhof.test", "AT611904300234573201")
}

func (f *guestFixture) expectOpen(t *testing.T, rooms []models.RoomLine) {
	f.mock.ExpectQuery("SELECT \\* FROM `booking_links`").
		WillReturnRows(linkRows(t, models.LinkStatusActive, time.Now().Add(24*time.Hour), rooms))
	f.mock.ExpectQuery("SELECT \\* FROM `hotels`").WillReturnRows(hotelRows())
}

var singleRoom = []models.RoomLine{{Category: "Double", Adults: 1}}

func TestLinkResolver_Resolve(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewLinkResolver(db)

	mock.ExpectQuery("SELECT \\* FROM `booking_links`").
		WillReturnRows(linkRows(t, models.LinkStatusActive, time.Now().Add(time.Hour), singleRoom))
	mock.ExpectQuery("SELECT \\* FROM `hotels`").WillReturnRows(hotelRows())

	got, err := r.Resolve(context.Background(), testLinkID)
	require.NoError(t, err)
	assert.Equal(t, "Alpenhof", got.HotelName)
	assert.Equal(t, testBookingID, got.BookingID)
	assert.Equal(t, 210.0, got.Prefill.PriceTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkResolver_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		expiresIn time.Duration
		want      error
	}{
		{"used", models.LinkStatusUsed, time.Hour, ErrLinkUsed},
		{"used and expired reports used", models.LinkStatusUsed, -time.Hour, ErrLinkUsed},
		{"expired by time", models.LinkStatusActive, -time.Minute, ErrLinkExpired},
		{"expired by sweep", models.LinkStatusExpired, time.Hour, ErrLinkExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery("SELECT \\* FROM `booking_links`").
				WillReturnRows(linkRows(t, tt.status, time.Now().Add(tt.expiresIn), singleRoom))

			_, err := NewLinkResolver(db).Resolve(context.Background(), testLinkID)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLinkResolver_UnknownToken(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `booking_links`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewLinkResolver(db).Resolve(context.Background(), strings.Repeat("0", 64))
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkResolver_MalformedTokenSkipsDatabase(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewLinkResolver(db)

	for _, token := range []string{"", "nope", "../../etc/passwd", strings.Repeat("z", 64)} {
		_, err := r.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrLinkNotFound, token)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestService_DraftStartsAtGuestInfo(t *testing.T) {
	f := newGuestFixture(t)
	rooms := []models.RoomLine{{Category: "Double", Adults: 2, Children: 1}}
	f.expectOpen(t, rooms)

	view, err := f.svc.Draft(context.Background(), testLinkID)
	require.NoError(t, err)
	assert.Equal(t, StepGuestInfo, view.Step)
	assert.Equal(t, 2, view.CompanionCapacity)
	assert.Equal(t, "Alpenhof", view.HotelName)
	assert.Equal(t, "AT611904300234573201", view.Bank.IBAN)
	assert.Equal(t, Amounts{Total: 210, Due: 210}, view.Amounts)
}

func TestGuestService_NextKeepsInputOnValidationError(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	f.expectOpen(t, singleRoom)
	in := StepInput{GuestInfo: &GuestInfo{FirstName: "Anna", DocumentOption: models.DocumentOptionOnSite}}
	view, err := f.svc.Next(ctx, testLinkID, in)
	_, isValidation := AsValidation(err)
	require.True(t, isValidation)
	assert.Equal(t, StepGuestInfo, view.Step)

	f.expectOpen(t, singleRoom)
	view, err = f.svc.Draft(ctx, testLinkID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", view.GuestInfo.FirstName)
}

func TestGuestService_AttachFileRecordsRejection(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	f.expectOpen(t, singleRoom)
	view, err := f.svc.AttachFile(ctx, testLinkID, "id_front", "front.png", pngReader())
	require.NoError(t, err)
	front := view.Files[SlotIDFront]
	require.True(t, front.Usable())
	assert.Equal(t, "image/png", front.ContentType)
	firstKey, err := f.store.KeyFromURL(front.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(firstKey, "hotels/h1/bookings/b1/id_front-"))

	f.expectOpen(t, singleRoom)
	view, err = f.svc.AttachFile(ctx, testLinkID, "id_front", "notes.txt", strings.NewReader("just some text"))
	require.NoError(t, err)
	assert.False(t, view.Files[SlotIDFront].Usable())
	assert.Equal(t, "only PNG, JPEG or PDF files are accepted", view.Files[SlotIDFront].Error)

	f.svc.Wait()
	assert.Equal(t, firstKey, <-f.store.deleted)
	assert.Equal(t, 0, f.store.count())
}

func TestGuestService_AttachFileUnknownSlot(t *testing.T) {
	f := newGuestFixture(t)
	_, err := f.svc.AttachFile(context.Background(), testLinkID, "selfie", "x.png", pngReader())
	assert.ErrorIs(t, err, ErrUnknownFileSlot)
}

func TestGuestService_RemoveFile(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()

	f.expectOpen(t, singleRoom)
	view, err := f.svc.AttachFile(ctx, testLinkID, "payment_proof", "proof.png", pngReader())
	require.NoError(t, err)
	key, _ := f.store.KeyFromURL(view.Files[SlotPaymentProof].URL)

	f.expectOpen(t, singleRoom)
	view, err = f.svc.RemoveFile(ctx, testLinkID, "payment_proof")
	require.NoError(t, err)
	assert.NotContains(t, view.Files, SlotPaymentProof)

	f.svc.Wait()
	assert.False(t, f.store.has(key))
}

// blockingStore holds every Put until n of them are in flight.
type blockingStore struct {
	*memStore
	arrived sync.WaitGroup
}

func newBlockingStore(n int) *blockingStore {
	b := &blockingStore{memStore: newMemStore()}
	b.arrived.Add(n)
	return b
}

func (b *blockingStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.memStore.Put(ctx, key, contentType, body, size)
}

func TestGuestService_ConcurrentUploadsKeepEverySlot(t *testing.T) {
	f := newGuestFixture(t)
	store := newBlockingStore(2)
	f.svc.Store = store
	f.mock.MatchExpectationsInOrder(false)
	f.expectOpen(t, singleRoom)
	f.expectOpen(t, singleRoom)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, slot := range []string{"id_front", "id_back"} {
		wg.Add(1)
		go func(slot string) {
			defer wg.Done()
			_, err := f.svc.AttachFile(ctx, testLinkID, slot, slot+".png", pngReader())
			errs <- err
		}(slot)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	draft, err := f.svc.Drafts.Get(ctx, testLinkID)
	require.NoError(t, err)
	assert.True(t, draft.Files[SlotIDFront].Usable())
	assert.True(t, draft.Files[SlotIDBack].Usable())

	f.svc.Wait()
	assert.Equal(t, 2, store.count())
	assert.Empty(t, store.deleted)
}

// reviewDraft stores a draft that has passed every step.
func (f *guestFixture) reviewDraft(t *testing.T, option string) {
	_, err := f.svc.Drafts.Update(context.Background(), testLinkID, time.Now().Add(time.Hour), func(d *WizardDraft) error {
		d.Step = StepReview
		d.GuestInfo = *validGuestInfo(models.DocumentOptionOnSite)
		d.PaymentOption = option
		d.Files[SlotPaymentProof] = usableFile("proof.pdf")
		return nil
	})
	require.NoError(t, err)
}

func TestGuestService_SubmitDeposit(t *testing.T) {
	f := newGuestFixture(t)
	ctx := context.Background()
	f.reviewDraft(t, models.PaymentOptionDeposit)

	f.expectOpen(t, singleRoom)
	f.mock.ExpectBegin()
	f.mock.ExpectExec("UPDATE `booking_links` SET `status`=\\? WHERE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec("UPDATE `bookings` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	res, err := f.svc.Submit(ctx, testLinkID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPartialPayment, res.Status)
	assert.Equal(t, Amounts{Total: 210, Due: 63, Remaining: 147}, res.Amounts)

	require.Len(t, f.queue.saved, 1)
	task := f.queue.saved[0]
	assert.Equal(t, models.EmailKindBookingConfirmation, task.Kind)
	assert.Equal(t, "anna@example.com", task.Recipient)
	assert.Equal(t, []string{task.ID}, f.queue.pushed)

	draft, err := f.svc.Drafts.Get(ctx, testLinkID)
	require.NoError(t, err)
	assert.Nil(t, draft)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGuestService_SubmitLosesRace(t *testing.T) {
	f := newGuestFixture(t)
	f.reviewDraft(t, models.PaymentOptionFull)

	f.expectOpen(t, singleRoom)
	f.mock.ExpectBegin()
	f.mock.ExpectExec("UPDATE `booking_links` SET `status`=\\? WHERE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery("SELECT \\* FROM `booking_links`").
		WillReturnRows(linkRows(t, models.LinkStatusUsed, time.Now().Add(time.Hour), singleRoom))
	f.mock.ExpectRollback()

	_, err := f.svc.Submit(context.Background(), testLinkID)
	assert.ErrorIs(t, err, ErrLinkUsed)
	assert.Empty(t, f.queue.pushed)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGuestService_SubmitBeforeReview(t *testing.T) {
	f := newGuestFixture(t)
	f.expectOpen(t, singleRoom)

	_, err := f.svc.Submit(context.Background(), testLinkID)
	assert.ErrorIs(t, err, ErrWizardStep)
}

func TestGuestService_SubmitRevalidates(t *testing.T) {
	f := newGuestFixture(t)
	f.reviewDraft(t, models.PaymentOptionFull)

	// two adults means one companion is now required
	f.expectOpen(t, []models.RoomLine{{Category: "Double", Adults: 2}})

	_, err := f.svc.Submit(context.Background(), testLinkID)
	_, ok := AsValidation(err)
	assert.True(t, ok)
	assert.Empty(t, f.queue.saved)
}

func TestDraftStore_ExpiredLinkIsNotSaved(t *testing.T) {
	_, rdb := newRedis(t)
	store := NewDraftStore(rdb)
	_, err := store.Update(context.Background(), "L1", time.Now().Add(-time.Second), func(*WizardDraft) error { return nil })
	assert.ErrorIs(t, err, ErrLinkExpired)
}

func TestDraftStore_TTLFollowsLink(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewDraftStore(rdb)
	ctx := context.Background()

	_, err := store.Update(ctx, "L1", time.Now().Add(time.Hour), func(*WizardDraft) error { return nil })
	require.NoError(t, err)
	ttl := mr.TTL(draftKey("L1"))
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	mr.FastForward(2 * time.Hour)
	d, err := store.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDraftStore_UpdateAbortsOnError(t *testing.T) {
	_, rdb := newRedis(t)
	store := NewDraftStore(rdb)
	ctx := context.Background()

	_, err := store.Update(ctx, "L1", time.Now().Add(time.Hour), func(d *WizardDraft) error {
		d.GuestInfo.FirstName = "Anna"
		return ErrWizardStep
	})
	assert.ErrorIs(t, err, ErrWizardStep)

	d, err := store.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDraftStore_ConcurrentUpdatesAreReplayed(t *testing.T) {
	_, rdb := newRedis(t)
	store := NewDraftStore(rdb)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	// both writers read the empty draft before either writes
	var bothRead sync.WaitGroup
	bothRead.Add(2)

	var wg sync.WaitGroup
	var calls int32
	errs := make(chan error, 2)
	for _, slot := range []FileSlot{SlotIDFront, SlotIDBack} {
		wg.Add(1)
		go func(slot FileSlot) {
			defer wg.Done()
			first := true
			_, err := store.Update(ctx, "L1", expires, func(d *WizardDraft) error {
				atomic.AddInt32(&calls, 1)
				if first {
					first = false
					bothRead.Done()
					bothRead.Wait()
				}
				d.Files[slot] = usableFile(string(slot) + ".png")
				return nil
			})
			errs <- err
		}(slot)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	d, err := store.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Len(t, d.Files, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
