package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hotel-booking/logger"
	"hotel-booking/metrics"
	"hotel-booking/models"
	"hotel-booking/storage"
	"hotel-booking/utils"
)

const dateLayout = "2006-01-02"

// BookingService owns the hotelier side: issuing links, listing, editing and deleting bookings.
type BookingService struct {
	DB          *gorm.DB
	Store       storage.BlobStore
	Log         logger.Logger
	LinkTTL     time.Duration
	FrontendURL string
	now         func() time.Time
}

func NewBookingService(db *gorm.DB, store storage.BlobStore, log logger.Logger, linkTTL time.Duration, frontendURL string) *BookingService {
	return &BookingService{
		DB:          db,
		Store:       store,
		Log:         log,
		LinkTTL:     linkTTL,
		FrontendURL: frontendURL,
		now:         time.Now,
	}
}

// BookingInput is the hotelier's booking form.
type BookingInput struct {
	GuestName  string            `json:"guestName"`
	CheckIn    string            `json:"checkIn"`
	CheckOut   string            `json:"checkOut"`
	BoardType  string            `json:"boardType"`
	Rooms      []models.RoomLine `json:"rooms"`
	PriceTotal float64           `json:"priceTotal"`
	Notes      string            `json:"notes"`
}

type validatedTerms struct {
	checkIn  time.Time
	checkOut time.Time
	rooms    []models.RoomLine
	price    float64
}

// validateTerms checks the form against the hotel's allow-lists. Empty allow-lists accept anything.
func validateTerms(in BookingInput, hotel models.Hotel) (validatedTerms, error) {
	v := newValidationError()
	var t validatedTerms

	if strings.TrimSpace(in.GuestName) == "" {
		v.add("guestName", "Guest name is required")
	}

	var inErr, outErr error
	t.checkIn, inErr = time.Parse(dateLayout, strings.TrimSpace(in.CheckIn))
	if inErr != nil {
		v.add("checkIn", "Check-in must be a date (YYYY-MM-DD)")
	}
	t.checkOut, outErr = time.Parse(dateLayout, strings.TrimSpace(in.CheckOut))
	if outErr != nil {
		v.add("checkOut", "Check-out must be a date (YYYY-MM-DD)")
	}
	if inErr == nil && outErr == nil && !t.checkOut.After(t.checkIn) {
		v.add("checkOut", "Check-out must be after check-in")
	}

	board := strings.TrimSpace(in.BoardType)
	if board == "" {
		v.add("boardType", "Board type is required")
	} else if len(hotel.AllowedBoardTypes) > 0 && !containsFold(hotel.AllowedBoardTypes, board) {
		v.add("boardType", "Board type is not offered by this hotel")
	}

	if len(in.Rooms) == 0 {
		v.add("rooms", "At least one room is required")
	}
	t.rooms = make([]models.RoomLine, 0, len(in.Rooms))
	for i, r := range in.Rooms {
		prefix := fmt.Sprintf("rooms.%d.", i)
		r.Category = strings.TrimSpace(r.Category)
		if r.Category == "" {
			v.add(prefix+"category", "Room category is required")
		} else if len(hotel.AllowedRoomCategories) > 0 && !containsFold(hotel.AllowedRoomCategories, r.Category) {
			v.add(prefix+"category", "Room category is not offered by this hotel")
		}
		if r.Adults < 1 {
			v.add(prefix+"adults", "At least one adult per room")
		}
		if r.Children < 0 {
			v.add(prefix+"children", "Children cannot be negative")
		}
		t.rooms = append(t.rooms, r)
	}

	if in.PriceTotal < 0 {
		v.add("priceTotal", "Price cannot be negative")
	}
	t.price = utils.Round2(in.PriceTotal)

	return t, v.orNil()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func (s *BookingService) loadHotel(ctx context.Context, hotelID string) (models.Hotel, error) {
	var hotel models.Hotel
	if err := s.DB.WithContext(ctx).Where("id = ?", hotelID).First(&hotel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return hotel, ErrHotelNotFound
		}
		return hotel, fmt.Errorf("load hotel: %w", err)
	}
	return hotel, nil
}

// IssueBooking creates a booking in status Sent together with its single-use link, in one transaction.
// The link carries a frozen copy of the terms.
func (s *BookingService) IssueBooking(ctx context.Context, hotelID string, in BookingInput) (*models.Booking, *models.BookingLink, error) {
	hotel, err := s.loadHotel(ctx, hotelID)
	if err != nil {
		return nil, nil, err
	}
	terms, err := validateTerms(in, hotel)
	if err != nil {
		return nil, nil, err
	}

	guestName := strings.TrimSpace(in.GuestName)
	board := strings.TrimSpace(in.BoardType)
	notes := strings.TrimSpace(in.Notes)

	for attempt := 0; attempt < 3; attempt++ {
		token, err := utils.GenerateSecureToken(utils.LinkTokenBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate token: %w", err)
		}
		now := s.now().UTC()

		booking := models.Booking{
			ID:            uuid.NewString(),
			HotelID:       hotelID,
			Status:        models.BookingStatusSent,
			GuestName:     guestName,
			CheckIn:       terms.checkIn,
			CheckOut:      terms.checkOut,
			BoardType:     board,
			Rooms:         datatypes.JSONSlice[models.RoomLine](terms.rooms),
			PriceTotal:    terms.price,
			HotelierNotes: notes,
			Companions:    datatypes.JSONSlice[models.Companion]{},
			BookingLinkID: token,
		}
		link := models.BookingLink{
			ID:        token,
			BookingID: booking.ID,
			HotelID:   hotelID,
			Status:    models.LinkStatusActive,
			Prefill: datatypes.NewJSONType(models.Prefill{
				GuestName:  guestName,
				CheckIn:    terms.checkIn.Format(dateLayout),
				CheckOut:   terms.checkOut.Format(dateLayout),
				BoardType:  board,
				Rooms:      terms.rooms,
				PriceTotal: terms.price,
				Notes:      notes,
			}),
			CreatedAt: now,
			ExpiresAt: now.Add(s.LinkTTL),
		}

		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&booking).Error; err != nil {
				return err
			}
			return tx.Create(&link).Error
		})
		if err == nil {
			metrics.BookingLinksIssued.Inc()
			s.Log.Info("booking link issued", map[string]interface{}{
				"hotel_id":   hotelID,
				"booking_id": booking.ID,
				"expires_at": link.ExpiresAt,
			})
			return &booking, &link, nil
		}
		if !isDuplicateKey(err) {
			return nil, nil, fmt.Errorf("create booking: %w", err)
		}
		s.Log.Warn("booking link token collision, retrying", map[string]interface{}{"attempt": attempt + 1})
	}
	return nil, nil, errors.New("could not allocate a unique booking link")
}

// BookingFilter narrows a listing. Both fields are optional.
type BookingFilter struct {
	Query  string
	Status string
}

// FilterBookings keeps bookings whose guest name contains Query (case-insensitive) and whose
// status equals Status. Order is preserved.
func FilterBookings(list []models.Booking, f BookingFilter) []models.Booking {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	status := strings.TrimSpace(f.Status)

	out := make([]models.Booking, 0, len(list))
	for _, b := range list {
		if status != "" && b.Status != status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(b.GuestDisplayName()), q) &&
			!strings.Contains(strings.ToLower(b.GuestName), q) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// ListBookings returns the hotel's bookings, newest first, filtered in memory.
func (s *BookingService) ListBookings(ctx context.Context, hotelID string, f BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := s.DB.WithContext(ctx).
		Where("hotel_id = ?", hotelID).
		Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return FilterBookings(bookings, f), nil
}

func (s *BookingService) GetBooking(ctx context.Context, hotelID, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND hotel_id = ?", bookingID, hotelID).
		First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return &booking, nil
}

// BookingUpdate is a partial edit from the dashboard. The link's prefill is left as issued.
type BookingUpdate struct {
	GuestName  *string            `json:"guestName"`
	CheckIn    *string            `json:"checkIn"`
	CheckOut   *string            `json:"checkOut"`
	BoardType  *string            `json:"boardType"`
	Rooms      *[]models.RoomLine `json:"rooms"`
	PriceTotal *float64           `json:"priceTotal"`
	Notes      *string            `json:"notes"`
	Status     *string            `json:"status"`
}

func (s *BookingService) UpdateBooking(ctx context.Context, hotelID, bookingID string, in BookingUpdate) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, hotelID, bookingID)
	if err != nil {
		return nil, err
	}
	hotel, err := s.loadHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}

	form := BookingInput{
		GuestName:  booking.GuestName,
		CheckIn:    booking.CheckIn.Format(dateLayout),
		CheckOut:   booking.CheckOut.Format(dateLayout),
		BoardType:  booking.BoardType,
		Rooms:      booking.Rooms,
		PriceTotal: booking.PriceTotal,
		Notes:      booking.HotelierNotes,
	}
	if in.GuestName != nil {
		form.GuestName = *in.GuestName
	}
	if in.CheckIn != nil {
		form.CheckIn = *in.CheckIn
	}
	if in.CheckOut != nil {
		form.CheckOut = *in.CheckOut
	}
	if in.BoardType != nil {
		form.BoardType = *in.BoardType
	}
	if in.Rooms != nil {
		form.Rooms = *in.Rooms
	}
	if in.PriceTotal != nil {
		form.PriceTotal = *in.PriceTotal
	}
	if in.Notes != nil {
		form.Notes = *in.Notes
	}

	terms, err := validateTerms(form, hotel)
	status := booking.Status
	if in.Status != nil {
		status = strings.TrimSpace(*in.Status)
	}
	if !models.IsBookingStatus(status) {
		v, ok := AsValidation(err)
		if !ok {
			v = newValidationError()
		}
		v.add("status", "Unknown booking status")
		err = v
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"guest_name":     strings.TrimSpace(form.GuestName),
		"check_in":       terms.checkIn,
		"check_out":      terms.checkOut,
		"board_type":     strings.TrimSpace(form.BoardType),
		"rooms":          datatypes.JSONSlice[models.RoomLine](terms.rooms),
		"price_total":    terms.price,
		"hotelier_notes": strings.TrimSpace(form.Notes),
		"status":         status,
	}
	res := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND hotel_id = ?", bookingID, hotelID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrBookingNotFound
	}
	return s.GetBooking(ctx, hotelID, bookingID)
}

// BulkDeleteResult reports per id; one failure does not stop the rest.
type BulkDeleteResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed"`
}

// DeleteBookings removes each booking and then its link as two separate statements.
// A failure between them leaves an orphaned link, which SweepOrphanLinks later removes.
func (s *BookingService) DeleteBookings(ctx context.Context, hotelID string, ids []string) BulkDeleteResult {
	result := BulkDeleteResult{Deleted: []string{}, Failed: map[string]string{}}
	seen := map[string]struct{}{}

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := s.deleteOne(ctx, hotelID, id); err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				result.Failed[id] = "not_found"
			} else {
				s.Log.Error("booking delete failed", map[string]interface{}{"hotel_id": hotelID, "booking_id": id, "error": err.Error()})
				result.Failed[id] = "delete_failed"
			}
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result
}

func (s *BookingService) deleteOne(ctx context.Context, hotelID, bookingID string) error {
	booking, err := s.GetBooking(ctx, hotelID, bookingID)
	if err != nil {
		return err
	}

	res := s.DB.WithContext(ctx).Where("id = ? AND hotel_id = ?", bookingID, hotelID).Delete(&models.Booking{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBookingNotFound
	}

	if booking.BookingLinkID != "" {
		if err := s.DB.WithContext(ctx).Where("id = ? AND hotel_id = ?", booking.BookingLinkID, hotelID).Delete(&models.BookingLink{}).Error; err != nil {
			s.Log.Warn("booking deleted but link left behind", map[string]interface{}{
				"booking_id": bookingID,
				"link_id":    booking.BookingLinkID,
				"error":      err.Error(),
			})
		}
	}

	if s.Store != nil {
		if err := s.Store.DeletePrefix(ctx, storage.BookingPrefix(hotelID, bookingID)); err != nil {
			s.Log.Warn("booking files not removed", map[string]interface{}{"booking_id": bookingID, "error": err.Error()})
		}
	}
	return nil
}

// GuestLink returns the shareable URL for a booking's link.
func (s *BookingService) GuestLink(ctx context.Context, hotelID, bookingID string) (string, string, error) {
	booking, err := s.GetBooking(ctx, hotelID, bookingID)
	if err != nil {
		return "", "", err
	}
	if booking.BookingLinkID == "" {
		return "", "", ErrLinkNotFound
	}
	return booking.BookingLinkID, utils.BuildGuestLink(s.FrontendURL, booking.BookingLinkID), nil
}

type SweepResult struct {
	OrphansDeleted int64 `json:"orphansDeleted"`
	Expired        int64 `json:"expired"`
}

// SweepOrphanLinks deletes links whose booking is gone and marks active links past expiry as expired.
func (s *BookingService) SweepOrphanLinks(ctx context.Context) (SweepResult, error) {
	var out SweepResult

	res := s.DB.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM bookings WHERE bookings.id = booking_links.booking_id)").
		Delete(&models.BookingLink{})
	if res.Error != nil {
		return out, fmt.Errorf("delete orphaned links: %w", res.Error)
	}
	out.OrphansDeleted = res.RowsAffected

	res = s.DB.WithContext(ctx).Model(&models.BookingLink{}).
		Where("status = ? AND expires_at <= ?", models.LinkStatusActive, s.now().UTC()).
		Update("status", models.LinkStatusExpired)
	if res.Error != nil {
		return out, fmt.Errorf("expire links: %w", res.Error)
	}
	out.Expired = res.RowsAffected

	s.Log.Info("booking links swept", map[string]interface{}{"orphans_deleted": out.OrphansDeleted, "expired": out.Expired})
	return out, nil
}
