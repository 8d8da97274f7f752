package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotel-booking/models"
	"hotel-booking/utils"
)

// ResolvedLink is the read-only view a guest sees before entering any data.
type ResolvedLink struct {
	LinkID    string         `json:"linkId"`
	HotelID   string         `json:"-"`
	HotelName string         `json:"hotelName"`
	BookingID string         `json:"bookingId"`
	Prefill   models.Prefill `json:"prefill"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// LinkResolver finds a link by token alone. booking_links is keyed by the token, so this is a
// primary-key read followed by the hotel read.
type LinkResolver struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewLinkResolver(db *gorm.DB) *LinkResolver {
	return &LinkResolver{DB: db, now: time.Now}
}

// Resolve never mutates anything.
func (r *LinkResolver) Resolve(ctx context.Context, linkID string) (*ResolvedLink, error) {
	link, hotel, err := r.loadActive(ctx, linkID)
	if err != nil {
		return nil, err
	}
	return &ResolvedLink{
		LinkID:    link.ID,
		HotelID:   hotel.ID,
		HotelName: hotel.Name,
		BookingID: link.BookingID,
		Prefill:   link.Prefill.Data(),
		ExpiresAt: link.ExpiresAt,
	}, nil
}

func (r *LinkResolver) loadActive(ctx context.Context, linkID string) (models.BookingLink, models.Hotel, error) {
	var link models.BookingLink
	if !utils.IsLinkToken(linkID) {
		return link, models.Hotel{}, ErrLinkNotFound
	}
	if err := r.DB.WithContext(ctx).Where("id = ?", linkID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return link, models.Hotel{}, ErrLinkNotFound
		}
		return link, models.Hotel{}, fmt.Errorf("load booking link: %w", err)
	}

	if err := checkLinkUsable(link, r.now()); err != nil {
		return link, models.Hotel{}, err
	}

	var hotel models.Hotel
	if err := r.DB.WithContext(ctx).Where("id = ?", link.HotelID).First(&hotel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return link, hotel, ErrLinkNotFound
		}
		return link, hotel, fmt.Errorf("load hotel: %w", err)
	}
	return link, hotel, nil
}

// checkLinkUsable applies the used-before-expired precedence.
func checkLinkUsable(link models.BookingLink, now time.Time) error {
	switch {
	case link.Status == models.LinkStatusUsed:
		return ErrLinkUsed
	case link.Status == models.LinkStatusExpired, link.Expired(now):
		return ErrLinkExpired
	case link.Status != models.LinkStatusActive:
		return ErrLinkNotFound
	}
	return nil
}
