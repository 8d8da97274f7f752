package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	LinkStatusActive  = "active"
	LinkStatusUsed    = "used"
	LinkStatusExpired = "expired"
)

// Prefill is the frozen copy of booking terms taken when the link is issued.
type Prefill struct {
	GuestName  string     `json:"guestName"`
	CheckIn    string     `json:"checkIn"`
	CheckOut   string     `json:"checkOut"`
	BoardType  string     `json:"boardType"`
	Rooms      []RoomLine `json:"rooms"`
	PriceTotal float64    `json:"priceTotal"`
	Notes      string     `json:"notes"`
}

// BookingLink is the single-use guest token. Its primary key is the token itself, which makes the
// table the flat token index: one read yields hotel and booking without scanning tenants.
// The row has no UpdatedAt; status is the only field that ever changes.
type BookingLink struct {
	ID        string                      `gorm:"primaryKey;size:64" json:"id"`
	BookingID string                      `gorm:"index;size:36;not null" json:"bookingId"`
	HotelID   string                      `gorm:"index;size:36;not null" json:"hotelId"`
	Status    string                      `gorm:"size:16;not null;index" json:"status"`
	Prefill   datatypes.JSONType[Prefill] `gorm:"column:prefill" json:"prefill"`
	CreatedAt time.Time                   `json:"createdAt"`
	ExpiresAt time.Time                   `gorm:"index" json:"expiresAt"`
}

func (l BookingLink) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
