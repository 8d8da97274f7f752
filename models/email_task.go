package models

import "time"

const (
	EmailKindBookingConfirmation = "booking_confirmation"
	EmailKindHotelWelcome        = "hotel_welcome"

	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// EmailTask is an outbox row. The Redis queue only carries ids; this row is the durable failure log.
type EmailTask struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	HotelID   string    `gorm:"index;size:36" json:"hotelId"`
	BookingID *string   `gorm:"index;size:36" json:"bookingId,omitempty"`
	Kind      string    `gorm:"size:32;not null" json:"kind"`
	Recipient string    `gorm:"size:255;not null" json:"recipient"`
	Status    string    `gorm:"size:16;not null;index" json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `gorm:"type:text" json:"lastError"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
