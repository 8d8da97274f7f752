package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BookingStatusOpen           = "Open"
	BookingStatusSent           = "Sent"
	BookingStatusSubmitted      = "Submitted"
	BookingStatusConfirmed      = "Confirmed"
	BookingStatusCancelled      = "Cancelled"
	BookingStatusCheckedIn      = "Checked-in"
	BookingStatusCheckedOut     = "Checked-out"
	BookingStatusPartialPayment = "Partial Payment"
)

// BookingStatuses lists every valid status in display order.
var BookingStatuses = []string{
	BookingStatusOpen,
	BookingStatusSent,
	BookingStatusSubmitted,
	BookingStatusConfirmed,
	BookingStatusCancelled,
	BookingStatusCheckedIn,
	BookingStatusCheckedOut,
	BookingStatusPartialPayment,
}

func IsBookingStatus(s string) bool {
	for _, v := range BookingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

const (
	DocumentOptionUpload = "upload"
	DocumentOptionOnSite = "on_site"

	PaymentOptionFull    = "full"
	PaymentOptionDeposit = "deposit"
)

// RoomLine is one room of a booking; stored inside the booking row as JSON.
type RoomLine struct {
	Category string `json:"category"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

// Companion is a co-traveller entered by the guest. The whole list is replaced on each submission.
type Companion struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
}

type Booking struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	HotelID string `gorm:"index;size:36;not null" json:"hotelId"`
	Status  string `gorm:"size:32;not null" json:"status"`

	GuestName     string                        `gorm:"size:255" json:"guestName"`
	CheckIn       time.Time                     `gorm:"type:date" json:"checkIn"`
	CheckOut      time.Time                     `gorm:"type:date" json:"checkOut"`
	BoardType     string                        `gorm:"size:100" json:"boardType"`
	Rooms         datatypes.JSONSlice[RoomLine] `gorm:"column:rooms" json:"rooms"`
	PriceTotal    float64                       `gorm:"type:decimal(12,2)" json:"priceTotal"`
	HotelierNotes string                        `gorm:"type:text" json:"hotelierNotes"`

	GuestFirstName  string                         `gorm:"size:255" json:"guestFirstName"`
	GuestLastName   string                         `gorm:"size:255" json:"guestLastName"`
	GuestEmail      string                         `gorm:"size:255" json:"guestEmail"`
	GuestPhone      string                         `gorm:"size:64" json:"guestPhone"`
	GuestNotes      string                         `gorm:"type:text" json:"guestNotes"`
	Companions      datatypes.JSONSlice[Companion] `gorm:"column:companions" json:"companions"`
	DocumentOption  string                         `gorm:"size:16" json:"documentOption"`
	IDFrontURL      string                         `gorm:"column:id_front_url;size:512" json:"idFrontUrl"`
	IDBackURL       string                         `gorm:"column:id_back_url;size:512" json:"idBackUrl"`
	PaymentOption   string                         `gorm:"size:16" json:"paymentOption"`
	PaymentProofURL string                         `gorm:"size:512" json:"paymentProofUrl"`
	AmountDue       float64                        `gorm:"type:decimal(12,2)" json:"amountDue"`
	AmountRemaining float64                        `gorm:"type:decimal(12,2)" json:"amountRemaining"`
	SubmittedAt     *time.Time                     `json:"submittedAt,omitempty"`

	BookingLinkID string `gorm:"index;size:64" json:"bookingLinkId"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GuestDisplayName prefers what the guest typed over what the hotelier entered.
func (b Booking) GuestDisplayName() string {
	if b.GuestFirstName != "" || b.GuestLastName != "" {
		if b.GuestLastName == "" {
			return b.GuestFirstName
		}
		if b.GuestFirstName == "" {
			return b.GuestLastName
		}
		return b.GuestFirstName + " " + b.GuestLastName
	}
	return b.GuestName
}

// CompanionCapacity is the number of companions the guest must name: every adult and child
// across all rooms, minus the main guest.
func CompanionCapacity(rooms []RoomLine) int {
	total := 0
	for _, r := range rooms {
		total += r.Adults + r.Children
	}
	if total <= 1 {
		return 0
	}
	return total - 1
}
