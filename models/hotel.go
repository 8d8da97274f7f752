package models

import (
	"time"

	"gorm.io/datatypes"
)

// Hotel is a tenant. Deleting it cascades to its users, bookings, links, email tasks and stored files.
type Hotel struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	OwnerEmail string `gorm:"size:255;not null" json:"ownerEmail"`
	Domain     string `gorm:"size:255" json:"domain"`
	Phone      string `gorm:"size:50" json:"phone"`
	Address    string `gorm:"type:text" json:"address"`

	BankAccountHolder string `gorm:"size:255" json:"bankAccountHolder"`
	BankName          string `gorm:"size:255" json:"bankName"`
	IBAN              string `gorm:"column:iban;size:64" json:"iban"`
	BIC               string `gorm:"column:bic;size:32" json:"bic"`

	SMTPHost     string `gorm:"column:smtp_host;size:255" json:"smtpHost"`
	SMTPPort     int    `gorm:"column:smtp_port" json:"smtpPort"`
	SMTPUsername string `gorm:"column:smtp_username;size:255" json:"smtpUsername"`
	SMTPPassword string `gorm:"column:smtp_password;size:255" json:"-"`
	SMTPFromName string `gorm:"column:smtp_from_name;size:255" json:"smtpFromName"`

	AllowedBoardTypes     datatypes.JSONSlice[string] `gorm:"column:allowed_board_types" json:"allowedBoardTypes"`
	AllowedRoomCategories datatypes.JSONSlice[string] `gorm:"column:allowed_room_categories" json:"allowedRoomCategories"`

	Policies string `gorm:"type:text" json:"policies"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasSMTP reports whether the hotel carries enough credentials to send mail itself.
func (h Hotel) HasSMTP() bool {
	return h.SMTPHost != "" && h.SMTPPort != 0 && h.SMTPUsername != "" && h.SMTPPassword != ""
}
