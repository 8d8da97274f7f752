package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"hotel-booking/logger"
	"hotel-booking/models"
)

const confirmationSystemPrompt = "You write one short, warm paragraph for a hotel booking confirmation email. " +
	"Plain text only. No greeting line, no signature, no prices."

// EmailDeliverer renders a task from current database state and hands it to the mailer.
type EmailDeliverer struct {
	db       *gorm.DB
	mailer   Mailer
	text     TextGenerator
	loginURL string
	log      logger.Logger
}

func NewEmailDeliverer(db *gorm.DB, mailer Mailer, text TextGenerator, frontendURL string, log logger.Logger) *EmailDeliverer {
	return &EmailDeliverer{
		db:       db,
		mailer:   mailer,
		text:     text,
		loginURL: strings.TrimRight(frontendURL, "/") + "/login",
		log:      log,
	}
}

func (d *EmailDeliverer) Deliver(ctx context.Context, task models.EmailTask) error {
	var hotel models.Hotel
	if err := d.db.WithContext(ctx).Where("id = ?", task.HotelID).First(&hotel).Error; err != nil {
		return fmt.Errorf("load hotel: %w", err)
	}

	var msg Message
	switch task.Kind {
	case models.EmailKindBookingConfirmation:
		if task.BookingID == nil {
			return errors.New("confirmation task without booking")
		}
		var booking models.Booking
		if err := d.db.WithContext(ctx).Where("id = ? AND hotel_id = ?", *task.BookingID, task.HotelID).First(&booking).Error; err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		msg = BookingConfirmation(hotel, booking, d.confirmationIntro(ctx, hotel, booking))

	case models.EmailKindHotelWelcome:
		msg = HotelWelcome(hotel, d.loginURL)

	default:
		return fmt.Errorf("unknown email kind %q", task.Kind)
	}

	msg.To = task.Recipient
	return d.mailer.Send(ctx, hotel, msg)
}

// confirmationIntro asks the text generator for a personal paragraph; any failure falls back to the stock text.
func (d *EmailDeliverer) confirmationIntro(ctx context.Context, hotel models.Hotel, b models.Booking) string {
	if d.text == nil {
		return ""
	}
	prompt := fmt.Sprintf(
		"Hotel: %s\nGuest: %s\nStay: %s to %s\nBoard: %s\nStatus: %s\nGuest notes: %s",
		hotel.Name, b.GuestDisplayName(),
		b.CheckIn.Format("2006-01-02"), b.CheckOut.Format("2006-01-02"),
		b.BoardType, b.Status, b.GuestNotes,
	)
	intro, err := d.text.Generate(ctx, confirmationSystemPrompt, prompt)
	if err != nil {
		if !errors.Is(err, ErrGenAIDisabled) {
			d.log.Warn("confirmation intro generation failed", map[string]interface{}{"booking_id": b.ID, "error": err.Error()})
		}
		return ""
	}
	return intro
}
