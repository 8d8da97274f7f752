package notify

import (
	"fmt"
	"html"
	"strings"

	"hotel-booking/models"
	"hotel-booking/utils"
)

const emailStyle = `body { background:#f5f7fb; font-family:Arial, Helvetica, sans-serif; color:#222; }
.container { max-width:700px; margin:20px auto; }
.card { background:#fff; border:1px solid #e6eef6; padding:24px; border-radius:8px; }
.label { font-weight:700; width:180px; display:inline-block; vertical-align:top; }
.btn { display:inline-block; padding:12px 20px; background:#0b74ff; color:#fff; text-decoration:none; border-radius:6px; margin-top:18px; }
.room-list { margin:12px 0 18px 0; padding-left:18px; }`

func wrapHTML(title, inner string) string {
	return fmt.Sprintf(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
%s
</style>
</head>
<body>
<div class="container">
  <div class="card">
%s
  </div>
</div>
</body>
</html>`, html.EscapeString(title), emailStyle, inner)
}

// BookingConfirmation renders the guest confirmation. intro, when non-empty, replaces the stock greeting paragraph.
func BookingConfirmation(hotel models.Hotel, b models.Booking, intro string) Message {
	guest := b.GuestDisplayName()
	subject := fmt.Sprintf("Your booking at %s is %s", hotel.Name, strings.ToLower(b.Status))
	if intro == "" {
		intro = fmt.Sprintf("Thank you for completing your booking details with %s.", hotel.Name)
	}

	checkIn := b.CheckIn.Format("2006-01-02")
	checkOut := b.CheckOut.Format("2006-01-02")

	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\n%s\n\n", guest, intro)
	fmt.Fprintf(&text, "Check-In: %s\nCheck-Out: %s\nBoard: %s\nRooms:\n%s\n", checkIn, checkOut, b.BoardType, roomsListText(b.Rooms))
	fmt.Fprintf(&text, "Total: %s EUR\n", utils.FormatMoney(b.PriceTotal))
	if b.PaymentOption == models.PaymentOptionDeposit {
		fmt.Fprintf(&text, "Deposit transferred: %s EUR\nDue at arrival: %s EUR\n", utils.FormatMoney(b.AmountDue), utils.FormatMoney(b.AmountRemaining))
	}
	fmt.Fprintf(&text, "\nBest regards,\n%s", hotel.Name)

	var inner strings.Builder
	fmt.Fprintf(&inner, "    <h2>Booking %s</h2>\n", html.EscapeString(b.Status))
	fmt.Fprintf(&inner, "    <p>Dear %s,</p>\n    <p>%s</p>\n", html.EscapeString(guest), html.EscapeString(intro))
	fmt.Fprintf(&inner, "    <p><span class=\"label\">Check-In:</span> %s</p>\n", checkIn)
	fmt.Fprintf(&inner, "    <p><span class=\"label\">Check-Out:</span> %s</p>\n", checkOut)
	fmt.Fprintf(&inner, "    <p><span class=\"label\">Board:</span> %s</p>\n", html.EscapeString(b.BoardType))
	fmt.Fprintf(&inner, "    <p><span class=\"label\">Rooms:</span> %s</p>\n", roomsListHTML(b.Rooms))
	fmt.Fprintf(&inner, "    <p><span class=\"label\">Total:</span> %s EUR</p>\n", utils.FormatMoney(b.PriceTotal))
	if b.PaymentOption == models.PaymentOptionDeposit {
		fmt.Fprintf(&inner, "    <p><span class=\"label\">Deposit transferred:</span> %s EUR</p>\n", utils.FormatMoney(b.AmountDue))
		fmt.Fprintf(&inner, "    <p><span class=\"label\">Due at arrival:</span> %s EUR</p>\n", utils.FormatMoney(b.AmountRemaining))
	}
	fmt.Fprintf(&inner, "    <p>Best regards,<br>%s</p>", html.EscapeString(hotel.Name))

	return Message{
		To:       b.GuestEmail,
		FromName: hotel.Name,
		Subject:  subject,
		HTML:     wrapHTML(subject, inner.String()),
		Text:     text.String(),
	}
}

// HotelWelcome tells a new hotel owner where to sign in.
func HotelWelcome(hotel models.Hotel, loginURL string) Message {
	subject := fmt.Sprintf("Your booking system for %s is ready", hotel.Name)

	text := fmt.Sprintf(
		"Hello,\n\n"+
			"The booking system for %s has been set up.\n"+
			"Sign in with %s at:\n%s\n\n"+
			"If you did not expect this email, you can ignore it.\n",
		hotel.Name, hotel.OwnerEmail, loginURL,
	)

	inner := fmt.Sprintf(`    <h2>Welcome</h2>
    <p>The booking system for <strong>%s</strong> has been set up.</p>
    <p>Sign in with <strong>%s</strong> to start sending booking links to your guests.</p>
    <a class="btn" href="%s" target="_blank">Open dashboard</a>
    <p>If you did not expect this email, you can ignore it.</p>`,
		html.EscapeString(hotel.Name), html.EscapeString(hotel.OwnerEmail), html.EscapeString(loginURL),
	)

	return Message{
		To:      hotel.OwnerEmail,
		Subject: subject,
		HTML:    wrapHTML(subject, inner),
		Text:    text,
	}
}

func roomsListText(rooms []models.RoomLine) string {
	if len(rooms) == 0 {
		return " - N/A\n"
	}
	var b strings.Builder
	for _, r := range rooms {
		fmt.Fprintf(&b, " - %s (%d adults, %d children)\n", r.Category, r.Adults, r.Children)
	}
	return b.String()
}

func roomsListHTML(rooms []models.RoomLine) string {
	if len(rooms) == 0 {
		return "<em>N/A</em>"
	}
	var b strings.Builder
	b.WriteString(`<ul class="room-list">`)
	for _, r := range rooms {
		fmt.Fprintf(&b, "<li>%s (%d adults, %d children)</li>", html.EscapeString(r.Category), r.Adults, r.Children)
	}
	b.WriteString("</ul>")
	return b.String()
}
