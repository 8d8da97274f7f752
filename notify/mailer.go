package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/domodwyer/mailyak/v3"

	"hotel-booking/config"
	"hotel-booking/logger"
	"hotel-booking/models"
	"hotel-booking/utils"
)

var ErrNoRecipient = errors.New("email has no recipient")

// Message is a rendered email, ready for any transport.
type Message struct {
	To       string
	FromName string
	Subject  string
	HTML     string
	Text     string
}

type Mailer interface {
	Send(ctx context.Context, hotel models.Hotel, msg Message) error
}

// HotelMailer sends through the hotel's own SMTP account, then the platform SES sender,
// and finally only logs the message when neither is configured.
type HotelMailer struct {
	ses     *ses.Client
	sesFrom string
	log     logger.Logger
}

func NewHotelMailer(ctx context.Context, cfg config.MailConfig, log logger.Logger) (*HotelMailer, error) {
	m := &HotelMailer{sesFrom: cfg.SESFrom, log: log}
	if cfg.SESRegion != "" && cfg.SESFrom != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SESRegion))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		m.ses = ses.NewFromConfig(awsCfg)
	}
	return m, nil
}

func (m *HotelMailer) Send(ctx context.Context, hotel models.Hotel, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	switch {
	case hotel.HasSMTP():
		mail := composeSMTP(hotel, msg)
		if err := mail.Send(); err != nil {
			return fmt.Errorf("smtp send via %s: %w", hotel.SMTPHost, err)
		}
		m.log.Info("email sent", map[string]interface{}{"transport": "smtp", "hotel_id": hotel.ID, "subject": msg.Subject})
		return nil

	case m.ses != nil:
		if err := m.sendSES(ctx, msg); err != nil {
			return err
		}
		m.log.Info("email sent", map[string]interface{}{"transport": "ses", "hotel_id": hotel.ID, "subject": msg.Subject})
		return nil

	default:
		m.log.Info("[MOCK EMAIL]", map[string]interface{}{
			"hotel_id": hotel.ID,
			"to":       utils.MaskEmail(msg.To),
			"subject":  msg.Subject,
		})
		return nil
	}
}

func composeSMTP(hotel models.Hotel, msg Message) *mailyak.MailYak {
	addr := hotel.SMTPHost + ":" + strconv.Itoa(hotel.SMTPPort)
	mail := mailyak.New(addr, smtp.PlainAuth("", hotel.SMTPUsername, hotel.SMTPPassword, hotel.SMTPHost))

	fromName := msg.FromName
	if fromName == "" {
		fromName = hotel.SMTPFromName
	}
	if fromName == "" {
		fromName = hotel.Name
	}

	mail.To(msg.To)
	mail.From(hotel.SMTPUsername)
	mail.FromName(oneLine(fromName))
	mail.Subject(oneLine(msg.Subject))
	mail.HTML().Set(msg.HTML)
	mail.Plain().Set(msg.Text)
	return mail
}

func (m *HotelMailer) sendSES(ctx context.Context, msg Message) error {
	source := m.sesFrom
	if msg.FromName != "" {
		source = fmt.Sprintf("%s <%s>", oneLine(msg.FromName), m.sesFrom)
	}
	_, err := m.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &sestypes.Destination{ToAddresses: []string{msg.To}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(oneLine(msg.Subject)), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Html: &sestypes.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				Text: &sestypes.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(s))
}
