package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hotel-booking/logger"
	"hotel-booking/models"
	"hotel-booking/notify"
	"hotel-booking/storage"
)

const minPasswordLength = 8

// HotelService is the agency's tenant administration plus each hotel's own settings.
type HotelService struct {
	DB    *gorm.DB
	Store storage.BlobStore
	Queue TaskQueue
	Text  notify.TextGenerator
	Log   logger.Logger
}

func NewHotelService(db *gorm.DB, store storage.BlobStore, queue TaskQueue, text notify.TextGenerator, log logger.Logger) *HotelService {
	return &HotelService{DB: db, Store: store, Queue: queue, Text: text, Log: log}
}

type CreateHotelInput struct {
	Name          string `json:"name"`
	OwnerEmail    string `json:"ownerEmail"`
	OwnerPassword string `json:"ownerPassword"`
	Domain        string `json:"domain"`
}

func (in CreateHotelInput) validate() error {
	v := newValidationError()
	if strings.TrimSpace(in.Name) == "" {
		v.add("name", "Hotel name is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.OwnerEmail)); err != nil {
		v.add("ownerEmail", "Owner email is invalid")
	}
	if len(in.OwnerPassword) < minPasswordLength {
		v.add("ownerPassword", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	return v.orNil()
}

func (s *HotelService) ListHotels(ctx context.Context) ([]models.Hotel, error) {
	var hotels []models.Hotel
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&hotels).Error; err != nil {
		return nil, fmt.Errorf("list hotels: %w", err)
	}
	return hotels, nil
}

func (s *HotelService) GetHotel(ctx context.Context, hotelID string) (*models.Hotel, error) {
	var hotel models.Hotel
	if err := s.DB.WithContext(ctx).Where("id = ?", hotelID).First(&hotel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHotelNotFound
		}
		return nil, fmt.Errorf("load hotel: %w", err)
	}
	return &hotel, nil
}

// CreateHotel provisions a tenant with its owner account and queues the welcome email.
func (s *HotelService) CreateHotel(ctx context.Context, in CreateHotelInput) (*models.Hotel, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(in.OwnerEmail))
	hotel := models.Hotel{
		ID:                    uuid.NewString(),
		Name:                  strings.TrimSpace(in.Name),
		OwnerEmail:            email,
		Domain:                strings.TrimSpace(in.Domain),
		AllowedBoardTypes:     datatypes.JSONSlice[string]{},
		AllowedRoomCategories: datatypes.JSONSlice[string]{},
	}
	hotelID := hotel.ID
	owner := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleHotelier,
		HotelID:      &hotelID,
	}
	task := notify.NewTask(models.EmailKindHotelWelcome, hotel.ID, nil, email)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&hotel).Error; err != nil {
			return err
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		return s.Queue.Save(tx, task)
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create hotel: %w", err)
	}

	if err := s.Queue.Push(ctx, task.ID); err != nil {
		s.Log.Warn("welcome email not queued; recovery will pick it up", map[string]interface{}{"task_id": task.ID, "error": err.Error()})
	}
	s.Log.Info("hotel created", map[string]interface{}{"hotel_id": hotel.ID, "name": hotel.Name})
	return &hotel, nil
}

// DeleteHotel removes the tenant and everything under it in one transaction, then its stored files.
func (s *HotelService) DeleteHotel(ctx context.Context, hotelID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&models.EmailTask{},
			&models.BookingLink{},
			&models.Booking{},
			&models.User{},
		} {
			if err := tx.Where("hotel_id = ?", hotelID).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", hotelID).Delete(&models.Hotel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrHotelNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrHotelNotFound) {
			return err
		}
		return fmt.Errorf("delete hotel: %w", err)
	}

	if s.Store != nil {
		if err := s.Store.DeletePrefix(ctx, storage.HotelPrefix(hotelID)); err != nil {
			s.Log.Warn("hotel files not removed", map[string]interface{}{"hotel_id": hotelID, "error": err.Error()})
		}
	}
	s.Log.Info("hotel deleted", map[string]interface{}{"hotel_id": hotelID})
	return nil
}

// SettingsInput is the hotel's settings form. SMTPPassword is only changed when non-empty.
type SettingsInput struct {
	Name                  string   `json:"name"`
	Domain                string   `json:"domain"`
	Phone                 string   `json:"phone"`
	Address               string   `json:"address"`
	BankAccountHolder     string   `json:"bankAccountHolder"`
	BankName              string   `json:"bankName"`
	IBAN                  string   `json:"iban"`
	BIC                   string   `json:"bic"`
	SMTPHost              string   `json:"smtpHost"`
	SMTPPort              int      `json:"smtpPort"`
	SMTPUsername          string   `json:"smtpUsername"`
	SMTPPassword          string   `json:"smtpPassword"`
	SMTPFromName          string   `json:"smtpFromName"`
	AllowedBoardTypes     []string `json:"allowedBoardTypes"`
	AllowedRoomCategories []string `json:"allowedRoomCategories"`
	Policies              string   `json:"policies"`
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (s *HotelService) UpdateSettings(ctx context.Context, hotelID string, in SettingsInput) (*models.Hotel, error) {
	v := newValidationError()
	if strings.TrimSpace(in.Name) == "" {
		v.add("name", "Hotel name is required")
	}
	if in.SMTPPort < 0 || in.SMTPPort > 65535 {
		v.add("smtpPort", "SMTP port is out of range")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":                    strings.TrimSpace(in.Name),
		"domain":                  strings.TrimSpace(in.Domain),
		"phone":                   strings.TrimSpace(in.Phone),
		"address":                 strings.TrimSpace(in.Address),
		"bank_account_holder":     strings.TrimSpace(in.BankAccountHolder),
		"bank_name":               strings.TrimSpace(in.BankName),
		"iban":                    strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(in.IBAN)), " ", ""),
		"bic":                     strings.ToUpper(strings.TrimSpace(in.BIC)),
		"smtp_host":               strings.TrimSpace(in.SMTPHost),
		"smtp_port":               in.SMTPPort,
		"smtp_username":           strings.TrimSpace(in.SMTPUsername),
		"smtp_from_name":          strings.TrimSpace(in.SMTPFromName),
		"allowed_board_types":     datatypes.JSONSlice[string](cleanList(in.AllowedBoardTypes)),
		"allowed_room_categories": datatypes.JSONSlice[string](cleanList(in.AllowedRoomCategories)),
		"policies":                strings.TrimSpace(in.Policies),
	}
	if in.SMTPPassword != "" {
		updates["smtp_password"] = in.SMTPPassword
	}

	res := s.DB.WithContext(ctx).Model(&models.Hotel{}).Where("id = ?", hotelID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update hotel settings: %w", res.Error)
	}
	// MySQL reports zero affected rows for an unchanged form too; the reload tells the cases apart.
	return s.GetHotel(ctx, hotelID)
}

// PolicyRequest gives the generator the facts the hotelier wants written up.
type PolicyRequest struct {
	CheckInFrom   string `json:"checkInFrom"`
	CheckOutUntil string `json:"checkOutUntil"`
	Cancellation  string `json:"cancellation"`
	Pets          string `json:"pets"`
	Extra         string `json:"extra"`
}

const policySystemPrompt = "You draft concise house policies for a small hotel's booking page. " +
	"Use short headed sections in plain text. Do not invent prices or facts that were not given."

// GeneratePolicies returns draft text only; the hotelier saves it through UpdateSettings.
func (s *HotelService) GeneratePolicies(ctx context.Context, hotelID string, req PolicyRequest) (string, error) {
	hotel, err := s.GetHotel(ctx, hotelID)
	if err != nil {
		return "", err
	}
	if s.Text == nil {
		return "", ErrTextUnavailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hotel: %s\n", hotel.Name)
	if hotel.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", hotel.Address)
	}
	fmt.Fprintf(&b, "Check-in from: %s\nCheck-out until: %s\n", req.CheckInFrom, req.CheckOutUntil)
	fmt.Fprintf(&b, "Cancellation: %s\nPets: %s\n", req.Cancellation, req.Pets)
	fmt.Fprintf(&b, "Deposit option: 30%% of the total by bank transfer, rest at arrival\n")
	if len(hotel.AllowedBoardTypes) > 0 {
		fmt.Fprintf(&b, "Board types: %s\n", strings.Join(hotel.AllowedBoardTypes, ", "))
	}
	if req.Extra != "" {
		fmt.Fprintf(&b, "Other notes: %s\n", req.Extra)
	}

	text, err := s.Text.Generate(ctx, policySystemPrompt, b.String())
	if err != nil {
		s.Log.Warn("policy generation failed", map[string]interface{}{"hotel_id": hotelID, "error": err.Error()})
		return "", ErrTextUnavailable
	}
	return text, nil
}
