package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"hotel-booking/auth"
	"hotel-booking/models"
)

// dummyHash is compared against when the email is unknown so both paths cost one bcrypt run.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

type SessionService struct {
	DB  *gorm.DB
	JWT *auth.JWTManager
}

func NewSessionService(db *gorm.DB, jwt *auth.JWTManager) *SessionService {
	return &SessionService{DB: db, JWT: jwt}
}

// Login checks the password and issues a signed session token.
func (s *SessionService) Login(ctx context.Context, email, password string) (string, auth.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", auth.Session{}, ErrInvalidCredentials
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return "", auth.Session{}, ErrInvalidCredentials
		}
		return "", auth.Session{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", auth.Session{}, ErrInvalidCredentials
	}

	principal, err := PrincipalFor(user)
	if err != nil {
		return "", auth.Session{}, err
	}
	return s.JWT.GenerateToken(principal)
}

// PrincipalFor maps a stored user onto the closed principal variant.
func PrincipalFor(u models.User) (auth.Principal, error) {
	switch u.Role {
	case models.RoleAgency:
		return auth.Agency{ID: u.ID, Address: u.Email}, nil
	case models.RoleHotelier:
		if u.HotelID == nil || *u.HotelID == "" {
			return nil, fmt.Errorf("hotelier %s has no hotel", u.ID)
		}
		return auth.Hotelier{ID: u.ID, Address: u.Email, HotelID: *u.HotelID}, nil
	default:
		return nil, fmt.Errorf("user %s has unknown role %q", u.ID, u.Role)
	}
}

// CreateAgencyUser is used by the CLI to bootstrap the first agency account.
func (s *SessionService) CreateAgencyUser(ctx context.Context, email, password string) (*models.User, error) {
	v := newValidationError()
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		v.add("email", "Email is required")
	}
	if len(password) < minPasswordLength {
		v.add("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAgency,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}
