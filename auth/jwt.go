package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Session is what a verified token carries besides the principal.
type Session struct {
	Principal Principal
	JTI       string
	ExpiresAt time.Time
}

type JWTManager struct {
	secretKey string
	ttl       time.Duration
	now       func() time.Time
}

func NewJWTManager(secretKey string, ttl time.Duration) *JWTManager {
	return &JWTManager{secretKey: secretKey, ttl: ttl, now: time.Now}
}

func (j *JWTManager) TTL() time.Duration { return j.ttl }

// GenerateToken signs an HS256 token for p and returns it with its jti and expiry.
func (j *JWTManager) GenerateToken(p Principal) (string, Session, error) {
	if j.secretKey == "" {
		return "", Session{}, fmt.Errorf("JWT secret key is empty")
	}

	now := j.now().UTC()
	sess := Session{
		Principal: p,
		JTI:       uuid.New().String(),
		ExpiresAt: now.Add(j.ttl),
	}

	claims := jwt.MapClaims{
		"sub":   p.UserID(),
		"email": p.Email(),
		"role":  RoleOf(p),
		"jti":   sess.JTI,
		"iat":   now.Unix(),
		"exp":   sess.ExpiresAt.Unix(),
	}
	if h, ok := p.(Hotelier); ok {
		claims["hotel_id"] = h.HotelID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.secretKey))
	if err != nil {
		return "", Session{}, err
	}
	return signed, sess, nil
}

// ValidateToken checks signature and expiry and rebuilds the principal. Revocation is checked by the caller.
func (j *JWTManager) ValidateToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" || jti == "" {
		return nil, fmt.Errorf("%w: missing subject or jti", ErrInvalidToken)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}

	var p Principal
	switch role {
	case "agency":
		p = Agency{ID: sub, Address: email}
	case "hotelier":
		hotelID, _ := claims["hotel_id"].(string)
		if hotelID == "" {
			return nil, fmt.Errorf("%w: hotelier without hotel", ErrInvalidToken)
		}
		p = Hotelier{ID: sub, Address: email, HotelID: hotelID}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}

	return &Session{Principal: p, JTI: jti, ExpiresAt: exp.Time}, nil
}
