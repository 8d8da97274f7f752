package auth

import (
	"context"
	"net/http"
	"strings"
)

// Verifier turns request credentials into a Session. It reads the session cookie first, then a Bearer header.
type Verifier struct {
	jwt        *JWTManager
	revoked    RevocationStore
	cookieName string
}

func NewVerifier(jwt *JWTManager, revoked RevocationStore, cookieName string) *Verifier {
	return &Verifier{jwt: jwt, revoked: revoked, cookieName: cookieName}
}

func (v *Verifier) CookieName() string { return v.cookieName }

// TokenFromRequest returns the raw credential or "" when none was sent.
func (v *Verifier) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(v.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// Verify validates the token and rejects revoked ones.
func (v *Verifier) Verify(ctx context.Context, token string) (*Session, error) {
	sess, err := v.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if v.revoked != nil {
		revoked, err := v.revoked.IsRevoked(ctx, sess.JTI)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return sess, nil
}

// Revoke marks the session's jti as logged out.
func (v *Verifier) Revoke(ctx context.Context, sess *Session) error {
	if v.revoked == nil || sess == nil {
		return nil
	}
	return v.revoked.Revoke(ctx, sess.JTI, sess.ExpiresAt)
}
