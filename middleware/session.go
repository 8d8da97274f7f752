package middleware

import (
	"github.com/gin-gonic/gin"

	"hotel-booking/auth"
)

const sessionContextKey = "session"

// LoadSession verifies whatever credential the request carries and stores the session on the context.
// An invalid, expired or revoked credential is treated exactly like a missing one.
func LoadSession(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := v.TokenFromRequest(c.Request); token != "" {
			if sess, err := v.Verify(c.Request.Context(), token); err == nil {
				c.Set(sessionContextKey, sess)
			}
		}
		c.Next()
	}
}

// SessionFrom returns the verified session or nil.
func SessionFrom(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}

// PrincipalFrom returns the verified principal or nil.
func PrincipalFrom(c *gin.Context) auth.Principal {
	if sess := SessionFrom(c); sess != nil {
		return sess.Principal
	}
	return nil
}
