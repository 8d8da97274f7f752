package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotel-booking/auth"
	"hotel-booking/logger"
	"hotel-booking/services"
)

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionController answers every call with {success, ...}; failures carry a generic error string only.
type SessionController struct {
	Sessions      *services.SessionService
	Verifier      *auth.Verifier
	SecureCookies bool
	Log           logger.Logger
}

func NewSessionController(sessions *services.SessionService, verifier *auth.Verifier, secureCookies bool, log logger.Logger) *SessionController {
	return &SessionController{Sessions: sessions, Verifier: verifier, SecureCookies: secureCookies, Log: log}
}

func sessionBody(p auth.Principal) gin.H {
	body := gin.H{"success": true, "role": auth.RoleOf(p)}
	if h, ok := p.(auth.Hotelier); ok {
		body["hotelId"] = h.HotelID
	}
	return body
}

func (sc *SessionController) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	token, sess, err := sc.Sessions.Login(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			sc.Log.Error("login failed", map[string]interface{}{"error": err.Error()})
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid email or password"})
		return
	}

	http.SetCookie(c.Writer, auth.SessionCookie(sc.Verifier.CookieName(), token, time.Until(sess.ExpiresAt), sc.SecureCookies))
	body := sessionBody(sess.Principal)
	body["token"] = token
	c.JSON(http.StatusOK, body)
}

// Logout always clears the cookie; the token is revoked when it still verifies.
func (sc *SessionController) Logout(c *gin.Context) {
	if token := sc.Verifier.TokenFromRequest(c.Request); token != "" {
		if sess, err := sc.Verifier.Verify(c.Request.Context(), token); err == nil {
			if err := sc.Verifier.Revoke(c.Request.Context(), sess); err != nil {
				sc.Log.Warn("session not revoked", map[string]interface{}{"error": err.Error()})
			}
		}
	}
	http.SetCookie(c.Writer, auth.ClearSessionCookie(sc.Verifier.CookieName(), sc.SecureCookies))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (sc *SessionController) Verify(c *gin.Context) {
	token := sc.Verifier.TokenFromRequest(c.Request)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Not signed in"})
		return
	}
	sess, err := sc.Verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Not signed in"})
		return
	}
	c.JSON(http.StatusOK, sessionBody(sess.Principal))
}
