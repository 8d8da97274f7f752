package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// LinkTokenBytes gives 256-bit guest tokens (64 hex chars).
const LinkTokenBytes = 32

// GenerateSecureToken returns length random bytes, hex encoded.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsLinkToken checks the shape of a guest token before it reaches the database.
func IsLinkToken(s string) bool {
	if len(s) != LinkTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// BuildGuestLink is the URL a hotelier sends to the guest.
func BuildGuestLink(frontendURL, linkID string) string {
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return fmt.Sprintf("%s/guest/%s", strings.TrimRight(frontendURL, "/"), linkID)
}

// MaskEmail hides most of the local part for logs.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}
	local := parts[0]
	switch {
	case len(local) > 2:
		local = local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:]
	case len(local) == 2:
		local = local[:1] + "*"
	}
	return local + "@" + parts[1]
}
