package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrHotelNotFound      = errors.New("hotel not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrLinkNotFound       = errors.New("booking link not found")
	ErrLinkUsed           = errors.New("booking link already used")
	ErrLinkExpired        = errors.New("booking link expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWizardStep         = errors.New("action not allowed at the current wizard step")
	ErrUnknownFileSlot    = errors.New("unknown file slot")
	ErrTextUnavailable    = errors.New("text generation unavailable")
)

// ValidationError carries per-field messages. Fields are keyed by the JSON name the client sent.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) add(field, msg string) {
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = msg
	}
}

// orNil returns nil when nothing was recorded, so callers can `return v.orNil()`.
func (v *ValidationError) orNil() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

// AsValidation unwraps err into a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
