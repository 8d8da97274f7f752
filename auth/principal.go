package auth

import "fmt"

// Principal is the verified identity behind a request. Only Agency and Hotelier implement it.
type Principal interface {
	UserID() string
	Email() string
	principal()
}

// Agency may manage every hotel.
type Agency struct {
	ID      string
	Address string
}

// Hotelier is scoped to exactly one hotel.
type Hotelier struct {
	ID      string
	Address string
	HotelID string
}

func (a Agency) UserID() string { return a.ID }
func (a Agency) Email() string  { return a.Address }
func (Agency) principal()       {}

func (h Hotelier) UserID() string { return h.ID }
func (h Hotelier) Email() string  { return h.Address }
func (Hotelier) principal()       {}

// RoleOf returns the role claim for p.
func RoleOf(p Principal) string {
	switch p.(type) {
	case Agency:
		return "agency"
	case Hotelier:
		return "hotelier"
	default:
		panic(fmt.Sprintf("auth: unknown principal %T", p))
	}
}
