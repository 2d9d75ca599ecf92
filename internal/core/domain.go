package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleAdmin     Role = "admin"
	RoleColleague Role = "colleague"

	// MinContribution is the smallest amount the remote API accepts (FCFA).
	MinContribution int64 = 100
)

type (
	Role string

	// Date is a calendar day. The remote API exchanges dates as
	// "YYYY-MM-DD" strings; anything finer than a day is truncated.
	Date struct {
		time.Time
	}

	// Contribution is one savings entry as served by the remote API.
	Contribution struct {
		ID        string
		OwnerID   string
		OwnerName string
		Amount    int64 // whole FCFA, no minor units
		Date      Date
		CreatedAt string // server-assigned, opaque
		UpdatedAt string
	}

	// UserSummary mirrors the remote /users payload. TotalSavings is the
	// server-computed running total and stays authoritative; locally summed
	// figures are advisory only.
	UserSummary struct {
		ID               string
		Name             string
		Email            string
		Role             Role
		TotalSavings     int64
		LastContribution Date // zero means "never"
	}

	// Fields is the payload of a contribution mutation.
	Fields struct {
		OwnerID string
		Amount  int64
		Date    string // ISO day, validated before any network call
	}
)

var (
	ErrEmptyOwner    = errors.New("owner is required")
	ErrAmountTooLow  = errors.New("minimum contribution is 100")
	ErrEmptyDate     = errors.New("date is required")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyEmail    = errors.New("email is required")
	ErrEmptyName     = errors.New("name is required")
	ErrEmptyPassword = errors.New("password is required")
)

// ParseDate parses an ISO "YYYY-MM-DD" day. Timestamps carrying a time
// component are accepted and truncated to the day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ISO renders the date as "YYYY-MM-DD", or "" for the zero date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// IsEmpty reports whether the date is unset ("never contributed").
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Validate checks the mutation payload. It runs before any request is
// issued so invalid input never costs a round-trip.
func (f Fields) Validate() error {
	verr := ValidationError{Fields: map[string]string{}}
	if strings.TrimSpace(f.OwnerID) == "" {
		verr.Fields["ownerId"] = ErrEmptyOwner.Error()
	}
	if f.Amount < MinContribution {
		verr.Fields["amount"] = ErrAmountTooLow.Error()
	}
	if _, err := ParseDate(f.Date); err != nil {
		verr.Fields["date"] = err.Error()
	}
	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}

func (c Contribution) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if c.Amount < MinContribution {
		return ErrAmountTooLow
	}
	if c.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
