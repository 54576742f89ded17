package reservation

import (
	"fmt"
	"strings"
	"time"

	"barbershop/apperr"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Reservation is one confirmed booking. Price is the service price in cents
// at booking time.
type Reservation struct {
	ID              uuid.UUID `json:"id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	ServiceName     string    `json:"service_name"`
	Price           int64     `json:"price_cents"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	ClientAccountID *string   `json:"client_account_id,omitempty"`
	ContactName     *string   `json:"contact_name,omitempty"`
	ContactEmail    *string   `json:"contact_email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	// CancelToken is set only on the value returned by CreateReservation for
	// a guest booking. It is never stored or listed.
	CancelToken string `json:"cancel_token,omitempty"`
}

func (r *Reservation) IsGuest() bool {
	return r.ClientAccountID == nil || *r.ClientAccountID == ""
}

func (r *Reservation) Validate() error {
	var fields []string
	if strings.TrimSpace(r.ServiceName) == "" {
		fields = append(fields, "service name is required")
	}
	if r.Price < 0 {
		fields = append(fields, "price must not be negative")
	}
	if r.ProviderID == uuid.Nil {
		fields = append(fields, "provider ID is required")
	}
	if r.Date == "" {
		fields = append(fields, "date is required")
	} else if _, err := time.Parse(DateLayout, r.Date); err != nil {
		fields = append(fields, "date must be YYYY-MM-DD")
	}
	if r.Time == "" {
		fields = append(fields, "time is required")
	} else if !ValidTime(r.Time) {
		fields = append(fields, "time must be HH:MM")
	}
	if r.IsGuest() {
		if blank(r.ContactName) {
			fields = append(fields, "contact name is required")
		}
		if blank(r.ContactEmail) {
			fields = append(fields, "contact email is required")
		} else if !strings.Contains(*r.ContactEmail, "@") {
			fields = append(fields, "contact email is invalid")
		}
	}
	return apperr.Validation(fields...)
}

// ParseDate parses a YYYY-MM-DD date, failing with a ValidationError.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	return d, nil
}

// ValidTime reports whether label is a zero-padded HH:MM slot label.
// Labels are compared as strings, so "9:00" is refused.
func ValidTime(label string) bool {
	t, err := time.Parse(TimeLayout, label)
	return err == nil && t.Format(TimeLayout) == label
}

// StartsAt is the reservation's date and slot as an instant in loc.
func (r *Reservation) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start of reservation %s: %w", r.ID, err)
	}
	return t, nil
}

// RecipientEmail is where booking mail for r should go, empty if unknown.
func (r *Reservation) RecipientEmail(accountEmail string) string {
	if !r.IsGuest() {
		return accountEmail
	}
	if r.ContactEmail == nil {
		return ""
	}
	return *r.ContactEmail
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
