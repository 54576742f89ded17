package catalog

import (
	"strings"

	"barbershop/apperr"

	"github.com/google/uuid"
)

// Service is an offered service. Prices are in cents of the facility currency.
type Service struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    int64     `json:"price_cents"`
	Category string    `json:"category"`
}

func (s *Service) Validate() error {
	var fields []string
	if strings.TrimSpace(s.Name) == "" {
		fields = append(fields, "name is required")
	}
	if s.Price < 0 {
		fields = append(fields, "price must not be negative")
	}
	return apperr.Validation(fields...)
}

// Provider is a bookable professional.
type Provider struct {
	ID              uuid.UUID `json:"id"`
	DisplayName     string    `json:"display_name"`
	PhotoRef        string    `json:"photo_ref"`
	LinkedAccountID *string   `json:"linked_account_id,omitempty"`
}

func (p *Provider) Validate() error {
	if strings.TrimSpace(p.DisplayName) == "" {
		return apperr.Validation("display name is required")
	}
	return nil
}
