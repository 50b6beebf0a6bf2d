package types

import (
	"fmt"
	"strings"
)

// Address is the shipping destination captured at checkout; stored as JSONB.
type Address struct {
	Recipient    string  `json:"recipient,omitempty"`
	Street       string  `json:"street" validate:"required"`
	Number       string  `json:"number" validate:"required"`
	Complement   *string `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	City         string  `json:"city" validate:"required"`
	State        string  `json:"state" validate:"required"`
	PostalCode   string  `json:"postal_code" validate:"required"`
	Country      string  `json:"country,omitempty"`
}

// Normalize trims fields and defaults the country.
func (a Address) Normalize() Address {
	a.Recipient = strings.TrimSpace(a.Recipient)
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.ToUpper(strings.TrimSpace(a.State))
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "BR"
	}
	if a.Complement != nil {
		trimmed := strings.TrimSpace(*a.Complement)
		if trimmed == "" {
			a.Complement = nil
		} else {
			a.Complement = &trimmed
		}
	}
	return a
}

// OneLine renders the address for notifications.
func (a Address) OneLine() string {
	street := fmt.Sprintf("%s, %s", a.Street, a.Number)
	if a.Complement != nil {
		street += " " + *a.Complement
	}
	parts := []string{street}
	if a.Neighborhood != "" {
		parts = append(parts, a.Neighborhood)
	}
	parts = append(parts, fmt.Sprintf("%s/%s", a.City, a.State), a.PostalCode)
	return strings.Join(parts, " - ")
}
