// Package types holds the wire-level records shared between the storefront
// core and the remote commerce backend. Field names follow the backend's
// JSON contract.
package types

import (
	"strings"
	"time"

	"github.com/lumi-glow/storefront/pkg/enums"
)

// Address is one entry in the shopper's address book.
type Address struct {
	ID                int               `json:"id"`
	Type              enums.AddressType `json:"type"`
	FullName          string            `json:"fullName"`
	PhoneNumber       string            `json:"phoneNumber"`
	Email             string            `json:"email"`
	AddressLine1      string            `json:"addressLine1"`
	AddressLine2      *string           `json:"addressLine2,omitempty"`
	Region            string            `json:"region"`
	Landmark          *string           `json:"landmark,omitempty"`
	IsDefaultShipping bool              `json:"isDefaultShipping"`
	IsDefaultBilling  bool              `json:"isDefaultBilling"`
	Notes             *string           `json:"notes,omitempty"`
}

// ShippingMethod is one entry of the backend's shipping catalog.
type ShippingMethod struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	Price         string  `json:"price"`
	EstimatedDays int     `json:"estimatedDays"`
	IsActive      bool    `json:"isActive"`
}

// Coupon is the descriptor returned by coupon validation.
type Coupon struct {
	ID            int     `json:"id"`
	Code          string  `json:"code"`
	Type          string  `json:"type"`
	Value         string  `json:"value"`
	MinimumAmount *string `json:"minimumAmount,omitempty"`
	MaxDiscount   *string `json:"maxDiscount,omitempty"`
	ExpiryDate    string  `json:"expiryDate"`
	IsActive      bool    `json:"isActive"`
}

// User is the read-only identity snapshot persisted by the auth subsystem.
// The cart and checkout core never mutates it.
type User struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// DisplayName joins the user's names for contact-field prefill.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AuthSnapshot is the persisted auth blob: identity plus the bearer token
// issued by the backend.
type AuthSnapshot struct {
	User        User      `json:"user"`
	AccessToken string    `json:"accessToken"`
	SavedAt     time.Time `json:"savedAt"`
}
