// Package address manages the shopper's saved delivery addresses: form
// validation, CRUD against the backend, and default selection.
package address

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/lumi-glow/storefront/internal/commerce"
	"github.com/lumi-glow/storefront/pkg/enums"
	"github.com/lumi-glow/storefront/pkg/errors"
	"github.com/lumi-glow/storefront/pkg/types"
)

// directory is the slice of the commerce client this service needs.
type directory interface {
	ListAddresses(ctx context.Context) ([]types.Address, error)
	CreateAddress(ctx context.Context, req commerce.CreateAddressRequest) (*types.Address, error)
	UpdateAddress(ctx context.Context, id int, req commerce.CreateAddressRequest) (*types.Address, error)
	DeleteAddress(ctx context.Context, id int) error
	SetDefaultAddress(ctx context.Context, id int, kind enums.DefaultAddressKind) (*types.Address, error)
}

// Service manages the address book.
type Service interface {
	List(ctx context.Context) ([]types.Address, error)
	Create(ctx context.Context, input FormInput) (*types.Address, error)
	Update(ctx context.Context, id int, input FormInput) (*types.Address, error)
	Delete(ctx context.Context, id int) error
	SetDefault(ctx context.Context, id int, kind enums.DefaultAddressKind) (*types.Address, error)
}

type service struct {
	dir      directory
	validate *validator.Validate
}

// NewService builds the address service around the commerce directory.
func NewService(dir directory) (Service, error) {
	if dir == nil {
		return nil, fmt.Errorf("commerce directory required")
	}
	return &service{
		dir:      dir,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// FormInput is what the address form collects. Validation tags mirror
// what the backend enforces so the shopper hears about problems before a
// network round trip.
type FormInput struct {
	Type              string `validate:"required,oneof=home office other"`
	FullName          string `validate:"required,min=2"`
	PhoneNumber       string `validate:"required,min=6"`
	Email             string `validate:"required,email"`
	AddressLine1      string `validate:"required,min=3"`
	AddressLine2      string
	Landmark          string
	Region            string `validate:"required"`
	Notes             string
	IsDefaultShipping bool
	IsDefaultBilling  bool
}

// Prefill seeds a fresh form from the signed-in user's profile.
func Prefill(user types.User) FormInput {
	return FormInput{
		Type:        enums.AddressTypeHome.String(),
		FullName:    user.DisplayName(),
		PhoneNumber: user.Phone,
		Email:       user.Email,
	}
}

func (s *service) List(ctx context.Context) ([]types.Address, error) {
	return s.dir.ListAddresses(ctx)
}

func (s *service) Create(ctx context.Context, input FormInput) (*types.Address, error) {
	req, err := s.toRequest(input)
	if err != nil {
		return nil, err
	}
	return s.dir.CreateAddress(ctx, req)
}

func (s *service) Update(ctx context.Context, id int, input FormInput) (*types.Address, error) {
	if id <= 0 {
		return nil, errors.New(errors.CodeValidation, "address id is required")
	}
	req, err := s.toRequest(input)
	if err != nil {
		return nil, err
	}
	return s.dir.UpdateAddress(ctx, id, req)
}

func (s *service) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return errors.New(errors.CodeValidation, "address id is required")
	}
	return s.dir.DeleteAddress(ctx, id)
}

func (s *service) SetDefault(ctx context.Context, id int, kind enums.DefaultAddressKind) (*types.Address, error) {
	if id <= 0 {
		return nil, errors.New(errors.CodeValidation, "address id is required")
	}
	if !kind.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown default address kind").
			WithFields(map[string]string{"kind": string(kind)})
	}
	return s.dir.SetDefaultAddress(ctx, id, kind)
}

// DefaultShipping picks the address checkout should preselect: the flagged
// default if one exists, otherwise the first saved address.
func DefaultShipping(addresses []types.Address) *types.Address {
	for i := range addresses {
		if addresses[i].IsDefaultShipping {
			return &addresses[i]
		}
	}
	if len(addresses) > 0 {
		return &addresses[0]
	}
	return nil
}

func (s *service) toRequest(input FormInput) (commerce.CreateAddressRequest, error) {
	input.Type = strings.TrimSpace(input.Type)
	input.FullName = strings.TrimSpace(input.FullName)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Email = strings.TrimSpace(input.Email)
	input.AddressLine1 = strings.TrimSpace(input.AddressLine1)
	input.AddressLine2 = strings.TrimSpace(input.AddressLine2)
	input.Landmark = strings.TrimSpace(input.Landmark)
	input.Region = strings.TrimSpace(input.Region)
	input.Notes = strings.TrimSpace(input.Notes)

	if err := s.validate.Struct(input); err != nil {
		return commerce.CreateAddressRequest{}, validationError(err)
	}

	return commerce.CreateAddressRequest{
		Type:              enums.AddressType(input.Type),
		FullName:          input.FullName,
		PhoneNumber:       input.PhoneNumber,
		Email:             input.Email,
		AddressLine1:      input.AddressLine1,
		AddressLine2:      optional(input.AddressLine2),
		Landmark:          optional(input.Landmark),
		Region:            input.Region,
		Notes:             optional(input.Notes),
		IsDefaultShipping: input.IsDefaultShipping,
		IsDefaultBilling:  input.IsDefaultBilling,
	}, nil
}

func validationError(err error) error {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[lowerFirst(fe.Field())] = messageFor(fe)
		}
	}
	return errors.New(errors.CodeValidation, "address form is incomplete").WithFields(fields)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "invalid value"
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
