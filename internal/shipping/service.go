// Package shipping resolves the delivery options offered at checkout. The
// backend catalog is authoritative; a built-in catalog keeps checkout
// usable when that call fails.
package shipping

import (
	"context"
	"fmt"

	"github.com/lumi-glow/storefront/pkg/logger"
	"github.com/lumi-glow/storefront/pkg/money"
	"github.com/lumi-glow/storefront/pkg/types"

	"github.com/shopspring/decimal"
)

// catalog is the slice of the commerce client this service needs.
type catalog interface {
	ListShippingMethods(ctx context.Context) ([]types.ShippingMethod, error)
}

// Service lists shipping methods and resolves their cost.
type Service interface {
	Methods(ctx context.Context) []types.ShippingMethod
	MethodByID(ctx context.Context, id int) (*types.ShippingMethod, error)
	Cost(method types.ShippingMethod) decimal.Decimal
}

type service struct {
	catalog catalog
	log     *logger.Logger
}

// NewService builds the shipping service around the commerce catalog.
func NewService(cat catalog, log *logger.Logger) (Service, error) {
	if cat == nil {
		return nil, fmt.Errorf("shipping catalog required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{catalog: cat, log: log}, nil
}

// Fallback is the built-in catalog used when the backend is unreachable.
// Prices match the backend's seeded methods.
func Fallback() []types.ShippingMethod {
	standard := "Delivery within 3 business days"
	express := "Next business day delivery"
	return []types.ShippingMethod{
		{ID: 1, Name: "Standard Delivery", Description: &standard, Price: "60", EstimatedDays: 3, IsActive: true},
		{ID: 2, Name: "Express Delivery", Description: &express, Price: "120", EstimatedDays: 1, IsActive: true},
	}
}

// Methods returns the active shipping methods, preferring the backend
// catalog and degrading to the built-in one.
func (s *service) Methods(ctx context.Context) []types.ShippingMethod {
	remote, err := s.catalog.ListShippingMethods(ctx)
	if err != nil {
		s.log.Warn(ctx, "shipping catalog unavailable, using fallback", err)
		return active(Fallback())
	}
	if len(remote) == 0 {
		return active(Fallback())
	}
	return active(remote)
}

// MethodByID resolves one method from the current catalog.
func (s *service) MethodByID(ctx context.Context, id int) (*types.ShippingMethod, error) {
	for _, m := range s.Methods(ctx) {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("shipping method %d not found", id)
}

// Cost parses the method's price; malformed prices count as zero.
func (s *service) Cost(method types.ShippingMethod) decimal.Decimal {
	return money.ParsePrice(method.Price)
}

// DefaultMethod picks the method checkout preselects: the first active
// method, else the first listed.
func DefaultMethod(methods []types.ShippingMethod) *types.ShippingMethod {
	for i := range methods {
		if methods[i].IsActive {
			return &methods[i]
		}
	}
	if len(methods) > 0 {
		return &methods[0]
	}
	return nil
}

func active(methods []types.ShippingMethod) []types.ShippingMethod {
	out := make([]types.ShippingMethod, 0, len(methods))
	for _, m := range methods {
		if m.IsActive {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return methods
	}
	return out
}
