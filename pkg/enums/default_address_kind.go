package enums

import "fmt"

// DefaultAddressKind selects which default flag a set-default call targets.
// Shipping and billing defaults are independent of each other.
type DefaultAddressKind string

const (
	DefaultAddressShipping DefaultAddressKind = "shipping"
	DefaultAddressBilling  DefaultAddressKind = "billing"
)

var validDefaultAddressKinds = []DefaultAddressKind{
	DefaultAddressShipping,
	DefaultAddressBilling,
}

// String implements fmt.Stringer.
func (d DefaultAddressKind) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DefaultAddressKind.
func (d DefaultAddressKind) IsValid() bool {
	for _, candidate := range validDefaultAddressKinds {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDefaultAddressKind converts raw input into a DefaultAddressKind.
func ParseDefaultAddressKind(value string) (DefaultAddressKind, error) {
	for _, candidate := range validDefaultAddressKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid default address kind %q", value)
}
