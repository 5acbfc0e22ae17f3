package enums

import "fmt"

// CheckoutState tracks where a checkout session sits in its lifecycle.
type CheckoutState string

const (
	CheckoutStateUnauthenticated CheckoutState = "unauthenticated"
	CheckoutStateInitializing    CheckoutState = "initializing"
	CheckoutStateReady           CheckoutState = "ready"
	CheckoutStateValidating      CheckoutState = "validating"
	CheckoutStateSubmitting      CheckoutState = "submitting"
	CheckoutStateAwaitingPayment CheckoutState = "awaiting_payment"
	CheckoutStateConfirmed       CheckoutState = "confirmed"
	CheckoutStateFailed          CheckoutState = "failed"
	CheckoutStateAborted         CheckoutState = "aborted"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateUnauthenticated,
	CheckoutStateInitializing,
	CheckoutStateReady,
	CheckoutStateValidating,
	CheckoutStateSubmitting,
	CheckoutStateAwaitingPayment,
	CheckoutStateConfirmed,
	CheckoutStateFailed,
	CheckoutStateAborted,
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions leave this state within
// the current checkout session.
func (c CheckoutState) Terminal() bool {
	switch c {
	case CheckoutStateConfirmed, CheckoutStateAborted, CheckoutStateUnauthenticated:
		return true
	default:
		return false
	}
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
