package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice converts a backend price string into a decimal amount.
// Malformed or empty input parses to zero so a single bad record cannot
// break total computation.
func ParsePrice(value string) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Effective picks the price a line is actually charged at: the discounted
// price when one is present, else the canonical price.
func Effective(price string, discountPrice *string) decimal.Decimal {
	if discountPrice != nil && strings.TrimSpace(*discountPrice) != "" {
		return ParsePrice(*discountPrice)
	}
	return ParsePrice(price)
}

// Format renders an amount with two decimal places for display.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
