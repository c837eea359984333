// Package core holds the domain model shared by the ledger engine,
// the storage layer, and the HTTP handlers.
//
// This file contains monetary amount parsing and conversion. Amounts are
// decimal values with at most two fractional digits; the storage layer
// persists them as integer minor units so balance updates stay atomic.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a positive monetary value with at most two decimal places.
type Amount struct {
	dec decimal.Decimal
}

// ParseAmount parses a decimal string into an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for empty strings, non-numeric input,
// zero or negative values, and values with more than two decimal places.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return NewAmount(d)
}

// NewAmount validates a decimal and wraps it as an Amount.
func NewAmount(d decimal.Decimal) (Amount, error) {
	if !d.IsPositive() {
		return Amount{}, ErrInvalidAmount
	}
	if !d.Truncate(2).Equal(d) {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{dec: d}, nil
}

// AmountFromCents converts integer minor units back into an Amount.
// Used by the storage layer when loading persisted rows; cents must be
// positive because stored transaction amounts always are.
func AmountFromCents(cents int64) Amount {
	return Amount{dec: decimal.New(cents, -2)}
}

// Cents returns the amount in integer minor units.
func (a Amount) Cents() int64 {
	return a.dec.Shift(2).IntPart()
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.dec
}

// CentsString renders signed minor units as a fixed two-decimal string.
// Balances can be negative, so they travel as raw cents rather than Amount.
func CentsString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// IsZero reports whether the amount is the zero value.
func (a Amount) IsZero() bool {
	return a.dec.IsZero()
}

// String renders the amount with two decimal places, e.g. "12.34".
func (a Amount) String() string {
	return a.dec.StringFixed(2)
}

// MarshalJSON renders the amount as a JSON string to avoid float precision loss.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both string and number forms.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
