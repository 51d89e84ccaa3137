// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value or a quantity with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

var (
	hundred     = decimal.NewFromInt(100)
	tenThousand = decimal.NewFromInt(10_000)
)

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// TruncateCurrency floors x to 2 decimal places: floor(x*100)/100.
// Used for every customer-facing amount (price, cost, cash, change).
func TruncateCurrency(x Money) Money {
	return x.Mul(hundred).Floor().Div(hundred)
}

// TruncateQuantity floors x to 4 decimal places: floor(x*10000)/10000.
// Used for intermediate quantity and amount math.
func TruncateQuantity(x Money) Money {
	return x.Mul(tenThousand).Floor().Div(tenThousand)
}

// Fixed2 renders x with exactly two fractional digits after 2-decimal truncation.
func Fixed2(x Money) string {
	return TruncateCurrency(x).StringFixed(2)
}

// SumQuantity adds values after truncating each term to 4 decimals.
func SumQuantity(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(TruncateQuantity(v))
	}
	return total
}
