// Package units converts quantities between mass units used by purchase limits.
package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cannapos/internal/core/types"
)

// Unit is a mass unit of measure.
type Unit string

const (
	Gram      Unit = "g"
	Milligram Unit = "mg"
	Ounce     Unit = "oz"
)

type pair struct {
	from, to Unit
}

// factors holds the exact conversion multipliers.
var factors = map[pair]decimal.Decimal{
	{Gram, Ounce}:      decimal.RequireFromString("0.035274"),
	{Gram, Milligram}:  decimal.RequireFromString("1000"),
	{Milligram, Ounce}: decimal.RequireFromString("0.000035274"),
	{Milligram, Gram}:  decimal.RequireFromString("0.001"),
	{Ounce, Gram}:      decimal.RequireFromString("28.3495"),
	{Ounce, Milligram}: decimal.RequireFromString("28349.5"),
}

// Convert converts qty from one unit to another.
// Pairs outside the table, including from == to, return qty unchanged.
func Convert(qty types.Money, from, to Unit) types.Money {
	if f, ok := factors[pair{from, to}]; ok {
		return qty.Mul(f)
	}
	return qty
}

// Parse normalizes a unit name. Empty input is treated as grams.
func Parse(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "g", "gram", "grams":
		return Gram, nil
	case "mg", "milligram", "milligrams":
		return Milligram, nil
	case "oz", "ounce", "ounces":
		return Ounce, nil
	default:
		return "", fmt.Errorf("unknown unit %q", s)
	}
}

// Valid reports whether u is one of the supported mass units.
func (u Unit) Valid() bool {
	return u == Gram || u == Milligram || u == Ounce
}
