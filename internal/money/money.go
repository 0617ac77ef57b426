// Package money centralizes monetary arithmetic. Amounts are stored as
// float64 columns but every derivation goes through shopspring/decimal so
// that rounding is deterministic to 2 decimal places.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds an amount to 2 decimal places (half away from zero).
func Round2(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// DivRound divides total by count and rounds the quotient to 2 decimals.
// Used to derive an installment amount from a total and a term.
func DivRound(total float64, count int) float64 {
	v, _ := decimal.NewFromFloat(total).
		Div(decimal.NewFromInt(int64(count))).
		Round(2).
		Float64()
	return v
}

// CeilDiv returns the number of installments of size per needed to cover
// total, rounding the last partial installment up to a whole one.
func CeilDiv(total, per float64) int {
	q := decimal.NewFromFloat(total).Div(decimal.NewFromFloat(per))
	return int(q.Ceil().IntPart())
}

// Percentage returns pct percent of base, rounded to 2 decimals.
func Percentage(base, pct float64) float64 {
	v, _ := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return v
}

// Sub subtracts b from a with 2-decimal rounding.
func Sub(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).Float64()
	return v
}

// Add adds a and b with 2-decimal rounding.
func Add(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).Float64()
	return v
}

// ClampFloor returns the larger of v and floor.
func ClampFloor(v, floor float64) float64 {
	return math.Max(v, floor)
}
