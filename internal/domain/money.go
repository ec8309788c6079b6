package domain

import "github.com/shopspring/decimal"

const (
	// MaxAmountExponent and MinAmountExponent bound the scale of any amount
	// the till or the server will do arithmetic on.
	MaxAmountExponent = 12
	MinAmountExponent = -4

	// MaxQuantity caps a single line.
	MaxQuantity = 10000
)

var maxAmount = decimal.New(1, MaxAmountExponent)

// AmountInRange reports whether d is small enough to add, multiply and round
// cheaply. The exponent is checked before any comparison, since comparing
// rescales both operands.
func AmountInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > MaxAmountExponent || exp < MinAmountExponent {
		return false
	}
	return d.Abs().Cmp(maxAmount) <= 0
}
