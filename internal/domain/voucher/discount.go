package voucher

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Discount computes the discount a voucher grants on subtotal. It is a pure
// function of its inputs; the result is always within [0, subtotal].
// A nil voucher grants nothing.
func Discount(v *Voucher, subtotal decimal.Decimal) decimal.Decimal {
	if v == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch v.Type {
	case TypeFixed:
		amount = v.Value
	case TypePercentage:
		amount = subtotal.Mul(v.Value).Div(hundred)
	default:
		return decimal.Zero
	}

	return clamp(amount.Round(2), subtotal)
}

// clamp limits amount to [0, max].
func clamp(amount, max decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, max)
}
