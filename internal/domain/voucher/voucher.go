package voucher

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported voucher discount strategies.
type Type string

const (
	// TypeFixed takes a fixed amount off the subtotal, capped at the subtotal.
	TypeFixed Type = "fixed"
	// TypePercentage takes a percentage of the subtotal.
	TypePercentage Type = "percentage"
)

// Valid reports whether t is a known voucher type.
func (t Type) Valid() bool {
	return t == TypeFixed || t == TypePercentage
}

var (
	// ErrNotFound is returned when no voucher matches a code or GUID.
	ErrNotFound = errors.New("voucher not found")
	// ErrMinimumNotMet is matched by every MinimumNotMetError.
	ErrMinimumNotMet = errors.New("minimum order amount not met")
)

// MinimumNotMetError reports that the cart subtotal is below the voucher's
// minimum order amount.
type MinimumNotMetError struct {
	Code    string
	Minimum decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("voucher %s requires a minimum order of %s", e.Code, e.Minimum)
}

// Is makes errors.Is(err, ErrMinimumNotMet) succeed.
func (e *MinimumNotMetError) Is(target error) bool {
	return target == ErrMinimumNotMet
}

// Voucher is a discount code. Code is unique case-insensitively, GUID is the
// identifier printed in voucher QR codes.
type Voucher struct {
	Code               string
	GUID               string
	Type               Type
	Value              decimal.Decimal
	MinimumOrderAmount decimal.NullDecimal
}

// CheckMinimum returns a MinimumNotMetError when subtotal is below the
// voucher's minimum order amount.
func (v *Voucher) CheckMinimum(subtotal decimal.Decimal) error {
	if !v.MinimumOrderAmount.Valid {
		return nil
	}
	if subtotal.LessThan(v.MinimumOrderAmount.Decimal) {
		return &MinimumNotMetError{Code: v.Code, Minimum: v.MinimumOrderAmount.Decimal}
	}
	return nil
}

// Catalog is the read-only voucher lookup. Lookups return (nil, nil) when
// nothing matches.
type Catalog interface {
	FindByCode(ctx context.Context, code string) (*Voucher, error)
	FindByGUID(ctx context.Context, guid string) (*Voucher, error)
}
