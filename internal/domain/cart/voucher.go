package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-till/internal/domain/voucher"
)

// ErrLookupFailed matches the ApplyResult.Err of catalog failures.
var ErrLookupFailed = errors.New("voucher lookup failed")

// LookupError is the ApplyResult.Err when the voucher catalog fails.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string { return "voucher lookup failed: " + e.Err.Error() }

func (e *LookupError) Unwrap() error { return e.Err }

// Is reports whether target is ErrLookupFailed.
func (e *LookupError) Is(target error) bool { return target == ErrLookupFailed }

// ApplyResult is the outcome of a voucher application. Message is meant to be
// shown to the cashier as-is, on success and on failure. Err carries the
// failure cause (voucher.ErrNotFound, *voucher.MinimumNotMetError or
// *LookupError) and is nil on success.
type ApplyResult struct {
	Success bool
	Message string
	Err     error
}

// ApplyVoucherByCode looks up a voucher by code (case-insensitive) and
// applies it, replacing any voucher already applied. Failures leave the
// applied voucher unchanged.
func (c *Cart) ApplyVoucherByCode(ctx context.Context, code string) ApplyResult {
	code = strings.TrimSpace(code)
	if code == "" || c.vouchers == nil {
		return ApplyResult{
			Message: fmt.Sprintf("Voucher code %q not found", code),
			Err:     voucher.ErrNotFound,
		}
	}

	v, err := c.vouchers.FindByCode(ctx, code)
	if err != nil {
		return lookupFailed(err)
	}
	if v == nil {
		return ApplyResult{
			Message: fmt.Sprintf("Voucher code %q not found", code),
			Err:     voucher.ErrNotFound,
		}
	}
	return c.apply(v)
}

// ApplyVoucherByGUID is ApplyVoucherByCode keyed by the GUID encoded in a
// voucher QR code.
func (c *Cart) ApplyVoucherByGUID(ctx context.Context, guid string) ApplyResult {
	guid = strings.TrimSpace(guid)
	if guid == "" || c.vouchers == nil {
		return notAVoucherQR()
	}

	v, err := c.vouchers.FindByGUID(ctx, guid)
	if err != nil {
		return lookupFailed(err)
	}
	if v == nil {
		return notAVoucherQR()
	}
	return c.apply(v)
}

// RemoveVoucher clears the applied voucher.
func (c *Cart) RemoveVoucher() {
	c.voucher = nil
}

func (c *Cart) apply(v *voucher.Voucher) ApplyResult {
	if err := v.CheckMinimum(c.Subtotal()); err != nil {
		return ApplyResult{
			Message: fmt.Sprintf("Voucher %s requires a minimum order of %s",
				v.Code, c.formatter.Format(v.MinimumOrderAmount.Decimal)),
			Err: err,
		}
	}

	cp := *v
	c.voucher = &cp
	return ApplyResult{
		Success: true,
		Message: fmt.Sprintf("Voucher %s applied", v.Code),
	}
}

func notAVoucherQR() ApplyResult {
	return ApplyResult{
		Message: "Scanned code is not a valid voucher QR",
		Err:     voucher.ErrNotFound,
	}
}

func lookupFailed(err error) ApplyResult {
	return ApplyResult{
		Message: "Voucher could not be checked, please try again",
		Err:     &LookupError{Err: err},
	}
}
