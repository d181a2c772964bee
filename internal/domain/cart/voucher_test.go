package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-till/internal/domain/voucher"
	"github.com/xenking/pos-till/internal/money"
)

func TestApplyVoucherByCode(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		price        int64
		quantity     int
		code         string
		wantSuccess  bool
		wantErr      error
		wantDiscount string
		wantTotal    string
	}{
		{
			name:         "fixed voucher",
			price:        100000,
			quantity:     1,
			code:         "GIAM25K",
			wantSuccess:  true,
			wantDiscount: "25000",
			wantTotal:    "75000",
		},
		{
			name:         "percentage voucher",
			price:        100000,
			quantity:     2,
			code:         "GIAM10",
			wantSuccess:  true,
			wantDiscount: "20000",
			wantTotal:    "180000",
		},
		{
			name:         "code is case-insensitive",
			price:        100000,
			quantity:     1,
			code:         "giam25k",
			wantSuccess:  true,
			wantDiscount: "25000",
			wantTotal:    "75000",
		},
		{
			name:         "fixed discount clamped to subtotal",
			price:        10000,
			quantity:     1,
			code:         "GIAM25K",
			wantSuccess:  true,
			wantDiscount: "10000",
			wantTotal:    "0",
		},
		{
			name:         "unknown code",
			price:        100000,
			quantity:     1,
			code:         "NOPE",
			wantErr:      voucher.ErrNotFound,
			wantDiscount: "0",
			wantTotal:    "100000",
		},
		{
			name:         "minimum not met",
			price:        50000,
			quantity:     1,
			code:         "MIN100K",
			wantErr:      voucher.ErrMinimumNotMet,
			wantDiscount: "0",
			wantTotal:    "50000",
		},
		{
			name:         "minimum met exactly",
			price:        50000,
			quantity:     2,
			code:         "MIN100K",
			wantSuccess:  true,
			wantDiscount: "15000",
			wantTotal:    "85000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithVouchers(testVouchers()))
			require.NoError(t, c.AddItem(newTestProduct("p", tt.price, 100), tt.quantity))

			res := c.ApplyVoucherByCode(ctx, tt.code)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.NotEmpty(t, res.Message)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(res.Err, tt.wantErr), "got %v", res.Err)
				assert.Nil(t, c.AppliedVoucher())
			} else {
				assert.NoError(t, res.Err)
			}
			assertDecimal(t, tt.wantDiscount, c.Discount())
			assertDecimal(t, tt.wantTotal, c.Total())
		})
	}
}

func TestApplyVoucher_MinimumMessageReportsThreshold(t *testing.T) {
	c := New(WithVouchers(testVouchers()), WithFormatter(money.VND()))
	require.NoError(t, c.AddItem(newTestProduct("p", 50000, 10), 1))
	require.True(t, c.ApplyVoucherByCode(context.Background(), "GIAM25K").Success)

	res := c.ApplyVoucherByCode(context.Background(), "MIN100K")

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "100.000 ₫")
	require.NotNil(t, c.AppliedVoucher())
	assert.Equal(t, "GIAM25K", c.AppliedVoucher().Code, "previous voucher stays applied")
}

func TestApplyVoucher_ReplacesNotStacks(t *testing.T) {
	c := New(WithVouchers(testVouchers()))
	require.NoError(t, c.AddItem(newTestProduct("p", 200000, 10), 1))

	require.True(t, c.ApplyVoucherByCode(context.Background(), "GIAM25K").Success)
	require.True(t, c.ApplyVoucherByCode(context.Background(), "GIAM10").Success)

	assert.Equal(t, "GIAM10", c.AppliedVoucher().Code)
	assertDecimal(t, "20000", c.Discount())
}

func TestApplyVoucherByGUID(t *testing.T) {
	c := New(WithVouchers(testVouchers()))
	require.NoError(t, c.AddItem(newTestProduct("p", 100000, 10), 1))

	res := c.ApplyVoucherByGUID(context.Background(), "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	require.True(t, res.Success)
	assert.Equal(t, "GIAM25K", c.AppliedVoucher().Code)

	res = c.ApplyVoucherByGUID(context.Background(), "GIAM10")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not a valid voucher QR")
	assert.ErrorIs(t, res.Err, voucher.ErrNotFound)
	assert.Equal(t, "GIAM25K", c.AppliedVoucher().Code)
}

func TestApplyVoucher_NotFoundMessagesDiffer(t *testing.T) {
	c := New(WithVouchers(testVouchers()))

	byCode := c.ApplyVoucherByCode(context.Background(), "missing")
	byGUID := c.ApplyVoucherByGUID(context.Background(), "missing")

	assert.NotEqual(t, byCode.Message, byGUID.Message)
}

func TestApplyVoucher_LookupError(t *testing.T) {
	dbErr := errors.New("db down")
	c := New(WithVouchers(&fakeVoucherCatalog{err: dbErr}))

	res := c.ApplyVoucherByCode(context.Background(), "GIAM25K")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrLookupFailed)
	assert.ErrorIs(t, res.Err, dbErr)
	var lookupErr *LookupError
	require.ErrorAs(t, res.Err, &lookupErr)
	assert.Nil(t, c.AppliedVoucher())
}

func TestApplyVoucher_DiscountFollowsSubtotal(t *testing.T) {
	c := New(WithVouchers(testVouchers()))
	require.NoError(t, c.AddItem(newTestProduct("p", 100000, 10), 1))
	require.True(t, c.ApplyVoucherByCode(context.Background(), "GIAM10").Success)
	assertDecimal(t, "10000", c.Discount())

	require.NoError(t, c.UpdateQuantity("p", 3))
	assertDecimal(t, "30000", c.Discount())
	assertDecimal(t, "270000", c.Total())
}

func TestRemoveVoucher(t *testing.T) {
	c := New(WithVouchers(testVouchers()))
	require.NoError(t, c.AddItem(newTestProduct("p", 100000, 10), 1))
	require.True(t, c.ApplyVoucherByCode(context.Background(), "GIAM25K").Success)

	c.RemoveVoucher()
	c.RemoveVoucher()

	assert.Nil(t, c.AppliedVoucher())
	assertDecimal(t, "100000", c.Total())
}
