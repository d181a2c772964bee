package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
)

type staticVouchers struct{ v voucher.Voucher }

func (s staticVouchers) FindByCode(context.Context, string) (*voucher.Voucher, error) {
	return &s.v, nil
}

func (s staticVouchers) FindByGUID(context.Context, string) (*voucher.Voucher, error) {
	return &s.v, nil
}

func TestBuild(t *testing.T) {
	c := cart.New(cart.WithVouchers(staticVouchers{v: voucher.Voucher{
		Code:  "GIAM25K",
		GUID:  "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		Type:  voucher.TypeFixed,
		Value: decimal.NewFromInt(25000),
	}}))
	p := product.Product{ID: "1", Name: "Cà phê sữa đá", Price: decimal.NewFromInt(60000), Stock: 50}
	require.NoError(t, c.AddItem(p, 2))
	c.SetCustomerID("0901234567")
	require.True(t, c.ApplyVoucherByCode(context.Background(), "GIAM25K").Success)

	paid, err := payment.Settle(payment.Cash{Received: decimal.NewFromInt(100000)}, c.Total())
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("ICT", 7*3600))
	o, err := Build("0b5e1c9a-3d4f-4a8e-9c1b-7f2e6d5a4b3c", "till-1", c.Snapshot(), paid, now)
	require.NoError(t, err)

	c.Clear()

	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, "till-1", o.TillID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Cà phê sữa đá", o.Items[0].Name)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "120000", o.Subtotal.String())
	assert.Equal(t, "25000", o.Discount.String())
	assert.Equal(t, "95000", o.Total.String())
	assert.Equal(t, "GIAM25K", o.VoucherCode)
	assert.Equal(t, payment.KindCash, o.PaymentMethod)
	require.True(t, o.Change.Valid)
	assert.Equal(t, "5000", o.Change.Decimal.String())
	assert.Equal(t, "0901234567", o.CustomerID)
	assert.Equal(t, time.UTC, o.Timestamp.Location())
	assert.True(t, now.Equal(o.Timestamp))
	assert.Equal(t, "5a4b3c", o.ShortID())
	assert.Equal(t, 2, o.ItemCount())
}

func TestBuild_EmptyCart(t *testing.T) {
	_, err := Build("id", "till-1", cart.New().Snapshot(), payment.Details{Method: payment.KindCard}, time.Now())
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", (&Order{ID: "abc"}).ShortID())
	assert.Equal(t, "456789", (&Order{ID: "0123456789"}).ShortID())
}
