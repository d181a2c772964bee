package wire

import (
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-till/db"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/domain/voucher"
)

func TestDecodeProducts_Seed(t *testing.T) {
	products, err := DecodeProducts(db.Products)
	require.NoError(t, err)
	require.Len(t, products, 8)

	first := products[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Cà phê Espresso", first.Name)
	assert.True(t, decimal.NewFromInt(60000).Equal(first.Price))
	assert.Equal(t, "Cà phê", first.Category)
	assert.Equal(t, 50, first.Stock)
	assert.Equal(t, "1234567890123", first.Barcode)

	seen := map[string]bool{}
	for _, p := range products {
		assert.False(t, seen[p.Barcode], "duplicate barcode %s", p.Barcode)
		seen[p.Barcode] = true
	}
}

func TestDecodeVouchers_Seed(t *testing.T) {
	vouchers, err := DecodeVouchers(db.Vouchers)
	require.NoError(t, err)
	require.Len(t, vouchers, 3)

	assert.Equal(t, "GIAM25K", vouchers[0].Code)
	assert.Equal(t, "f47ac10b-58cc-4372-a567-0e02b2c3d479", vouchers[0].GUID)
	assert.Equal(t, voucher.TypeFixed, vouchers[0].Type)
	assert.Equal(t, voucher.TypePercentage, vouchers[2].Type)
	assert.False(t, vouchers[0].MinimumOrderAmount.Valid)
}

func TestDecodeVouchers_Invalid(t *testing.T) {
	_, err := DecodeVouchers([]byte(`[{"code":"X","guid":"g","type":"bogus","value":1}]`))
	require.Error(t, err)

	_, err = DecodeVouchers([]byte(`[{"guid":"g","type":"fixed","value":1}]`))
	require.Error(t, err)

	vs, err := DecodeVouchers([]byte(`[{"code":"MIN","guidId":"g","type":"fixed","value":"15000","minimumOrderAmount":100000}]`))
	require.NoError(t, err)
	require.True(t, vs[0].MinimumOrderAmount.Valid)
	assert.True(t, decimal.NewFromInt(100000).Equal(vs[0].MinimumOrderAmount.Decimal))
	assert.True(t, decimal.NewFromInt(15000).Equal(vs[0].Value))
}

func TestOrderRoundTrip(t *testing.T) {
	in := &order.Order{
		ID:     "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		TillID: "till-1",
		Items: []order.Item{
			{ProductID: "1", Name: "Cà phê Espresso", UnitPrice: decimal.NewFromInt(60000), Quantity: 2},
		},
		Subtotal:      decimal.NewFromInt(120000),
		Discount:      decimal.NewFromInt(12000),
		VoucherCode:   "GIAM10",
		Total:         decimal.NewFromInt(108000),
		PaymentMethod: payment.KindCash,
		Change:        decimal.NewNullDecimal(decimal.NewFromInt(2000)),
		Timestamp:     time.Date(2026, 2, 14, 8, 15, 30, 123000000, time.UTC),
		Status:        order.StatusCompleted,
		CustomerID:    "0901234567",
	}

	out, err := DecodeOrder(Marshal(func(e *jx.Encoder) { EncodeOrder(e, in) }))
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.TillID, out.TillID)
	require.Len(t, out.Items, 1)
	assert.Equal(t, in.Items[0].Name, out.Items[0].Name)
	assert.True(t, in.Items[0].UnitPrice.Equal(out.Items[0].UnitPrice))
	assert.True(t, in.Total.Equal(out.Total))
	assert.True(t, in.Change.Decimal.Equal(out.Change.Decimal))
	assert.Equal(t, in.VoucherCode, out.VoucherCode)
	assert.Equal(t, in.PaymentMethod, out.PaymentMethod)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, in.CustomerID, out.CustomerID)

	in.Change = decimal.NullDecimal{}
	in.VoucherCode = ""
	out, err = DecodeOrder(Marshal(func(e *jx.Encoder) { EncodeOrder(e, in) }))
	require.NoError(t, err)
	assert.False(t, out.Change.Valid)
	assert.Empty(t, out.VoucherCode)
}

func TestEncodeChargeRequest(t *testing.T) {
	req := payment.Request{
		OrderID:     "order-1",
		Amount:      decimal.NewFromInt(75000),
		PromotionID: "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		OrderDate:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("ICT", 7*3600)),
	}

	body := Marshal(func(e *jx.Encoder) { EncodeChargeRequest(e, req) })
	assert.JSONEq(t, `{
		"cardNumber": "UNKNOWN",
		"amount": 75000,
		"promotionId": "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		"orderId": "order-1",
		"orderDate": "2026-01-01T20:04:05.000Z"
	}`, string(body))

	req.CustomerID = "CARD-1"
	req.PromotionID = ""
	body = Marshal(func(e *jx.Encoder) { EncodeChargeRequest(e, req) })
	assert.JSONEq(t, `{
		"cardNumber": "CARD-1",
		"amount": 75000,
		"promotionId": null,
		"orderId": "order-1",
		"orderDate": "2026-01-01T20:04:05.000Z"
	}`, string(body))
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{body: `{"message":"Invalid service code"}`, want: "Invalid service code"},
		{body: `{"code":42,"detail":{"message":"nested"},"message":"top"}`, want: "top"},
		{body: `{"message":null}`, want: ""},
		{body: `<html>502 Bad Gateway</html>`, want: ""},
		{body: ``, want: ""},
		{body: `["message"]`, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeMessage([]byte(tt.body)), tt.body)
	}
}

func TestDecodeRequests(t *testing.T) {
	add, err := DecodeAddItem([]byte(`{"productId":"3"}`))
	require.NoError(t, err)
	assert.Equal(t, AddItemRequest{ProductID: "3", Quantity: 1}, add)

	_, err = DecodeAddItem([]byte(`{"productId":3}`))
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = DecodeAddItem(nil)
	require.ErrorIs(t, err, ErrBadRequest)

	q, err := DecodeQuantity([]byte(`{"quantity":0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, q.Quantity)
	_, err = DecodeQuantity([]byte(`{}`))
	require.ErrorIs(t, err, ErrBadRequest)

	c, err := DecodeCustomer([]byte(`{"customerId":null}`))
	require.NoError(t, err)
	assert.Empty(t, c.CustomerID)

	v, err := DecodeVoucherRequest([]byte(`{"guid":"a1b2c3d4-e5f6-7890-1234-567890abcdef"}`))
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4-e5f6-7890-1234-567890abcdef", v.GUID)
	assert.Empty(t, v.Code)

	p, err := DecodePayment([]byte(`{"method":"cash","cashReceived":100000}`))
	require.NoError(t, err)
	assert.Equal(t, "cash", p.Method)
	assert.True(t, decimal.NewFromInt(100000).Equal(p.CashReceived))

	patch, err := DecodeSettingsPatch([]byte(`{"posAppId":"APP","apiUrl":""}`))
	require.NoError(t, err)
	assert.Nil(t, patch.ServiceCode)
	require.NotNil(t, patch.PosAppID)
	assert.Equal(t, "APP", *patch.PosAppID)
	require.NotNil(t, patch.APIURL)
	assert.Empty(t, *patch.APIURL)
}
