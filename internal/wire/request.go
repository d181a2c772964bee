package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-till/internal/settings"
)

// ErrBadRequest wraps every request decoding failure.
var ErrBadRequest = errors.New("malformed request body")

// AddItemRequest is the body of POST …/cart/items. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=9999"`
}

// QuantityRequest is the body of PUT …/cart/items/{productId}.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=9999"`
}

// CustomerRequest is the body of PUT …/cart/customer. Null clears the id.
type CustomerRequest struct {
	CustomerID string `json:"customerId"`
}

// VoucherRequest is the body of POST …/cart/voucher. Exactly one of Code and
// GUID is set.
type VoucherRequest struct {
	Code string `json:"code" validate:"required_without=GUID,excluded_with=GUID"`
	GUID string `json:"guid" validate:"required_without=Code"`
}

// ScanRequest is the body of POST …/scan.
type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}

// PaymentRequest is the body of POST …/checkout/payment.
type PaymentRequest struct {
	Method       string          `json:"method" validate:"required,oneof=cash card digital"`
	CashReceived decimal.Decimal `json:"cashReceived"`
}

// decodeObject runs fn for every key of the object in data.
func decodeObject(data []byte, fn func(d *jx.Decoder, key string) error) error {
	if len(data) == 0 {
		return errors.Wrap(ErrBadRequest, "empty body")
	}
	if err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if err := fn(d, key); err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	}); err != nil {
		return errors.Wrap(ErrBadRequest, err.Error())
	}
	return nil
}

// DecodeAddItem parses an AddItemRequest.
func DecodeAddItem(data []byte) (AddItemRequest, error) {
	req := AddItemRequest{Quantity: 1}
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// DecodeQuantity parses a QuantityRequest.
func DecodeQuantity(data []byte) (QuantityRequest, error) {
	var req QuantityRequest
	seen := false
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		var err error
		req.Quantity, err = d.Int()
		return err
	})
	if err == nil && !seen {
		err = errors.Wrap(ErrBadRequest, "quantity is required")
	}
	return req, err
}

// DecodeCustomer parses a CustomerRequest.
func DecodeCustomer(data []byte) (CustomerRequest, error) {
	var req CustomerRequest
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		if key != "customerId" {
			return d.Skip()
		}
		var err error
		req.CustomerID, err = decodeOptStr(d)
		return err
	})
	return req, err
}

// DecodeVoucherRequest parses a VoucherRequest.
func DecodeVoucherRequest(data []byte) (VoucherRequest, error) {
	var req VoucherRequest
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			req.Code, err = decodeOptStr(d)
		case "guid":
			req.GUID, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// DecodeScan parses a ScanRequest.
func DecodeScan(data []byte) (ScanRequest, error) {
	var req ScanRequest
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		var err error
		req.Code, err = d.Str()
		return err
	})
	return req, err
}

// DecodePayment parses a PaymentRequest.
func DecodePayment(data []byte) (PaymentRequest, error) {
	var req PaymentRequest
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "method":
			req.Method, err = d.Str()
		case "cashReceived":
			var v decimal.NullDecimal
			v, err = decodeNullDecimal(d)
			req.CashReceived = v.Decimal
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// DecodeSettingsPatch parses a partial gateway configuration. Absent fields
// stay nil.
func DecodeSettingsPatch(data []byte) (settings.Patch, error) {
	var p settings.Patch
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var target **string
		switch key {
		case "serviceCode":
			target = &p.ServiceCode
		case "posAppId":
			target = &p.PosAppID
		case "apiUrl":
			target = &p.APIURL
		default:
			return d.Skip()
		}
		s, err := decodeOptStr(d)
		if err != nil {
			return err
		}
		*target = &s
		return nil
	})
	return p, err
}
