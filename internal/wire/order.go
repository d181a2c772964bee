package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
)

// EncodeOrderItems writes order lines as an array.
func EncodeOrderItems(e *jx.Encoder, items []order.Item) {
	e.ArrStart()
	for _, item := range items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("name")
		e.Str(item.Name)
		e.FieldStart("unitPrice")
		encodeDecimal(e, item.UnitPrice)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("lineTotal")
		encodeDecimal(e, item.LineTotal())
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeOrderItems reads an array written by EncodeOrderItems.
func DecodeOrderItems(d *jx.Decoder) ([]order.Item, error) {
	items := []order.Item{}
	err := d.Arr(func(d *jx.Decoder) error {
		var item order.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "productId":
				item.ProductID, err = d.Str()
			case "name":
				item.Name, err = d.Str()
			case "unitPrice":
				item.UnitPrice, err = decodeDecimal(d)
			case "quantity":
				item.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		}); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode order items")
	}
	return items, nil
}

// EncodeOrder writes o as an object.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("tillId")
	e.Str(o.TillID)
	e.FieldStart("items")
	EncodeOrderItems(e, o.Items)
	e.FieldStart("subtotal")
	encodeDecimal(e, o.Subtotal)
	e.FieldStart("discount")
	encodeDecimal(e, o.Discount)
	e.FieldStart("voucherCode")
	encodeOptStr(e, o.VoucherCode)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.FieldStart("paymentMethod")
	e.Str(string(o.PaymentMethod))
	e.FieldStart("change")
	encodeNullDecimal(e, o.Change)
	e.FieldStart("timestamp")
	encodeTime(e, o.Timestamp)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("customerId")
	encodeOptStr(e, o.CustomerID)
	e.ObjEnd()
}

// EncodeOrders writes orders as an array.
func EncodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		EncodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

// DecodeOrder reads an object written by EncodeOrder.
func DecodeOrder(data []byte) (*order.Order, error) {
	var o order.Order
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "tillId":
			o.TillID, err = d.Str()
		case "items":
			o.Items, err = DecodeOrderItems(d)
		case "subtotal":
			o.Subtotal, err = decodeDecimal(d)
		case "discount":
			o.Discount, err = decodeDecimal(d)
		case "voucherCode":
			o.VoucherCode, err = decodeOptStr(d)
		case "total":
			o.Total, err = decodeDecimal(d)
		case "paymentMethod":
			var s string
			s, err = d.Str()
			o.PaymentMethod = payment.Kind(s)
		case "change":
			o.Change, err = decodeNullDecimal(d)
		case "timestamp":
			o.Timestamp, err = decodeTime(d)
		case "status":
			var s string
			s, err = d.Str()
			o.Status = order.Status(s)
		case "customerId":
			o.CustomerID, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &o, nil
}
