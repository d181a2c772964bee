package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/domain/payment"
)

// UnknownCardNumber is sent when the sale has no customer id.
const UnknownCardNumber = "UNKNOWN"

// EncodeChargeRequest writes the body of a gateway earn call.
func EncodeChargeRequest(e *jx.Encoder, req payment.Request) {
	card := req.CustomerID
	if card == "" {
		card = UnknownCardNumber
	}
	e.ObjStart()
	e.FieldStart("cardNumber")
	e.Str(card)
	e.FieldStart("amount")
	encodeDecimal(e, req.Amount)
	e.FieldStart("promotionId")
	encodeOptStr(e, req.PromotionID)
	e.FieldStart("orderId")
	e.Str(req.OrderID)
	e.FieldStart("orderDate")
	encodeTime(e, req.OrderDate)
	e.ObjEnd()
}

// DecodeMessage extracts the top-level "message" string of a gateway
// response. It returns "" for bodies that are not JSON objects or carry no
// message.
func DecodeMessage(data []byte) string {
	var msg string
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key == "message" && d.Next() == jx.String {
			s, err := d.Str()
			if err != nil {
				return err
			}
			msg = s
			return nil
		}
		return d.Skip()
	})
	if err != nil {
		return ""
	}
	return msg
}
