package wire

import (
	"maps"
	"slices"

	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/settings"
	"github.com/xenking/pos-till/internal/till"
)

// EncodeView writes the cart and checkout state of a till.
func EncodeView(e *jx.Encoder, v till.View) {
	e.ObjStart()
	e.FieldStart("tillId")
	e.Str(v.TillID)
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range v.Cart.Items {
		e.ObjStart()
		e.FieldStart("product")
		EncodeProduct(e, &item.Product)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("lineTotal")
		encodeDecimal(e, item.LineTotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("itemCount")
	e.Int(v.Cart.ItemCount)
	e.FieldStart("subtotal")
	encodeDecimal(e, v.Cart.Subtotal)
	e.FieldStart("discount")
	encodeDecimal(e, v.Cart.Discount)
	e.FieldStart("total")
	encodeDecimal(e, v.Cart.Total)
	e.FieldStart("voucher")
	if v.Cart.Voucher != nil {
		EncodeVoucher(e, v.Cart.Voucher)
	} else {
		e.Null()
	}
	e.FieldStart("customerId")
	encodeOptStr(e, v.Cart.CustomerID)
	e.FieldStart("checkout")
	e.ObjStart()
	e.FieldStart("state")
	e.Str(string(v.Checkout))
	e.FieldStart("orderId")
	encodeOptStr(e, v.PendingOrderID)
	e.ObjEnd()
	e.ObjEnd()
}

// EncodeApplyResult writes the {success, message} result of a voucher
// application together with the resulting cart.
func EncodeApplyResult(e *jx.Encoder, res cart.ApplyResult, v till.View) {
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(res.Success)
	e.FieldStart("message")
	e.Str(res.Message)
	e.FieldStart("cart")
	EncodeView(e, v)
	e.ObjEnd()
}

// EncodeScanResult writes the outcome of a scanned code.
func EncodeScanResult(e *jx.Encoder, res till.ScanResult) {
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(string(res.Kind))
	e.FieldStart("success")
	e.Bool(res.Success)
	e.FieldStart("message")
	e.Str(res.Message)
	if res.Product != nil {
		e.FieldStart("product")
		EncodeProduct(e, res.Product)
	}
	e.FieldStart("cart")
	EncodeView(e, res.View)
	e.ObjEnd()
}

// EncodeDevice writes one peripheral status.
func EncodeDevice(e *jx.Encoder, s till.DeviceStatus) {
	e.ObjStart()
	e.FieldStart("device")
	e.Str(string(s.Kind))
	e.FieldStart("state")
	e.Str(string(s.State))
	e.FieldStart("ready")
	e.Bool(s.Ready)
	e.ObjEnd()
}

// EncodeDevices writes peripheral statuses as an array.
func EncodeDevices(e *jx.Encoder, ss []till.DeviceStatus) {
	e.ArrStart()
	for _, s := range ss {
		EncodeDevice(e, s)
	}
	e.ArrEnd()
}

// EncodeSettings writes the gateway configuration and whether it is complete.
func EncodeSettings(e *jx.Encoder, cfg settings.Config) {
	e.ObjStart()
	e.FieldStart("serviceCode")
	e.Str(cfg.ServiceCode)
	e.FieldStart("posAppId")
	e.Str(cfg.PosAppID)
	e.FieldStart("apiUrl")
	e.Str(cfg.APIURL)
	e.FieldStart("configured")
	e.Bool(cfg.Check() == nil)
	e.ObjEnd()
}

// EncodeError writes an API error body. fields may be nil.
func EncodeError(e *jx.Encoder, message string, fields map[string]string) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(message)
	if len(fields) > 0 {
		e.FieldStart("fields")
		e.ObjStart()
		for _, k := range slices.Sorted(maps.Keys(fields)) {
			e.FieldStart(k)
			e.Str(fields[k])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
}
