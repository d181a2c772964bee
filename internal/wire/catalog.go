package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
)

// EncodeProduct writes p as an object.
func EncodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("barcode")
	encodeOptStr(e, p.Barcode)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("image")
	e.Str(p.Image)
	e.ObjEnd()
}

// EncodeProducts writes ps as an array.
func EncodeProducts(e *jx.Encoder, ps []product.Product) {
	e.ArrStart()
	for i := range ps {
		EncodeProduct(e, &ps[i])
	}
	e.ArrEnd()
}

// DecodeProduct reads one product object.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "category":
			p.Category, err = d.Str()
		case "stock":
			p.Stock, err = d.Int()
		case "barcode":
			p.Barcode, err = decodeOptStr(d)
		case "description":
			p.Description, err = decodeOptStr(d)
		case "image":
			p.Image, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return product.Product{}, err
	}
	if p.ID == "" {
		return product.Product{}, errors.New("product without id")
	}
	return p, nil
}

// DecodeProducts reads a JSON array of products.
func DecodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return out, nil
}

// EncodeVoucher writes the public part of v.
func EncodeVoucher(e *jx.Encoder, v *voucher.Voucher) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(v.Code)
	e.FieldStart("type")
	e.Str(string(v.Type))
	e.FieldStart("value")
	encodeDecimal(e, v.Value)
	e.FieldStart("minimumOrderAmount")
	encodeNullDecimal(e, v.MinimumOrderAmount)
	e.ObjEnd()
}

// DecodeVoucher reads one voucher object.
func DecodeVoucher(d *jx.Decoder) (voucher.Voucher, error) {
	var v voucher.Voucher
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			v.Code, err = d.Str()
		case "guid", "guidId":
			v.GUID, err = d.Str()
		case "type":
			var s string
			s, err = d.Str()
			v.Type = voucher.Type(s)
		case "value":
			v.Value, err = decodeDecimal(d)
		case "minimumOrderAmount":
			v.MinimumOrderAmount, err = decodeNullDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return voucher.Voucher{}, err
	}
	if v.Code == "" {
		return voucher.Voucher{}, errors.New("voucher without code")
	}
	if !v.Type.Valid() {
		return voucher.Voucher{}, errors.Errorf("voucher %s: unknown type %q", v.Code, v.Type)
	}
	return v, nil
}

// DecodeVouchers reads a JSON array of vouchers.
func DecodeVouchers(data []byte) ([]voucher.Voucher, error) {
	var out []voucher.Voucher
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		v, err := DecodeVoucher(d)
		if err != nil {
			return errors.Wrapf(err, "voucher %d", len(out))
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode vouchers")
	}
	return out, nil
}

// EncodeStrings writes a string array.
func EncodeStrings(e *jx.Encoder, ss []string) {
	e.ArrStart()
	for _, s := range ss {
		e.Str(s)
	}
	e.ArrEnd()
}
