// Package wire encodes and decodes the JSON payloads of the till API, the
// payment gateway and the order broker messages.
package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// TimeLayout is ISO 8601 in UTC with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Marshal runs fn on a pooled encoder and returns a copy of the output.
func Marshal(fn func(e *jx.Encoder)) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)
	return append([]byte(nil), e.Bytes()...)
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.InexactFloat64())
}

func encodeNullDecimal(e *jx.Encoder, d decimal.NullDecimal) {
	if !d.Valid {
		e.Null()
		return
	}
	encodeDecimal(e, d.Decimal)
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(TimeLayout))
}

// encodeOptStr writes s, or null when s is empty.
func encodeOptStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}

// decodeDecimal accepts numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		f, err := d.Float64()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromFloat(f), nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, errors.Wrapf(err, "parse amount %q", s)
		}
		return v, nil
	default:
		return decimal.Decimal{}, errors.Errorf("expected amount, got %v", d.Next())
	}
}

func decodeNullDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

// decodeOptStr reads a string, treating null as "".
func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}
	return t, nil
}
