// Package money formats monetary amounts for display on the till, receipts
// and user-facing messages.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts in a single currency using locale-aware digit
// grouping.
type Formatter struct {
	printer *message.Printer
	symbol  string
	places  int32
}

// NewFormatter creates a Formatter for the given locale, currency symbol and
// number of fraction digits.
func NewFormatter(tag language.Tag, symbol string, places int32) *Formatter {
	return &Formatter{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
		places:  places,
	}
}

// VND returns the formatter used by default: Vietnamese grouping, no fraction
// digits, trailing dong sign ("100.000 ₫").
func VND() *Formatter {
	return NewFormatter(language.Vietnamese, "₫", 0)
}

// Format renders amount rounded to the formatter's precision.
func (f *Formatter) Format(amount decimal.Decimal) string {
	rounded := amount.Round(f.places)
	var n any
	if f.places == 0 {
		n = rounded.IntPart()
	} else {
		n = rounded.InexactFloat64()
	}
	s := f.printer.Sprint(number.Decimal(n,
		number.MinFractionDigits(int(f.places)),
		number.MaxFractionDigits(int(f.places)),
	))
	if f.symbol == "" {
		return s
	}
	return s + " " + f.symbol
}
