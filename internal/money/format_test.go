package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestVND_Format(t *testing.T) {
	f := VND()

	tests := []struct {
		amount decimal.Decimal
		want   string
	}{
		{amount: decimal.NewFromInt(100000), want: "100.000 ₫"},
		{amount: decimal.NewFromInt(25000), want: "25.000 ₫"},
		{amount: decimal.NewFromInt(0), want: "0 ₫"},
		{amount: decimal.RequireFromString("999.6"), want: "1.000 ₫"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.amount))
		})
	}
}

func TestFormatter_FractionDigits(t *testing.T) {
	f := NewFormatter(language.AmericanEnglish, "", 2)
	assert.Equal(t, "1,234.50", f.Format(decimal.RequireFromString("1234.5")))
}
