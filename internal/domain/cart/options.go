package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-till/internal/domain/voucher"
)

// AmountFormatter renders a monetary amount for user-facing messages.
type AmountFormatter interface {
	Format(amount decimal.Decimal) string
}

type defaultFormatter struct{}

func (defaultFormatter) Format(amount decimal.Decimal) string {
	return amount.StringFixed(0)
}

// Option configures a Cart.
type Option func(*Cart)

// WithVouchers sets the catalog used by ApplyVoucherByCode and
// ApplyVoucherByGUID.
func WithVouchers(catalog voucher.Catalog) Option {
	return func(c *Cart) {
		c.vouchers = catalog
	}
}

// WithStockPolicy installs a policy consulted whenever a line quantity grows
// or is set.
func WithStockPolicy(p StockPolicy) Option {
	return func(c *Cart) {
		c.stock = p
	}
}

// WithFormatter sets the formatter used for amounts in voucher messages.
func WithFormatter(f AmountFormatter) Option {
	return func(c *Cart) {
		if f != nil {
			c.formatter = f
		}
	}
}
