// Package receipt renders completed orders as fixed-width text receipts and
// sends them to printers.
package receipt

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
)

// DefaultWidth fits 58mm thermal paper.
const DefaultWidth = 32

// AmountFormatter renders monetary amounts.
type AmountFormatter interface {
	Format(amount decimal.Decimal) string
}

// Formatter lays out receipts.
type Formatter struct {
	Width     int
	StoreName string
	Money     AmountFormatter
	Location  *time.Location
}

var methodLabels = map[payment.Kind]string{
	payment.KindCash:    "Cash",
	payment.KindCard:    "Card",
	payment.KindDigital: "Digital wallet",
}

// Format renders o.
func (f *Formatter) Format(o *order.Order) string {
	w := f.Width
	if w <= 0 {
		w = DefaultWidth
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	money := f.amount

	var lines []string
	lines = append(lines, strings.Repeat("═", w))
	if f.StoreName != "" {
		lines = append(lines, center(f.StoreName, w))
		lines = append(lines, strings.Repeat("═", w))
	}
	lines = append(lines, row("Order", "#"+o.ShortID(), w))
	lines = append(lines, row("Date", o.Timestamp.In(loc).Format("02/01/2006 15:04"), w))
	if o.CustomerID != "" {
		lines = append(lines, row("Customer", o.CustomerID, w))
	}
	lines = append(lines, strings.Repeat("─", w))

	for _, item := range o.Items {
		lines = append(lines, truncate(item.Name, w))
		lines = append(lines, row(
			fmt.Sprintf("  %d x %s", item.Quantity, money(item.UnitPrice)),
			money(item.LineTotal()),
			w,
		))
	}

	lines = append(lines, strings.Repeat("─", w))
	lines = append(lines, row("Subtotal", money(o.Subtotal), w))
	if o.Discount.IsPositive() {
		label := "Discount"
		if o.VoucherCode != "" {
			label = fmt.Sprintf("Discount (%s)", o.VoucherCode)
		}
		lines = append(lines, row(label, "-"+money(o.Discount), w))
	}
	lines = append(lines, strings.Repeat("─", w))
	lines = append(lines, row("TOTAL", money(o.Total), w))

	label, ok := methodLabels[o.PaymentMethod]
	if !ok {
		label = string(o.PaymentMethod)
	}
	lines = append(lines, row("Payment", label, w))
	if o.Change.Valid {
		lines = append(lines, row("Change", money(o.Change.Decimal), w))
	}
	lines = append(lines, strings.Repeat("═", w))
	lines = append(lines, center("Thank you!", w))
	lines = append(lines, strings.Repeat("═", w))

	return strings.Join(lines, "\n") + "\n"
}

func (f *Formatter) amount(d decimal.Decimal) string {
	if f.Money == nil {
		return d.StringFixed(0)
	}
	return f.Money.Format(d)
}

// row puts left and right on one line, right-aligned to width.
func row(left, right string, width int) string {
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(s string, width int) string {
	s = truncate(s, width)
	pad := (width - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
