package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
)

// MaxQuantity bounds the quantity of a single line.
const MaxQuantity = 9999

var (
	// ErrInvalidQuantity is returned when AddItem is called with a quantity
	// below one.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrQuantityLimit is returned when a line would exceed MaxQuantity.
	ErrQuantityLimit = errors.New("quantity exceeds the per-line limit")
)

// Item is one cart line. The product is a copy of catalog data and is never
// modified by the cart.
type Item struct {
	Product  product.Product
	Quantity int
}

// LineTotal returns price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart owns the items, the applied voucher and the customer id of one till.
// All totals are derived on read. A Cart is not safe for concurrent use; the
// owning session serialises access.
type Cart struct {
	items      []Item
	voucher    *voucher.Voucher
	customerID string

	vouchers  voucher.Catalog
	stock     StockPolicy
	formatter AmountFormatter
}

// New creates an empty cart.
func New(opts ...Option) *Cart {
	c := &Cart{formatter: defaultFormatter{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem adds quantity units of p. An existing line for the same product
// has its quantity increased; otherwise a new line is appended.
func (c *Cart) AddItem(p product.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > MaxQuantity {
		return errors.Wrapf(ErrQuantityLimit, "%d > %d", quantity, MaxQuantity)
	}

	idx := c.indexOf(p.ID)
	next := quantity
	if idx >= 0 {
		// Both terms are within [1, MaxQuantity], so the sum cannot overflow.
		next += c.items[idx].Quantity
	}
	if next > MaxQuantity {
		return errors.Wrapf(ErrQuantityLimit, "%d > %d", next, MaxQuantity)
	}
	if c.stock != nil {
		if err := c.stock.Check(p, next); err != nil {
			return err
		}
	}

	if idx >= 0 {
		c.items[idx].Quantity = next
		return nil
	}
	c.items = append(c.items, Item{Product: p, Quantity: quantity})
	return nil
}

// RemoveItem deletes the line for productID. Missing products are ignored.
func (c *Cart) RemoveItem(productID string) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}

// UpdateQuantity sets the quantity of productID. A quantity of zero or less
// removes the line; one above MaxQuantity is rejected. Products not in the
// cart are ignored.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return nil
	}
	if quantity > MaxQuantity {
		return errors.Wrapf(ErrQuantityLimit, "%d > %d", quantity, MaxQuantity)
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		return nil
	}
	if c.stock != nil {
		if err := c.stock.Check(c.items[idx].Product, quantity); err != nil {
			return err
		}
	}
	c.items[idx].Quantity = quantity
	return nil
}

// Clear resets items, applied voucher and customer id together.
func (c *Cart) Clear() {
	c.items = nil
	c.voucher = nil
	c.customerID = ""
}

// SetCustomerID replaces the customer identifier. An empty id clears it.
func (c *Cart) SetCustomerID(id string) {
	c.customerID = id
}

// CustomerID returns the customer identifier, or "" when none is set.
func (c *Cart) CustomerID() string {
	return c.customerID
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the line for productID.
func (c *Cart) Item(productID string) (Item, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return Item{}, false
	}
	return c.items[idx], true
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// ItemCount returns the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Subtotal returns Σ price × quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Discount returns the applied voucher's discount on the current subtotal.
func (c *Cart) Discount() decimal.Decimal {
	return voucher.Discount(c.voucher, c.Subtotal())
}

// Total returns subtotal minus discount.
func (c *Cart) Total() decimal.Decimal {
	subtotal := c.Subtotal()
	return subtotal.Sub(voucher.Discount(c.voucher, subtotal))
}

// AppliedVoucher returns the applied voucher or nil.
func (c *Cart) AppliedVoucher() *voucher.Voucher {
	return c.voucher
}

// Snapshot captures the cart and its derived totals at one instant.
type Snapshot struct {
	Items      []Item
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	ItemCount  int
	Voucher    *voucher.Voucher
	CustomerID string
}

// Snapshot returns a consistent copy of the cart state.
func (c *Cart) Snapshot() Snapshot {
	subtotal := c.Subtotal()
	discount := voucher.Discount(c.voucher, subtotal)
	var v *voucher.Voucher
	if c.voucher != nil {
		cp := *c.voucher
		v = &cp
	}
	return Snapshot{
		Items:      c.Items(),
		Subtotal:   subtotal,
		Discount:   discount,
		Total:      subtotal.Sub(discount),
		ItemCount:  c.ItemCount(),
		Voucher:    v,
		CustomerID: c.customerID,
	}
}

func (c *Cart) indexOf(productID string) int {
	for i, item := range c.items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}
