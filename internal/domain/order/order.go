package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-till/internal/domain/payment"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicate is returned when an order id is stored twice.
	ErrDuplicate = errors.New("order already exists")
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Item is a line of an order, copied from the cart at checkout time.
type Item struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns unit price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the immutable record of a completed sale.
type Order struct {
	ID            string
	TillID        string
	Items         []Item
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	VoucherCode   string
	Total         decimal.Decimal
	PaymentMethod payment.Kind
	// Change is set for cash payments only.
	Change     decimal.NullDecimal
	Timestamp  time.Time
	Status     Status
	CustomerID string
}

// ShortID is the last six characters of the order id, as printed on
// receipts.
func (o *Order) ShortID() string {
	if len(o.ID) <= 6 {
		return o.ID
	}
	return o.ID[len(o.ID)-6:]
}

// ItemCount returns the sum of line quantities.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Repository persists completed orders. List returns the orders of one till,
// newest first, at most limit of them (limit ≤ 0 means all).
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, tillID string, limit int) ([]Order, error)
}

// Notifier is told about every completed order.
type Notifier interface {
	Publish(ctx context.Context, o *Order) error
}
