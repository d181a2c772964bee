package order

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-till/internal/domain/cart"
	"github.com/xenking/pos-till/internal/domain/payment"
)

// ErrEmptyItems is returned when building an order without lines.
var ErrEmptyItems = errors.New("items required")

// Build snapshots a cart into a completed order. Lines are copied so later
// cart mutations cannot reach the order.
func Build(id, tillID string, snap cart.Snapshot, paid payment.Details, now time.Time) (*Order, error) {
	if len(snap.Items) == 0 {
		return nil, ErrEmptyItems
	}

	items := make([]Item, len(snap.Items))
	for i, line := range snap.Items {
		items[i] = Item{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			UnitPrice: line.Product.Price,
			Quantity:  line.Quantity,
		}
	}

	o := &Order{
		ID:            id,
		TillID:        tillID,
		Items:         items,
		Subtotal:      snap.Subtotal,
		Discount:      snap.Discount,
		Total:         snap.Total,
		PaymentMethod: paid.Method,
		Change:        paid.Change,
		Timestamp:     now.UTC(),
		Status:        StatusCompleted,
		CustomerID:    snap.CustomerID,
	}
	if snap.Voucher != nil {
		o.VoucherCode = snap.Voucher.Code
	}
	return o, nil
}
