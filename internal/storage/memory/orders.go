package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-till/internal/domain/order"
)

var _ order.Repository = (*Orders)(nil)

// Orders is an in-memory order history.
type Orders struct {
	mu     sync.RWMutex
	orders []*order.Order
	byID   map[string]*order.Order
}

// NewOrders creates an empty history.
func NewOrders() *Orders {
	return &Orders{byID: make(map[string]*order.Order)}
}

// Create appends o.
func (r *Orders) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; ok {
		return errors.Wrapf(order.ErrDuplicate, "%s", o.ID)
	}
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	r.orders = append(r.orders, &cp)
	r.byID[cp.ID] = &cp
	return nil
}

// Get returns the order with id or order.ErrNotFound.
func (r *Orders) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// List returns the orders of tillID, newest first.
func (r *Orders) List(_ context.Context, tillID string, limit int) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []order.Order{}
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].TillID != tillID {
			continue
		}
		out = append(out, *r.orders[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
