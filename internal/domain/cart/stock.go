package cart

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-till/internal/domain/product"
)

// ErrInsufficientStock is matched by every InsufficientStockError.
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError reports a line quantity above the product's stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, only %d in stock", e.ProductID, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) succeed.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockPolicy decides whether a line may hold quantity units of p. Without a
// policy the cart treats stock as advisory.
type StockPolicy interface {
	Check(p product.Product, quantity int) error
}

// StockPolicyFunc adapts a function to StockPolicy.
type StockPolicyFunc func(p product.Product, quantity int) error

// Check calls f.
func (f StockPolicyFunc) Check(p product.Product, quantity int) error {
	return f(p, quantity)
}

// EnforceStock rejects quantities above product.Stock.
func EnforceStock() StockPolicy {
	return StockPolicyFunc(func(p product.Product, quantity int) error {
		if quantity > p.Stock {
			return &InsufficientStockError{
				ProductID: p.ID,
				Requested: quantity,
				Available: p.Stock,
			}
		}
		return nil
	})
}
