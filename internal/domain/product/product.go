package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by callers that require a product to exist.
// Catalog lookups themselves report absence with a nil product.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for sale at the till.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    string
	Stock       int
	Barcode     string
	Description string
	Image       string
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Catalog is the read-only product lookup used by the till.
//
// Lookups return (nil, nil) when nothing matches; a non-nil error always
// means the backing store failed.
type Catalog interface {
	List(ctx context.Context) ([]Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
}
