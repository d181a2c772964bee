// Package memory provides in-process implementations of the till's storage
// contracts, backed by the bundled catalog.
package memory

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-till/db"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
	"github.com/xenking/pos-till/internal/wire"
)

var (
	_ product.Catalog = (*Catalog)(nil)
	_ voucher.Catalog = (*Catalog)(nil)
)

// Catalog is a static product and voucher catalog. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	products  []product.Product
	byID      map[string]int
	byBarcode map[string]int

	vouchers []voucher.Voucher
	byCode   map[string]int
	byGUID   map[string]int
}

// NewCatalog indexes the given products and vouchers. Ids, barcodes, codes
// (case-insensitively) and GUIDs must be unique.
func NewCatalog(products []product.Product, vouchers []voucher.Voucher) (*Catalog, error) {
	c := &Catalog{
		products:  products,
		byID:      make(map[string]int, len(products)),
		byBarcode: make(map[string]int, len(products)),
		vouchers:  vouchers,
		byCode:    make(map[string]int, len(vouchers)),
		byGUID:    make(map[string]int, len(vouchers)),
	}
	for i, p := range products {
		if _, ok := c.byID[p.ID]; ok {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = i
		if p.Barcode == "" {
			continue
		}
		if _, ok := c.byBarcode[p.Barcode]; ok {
			return nil, errors.Errorf("duplicate barcode %q", p.Barcode)
		}
		c.byBarcode[p.Barcode] = i
	}
	for i, v := range vouchers {
		code := strings.ToUpper(v.Code)
		if _, ok := c.byCode[code]; ok {
			return nil, errors.Errorf("duplicate voucher code %q", v.Code)
		}
		c.byCode[code] = i
		if _, ok := c.byGUID[v.GUID]; ok {
			return nil, errors.Errorf("duplicate voucher guid %q", v.GUID)
		}
		c.byGUID[v.GUID] = i
	}
	return c, nil
}

// NewSeedCatalog loads the catalog bundled with the binary.
func NewSeedCatalog() (*Catalog, error) {
	products, err := wire.DecodeProducts(db.Products)
	if err != nil {
		return nil, errors.Wrap(err, "seed products")
	}
	vouchers, err := wire.DecodeVouchers(db.Vouchers)
	if err != nil {
		return nil, errors.Wrap(err, "seed vouchers")
	}
	return NewCatalog(products, vouchers)
}

// List returns all products in catalog order.
func (c *Catalog) List(context.Context) ([]product.Product, error) {
	out := make([]product.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

// FindByID returns the product with id, or nil.
func (c *Catalog) FindByID(_ context.Context, id string) (*product.Product, error) {
	return c.product(c.byID, id), nil
}

// FindByBarcode returns the product with barcode, or nil.
func (c *Catalog) FindByBarcode(_ context.Context, barcode string) (*product.Product, error) {
	if barcode == "" {
		return nil, nil
	}
	return c.product(c.byBarcode, barcode), nil
}

// FindByCode returns the voucher with code (case-insensitive), or nil.
func (c *Catalog) FindByCode(_ context.Context, code string) (*voucher.Voucher, error) {
	return c.voucher(c.byCode, strings.ToUpper(strings.TrimSpace(code))), nil
}

// FindByGUID returns the voucher with guid, or nil.
func (c *Catalog) FindByGUID(_ context.Context, guid string) (*voucher.Voucher, error) {
	return c.voucher(c.byGUID, strings.TrimSpace(guid)), nil
}

// Vouchers returns all vouchers.
func (c *Catalog) Vouchers() []voucher.Voucher {
	out := make([]voucher.Voucher, len(c.vouchers))
	copy(out, c.vouchers)
	return out
}

func (c *Catalog) product(index map[string]int, key string) *product.Product {
	i, ok := index[key]
	if !ok {
		return nil
	}
	p := c.products[i]
	return &p
}

func (c *Catalog) voucher(index map[string]int, key string) *voucher.Voucher {
	i, ok := index[key]
	if !ok {
		return nil
	}
	v := c.vouchers[i]
	return &v
}
