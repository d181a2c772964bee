package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-till/internal/domain/product"
)

const (
	productColumns = `id, name, price, category, stock, COALESCE(barcode, ''), description, image`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY LENGTH(id), id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductByBarcodeSQL = `SELECT ` + productColumns + ` FROM products WHERE barcode = $1`

	upsertProductSQL = `INSERT INTO products (id, name, price, category, stock, barcode, description, image)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		category = EXCLUDED.category,
		stock = EXCLUDED.stock,
		barcode = EXCLUDED.barcode,
		description = EXCLUDED.description,
		image = EXCLUDED.image`
)

var _ product.Catalog = (*Products)(nil)

// Products is the product catalog backed by PostgreSQL.
type Products struct {
	pool *pgxpool.Pool
}

// NewProducts returns a Products that uses the given pool.
func NewProducts(pool *pgxpool.Pool) *Products {
	return &Products{pool: pool}
}

// List returns every product ordered by id.
func (r *Products) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// FindByID returns the product with id, or nil.
func (r *Products) FindByID(ctx context.Context, id string) (*product.Product, error) {
	return r.findOne(ctx, getProductByIDSQL, id)
}

// FindByBarcode returns the product carrying barcode, or nil.
func (r *Products) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	if barcode == "" {
		return nil, nil
	}
	return r.findOne(ctx, getProductByBarcodeSQL, barcode)
}

func (r *Products) findOne(ctx context.Context, query, arg string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	return &p, nil
}

// Upsert inserts or replaces products in one batch.
func (r *Products) Upsert(ctx context.Context, products []product.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProductSQL,
			p.ID, p.Name, p.Price, p.Category, p.Stock, p.Barcode, p.Description, p.Image,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert products")
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock,
		&p.Barcode, &p.Description, &p.Image,
	)
	return p, err
}
