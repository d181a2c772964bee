package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/wire"
)

const (
	createOrderSQL = `INSERT INTO orders (id, till_id, items, subtotal, discount, voucher_code, total,
		payment_method, change, status, customer_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	orderColumns = `id, till_id, items, subtotal, discount, voucher_code, total,
		payment_method, change, status, customer_id, created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE till_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	uniqueViolation = "23505"
)

var _ order.Repository = (*Orders)(nil)

// Orders is the order history backed by PostgreSQL.
type Orders struct {
	pool *pgxpool.Pool
}

// NewOrders returns an Orders that uses the given pool.
func NewOrders(pool *pgxpool.Pool) *Orders {
	return &Orders{pool: pool}
}

// Create persists o. Items are stored as a JSONB array.
func (r *Orders) Create(ctx context.Context, o *order.Order) error {
	items := wire.Marshal(func(e *jx.Encoder) {
		wire.EncodeOrderItems(e, o.Items)
	})

	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.TillID, items, o.Subtotal, o.Discount, o.VoucherCode, o.Total,
		string(o.PaymentMethod), o.Change, string(o.Status), o.CustomerID, o.Timestamp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.Wrapf(order.ErrDuplicate, "%s", o.ID)
		}
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Get returns the order with id or order.ErrNotFound.
func (r *Orders) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

// List returns the orders of tillID, newest first. A limit ≤ 0 returns all.
func (r *Orders) List(ctx context.Context, tillID string, limit int) ([]order.Order, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.pool.Query(ctx, listOrdersSQL, tillID, lim)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of till %q", tillID)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of till %q", tillID)
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		items  []byte
		method string
		status string
	)
	if err := row.Scan(
		&o.ID, &o.TillID, &items, &o.Subtotal, &o.Discount, &o.VoucherCode, &o.Total,
		&method, &o.Change, &status, &o.CustomerID, &o.Timestamp,
	); err != nil {
		return o, err
	}
	decoded, err := wire.DecodeOrderItems(jx.DecodeBytes(items))
	if err != nil {
		return o, errors.Wrapf(err, "order %q items", o.ID)
	}
	o.Items = decoded
	o.PaymentMethod = payment.Kind(method)
	o.Status = order.Status(status)
	o.Timestamp = o.Timestamp.UTC()
	return o, nil
}
