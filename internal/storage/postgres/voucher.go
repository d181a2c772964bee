package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-till/internal/domain/voucher"
)

const (
	voucherColumns = `code, guid::text, type, value, minimum_order_amount`

	listVouchersSQL = `SELECT ` + voucherColumns + ` FROM vouchers ORDER BY code`

	getVoucherByCodeSQL = `SELECT ` + voucherColumns + ` FROM vouchers WHERE UPPER(code) = UPPER($1)`

	getVoucherByGUIDSQL = `SELECT ` + voucherColumns + ` FROM vouchers WHERE guid = $1`

	upsertVoucherSQL = `INSERT INTO vouchers (code, guid, type, value, minimum_order_amount)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (code) DO UPDATE SET
		guid = EXCLUDED.guid,
		type = EXCLUDED.type,
		value = EXCLUDED.value,
		minimum_order_amount = EXCLUDED.minimum_order_amount`

	// upsertBatchSize keeps one bulk-import batch well below protocol limits.
	upsertBatchSize = 1000
)

var _ voucher.Catalog = (*Vouchers)(nil)

// Vouchers is the voucher catalog backed by PostgreSQL.
type Vouchers struct {
	pool *pgxpool.Pool
}

// NewVouchers returns a Vouchers that uses the given pool.
func NewVouchers(pool *pgxpool.Pool) *Vouchers {
	return &Vouchers{pool: pool}
}

// List returns every voucher ordered by code.
func (r *Vouchers) List(ctx context.Context) ([]voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, listVouchersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list vouchers")
	}
	vouchers, err := pgx.CollectRows(rows, scanVoucher)
	if err != nil {
		return nil, errors.Wrap(err, "list vouchers")
	}
	return vouchers, nil
}

// FindByCode returns the voucher whose code matches case-insensitively, or nil.
func (r *Vouchers) FindByCode(ctx context.Context, code string) (*voucher.Voucher, error) {
	return r.findOne(ctx, getVoucherByCodeSQL, code)
}

// FindByGUID returns the voucher with guid, or nil. Malformed GUIDs match
// nothing.
func (r *Vouchers) FindByGUID(ctx context.Context, guid string) (*voucher.Voucher, error) {
	id, err := uuid.Parse(guid)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, getVoucherByGUIDSQL, id)
}

func (r *Vouchers) findOne(ctx context.Context, query string, arg any) (*voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get voucher %v", arg)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get voucher %v", arg)
	}
	return &v, nil
}

// Upsert inserts or replaces vouchers by code, in batches.
func (r *Vouchers) Upsert(ctx context.Context, vouchers []voucher.Voucher) error {
	for start := 0; start < len(vouchers); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(vouchers))

		batch := &pgx.Batch{}
		for _, v := range vouchers[start:end] {
			id, err := uuid.Parse(v.GUID)
			if err != nil {
				return errors.Wrapf(err, "voucher %s: parse guid", v.Code)
			}
			batch.Queue(upsertVoucherSQL, v.Code, id, string(v.Type), v.Value, v.MinimumOrderAmount)
		}
		if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "upsert vouchers")
		}
	}
	return nil
}

func scanVoucher(row pgx.CollectableRow) (voucher.Voucher, error) {
	var (
		v   voucher.Voucher
		typ string
	)
	err := row.Scan(&v.Code, &v.GUID, &typ, &v.Value, &v.MinimumOrderAmount)
	v.Type = voucher.Type(typ)
	return v, err
}
