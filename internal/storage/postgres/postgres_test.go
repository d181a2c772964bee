//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/pos-till/internal/domain/auth"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
	"github.com/xenking/pos-till/internal/settings"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("pos"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestPostgres(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	t.Run("Products", func(t *testing.T) {
		r := NewProducts(pool)
		require.NoError(t, r.Upsert(ctx, []product.Product{
			{ID: "1", Name: "Espresso", Price: decimal.NewFromInt(60000), Category: "Coffee", Stock: 50, Barcode: "1234567890123"},
			{ID: "2", Name: "Latte", Price: decimal.NewFromInt(75000), Category: "Coffee", Stock: 0},
			{ID: "10", Name: "Muffin", Price: decimal.NewFromInt(45000), Category: "Pastry", Stock: 5},
		}))

		list, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"1", "2", "10"}, []string{list[0].ID, list[1].ID, list[2].ID})

		p, err := r.FindByBarcode(ctx, "1234567890123")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Espresso", p.Name)
		assert.True(t, decimal.NewFromInt(60000).Equal(p.Price))

		p, err = r.FindByID(ctx, "2")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Empty(t, p.Barcode)

		p, err = r.FindByID(ctx, "404")
		require.NoError(t, err)
		assert.Nil(t, p)

		p, err = r.FindByBarcode(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("Vouchers", func(t *testing.T) {
		r := NewVouchers(pool)
		require.NoError(t, r.Upsert(ctx, []voucher.Voucher{
			{Code: "GIAM25K", GUID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301", Type: voucher.TypeFixed, Value: decimal.NewFromInt(25000)},
			{
				Code: "MIN100K", GUID: "3f2504e0-4f89-41d3-9a0c-0305e82c3302", Type: voucher.TypePercentage, Value: decimal.NewFromInt(10),
				MinimumOrderAmount: decimal.NewNullDecimal(decimal.NewFromInt(100000)),
			},
		}))

		v, err := r.FindByCode(ctx, "giam25k")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "GIAM25K", v.Code)
		assert.False(t, v.MinimumOrderAmount.Valid)

		v, err = r.FindByGUID(ctx, "3f2504e0-4f89-41d3-9a0c-0305e82c3302")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "MIN100K", v.Code)
		assert.Equal(t, voucher.TypePercentage, v.Type)
		require.True(t, v.MinimumOrderAmount.Valid)
		assert.True(t, decimal.NewFromInt(100000).Equal(v.MinimumOrderAmount.Decimal))

		v, err = r.FindByGUID(ctx, "not-a-guid")
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = r.FindByCode(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, v)

		list, err := r.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("Orders", func(t *testing.T) {
		r := NewOrders(pool)
		base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
		mk := func(id, till string, at time.Time) *order.Order {
			return &order.Order{
				ID:     id,
				TillID: till,
				Items: []order.Item{
					{ProductID: "1", Name: "Espresso", UnitPrice: decimal.NewFromInt(60000), Quantity: 2},
				},
				Subtotal:      decimal.NewFromInt(120000),
				Discount:      decimal.NewFromInt(25000),
				VoucherCode:   "GIAM25K",
				Total:         decimal.NewFromInt(95000),
				PaymentMethod: payment.KindCash,
				Change:        decimal.NewNullDecimal(decimal.NewFromInt(5000)),
				Timestamp:     at,
				Status:        order.StatusCompleted,
			}
		}
		require.NoError(t, r.Create(ctx, mk("a", "t1", base)))
		require.NoError(t, r.Create(ctx, mk("b", "t1", base.Add(time.Minute))))
		require.NoError(t, r.Create(ctx, mk("c", "t2", base.Add(2*time.Minute))))
		require.ErrorIs(t, r.Create(ctx, mk("a", "t1", base)), order.ErrDuplicate)

		got, err := r.Get(ctx, "a")
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.True(t, decimal.NewFromInt(60000).Equal(got.Items[0].UnitPrice))
		assert.Equal(t, "GIAM25K", got.VoucherCode)
		assert.Equal(t, payment.KindCash, got.PaymentMethod)
		require.True(t, got.Change.Valid)
		assert.True(t, decimal.NewFromInt(5000).Equal(got.Change.Decimal))
		assert.True(t, base.Equal(got.Timestamp))

		_, err = r.Get(ctx, "missing")
		require.ErrorIs(t, err, order.ErrNotFound)

		list, err := r.List(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b", list[0].ID)

		list, err = r.List(ctx, "t1", 1)
		require.NoError(t, err)
		require.Len(t, list, 1)

		list, err = r.List(ctx, "t3", 10)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Settings", func(t *testing.T) {
		r := NewSettings(pool)
		cfg, err := r.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, cfg)

		want := settings.Config{ServiceCode: "svc", PosAppID: "app", APIURL: "http://gw.local/earn"}
		require.NoError(t, r.Set(ctx, want))

		cfg, err = r.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, want, *cfg)
	})

	t.Run("APIKeys", func(t *testing.T) {
		r := NewAPIKeys(pool)
		hash := auth.Hash([]byte("pepper"), "raw-key")
		require.NoError(t, r.Upsert(ctx, auth.Key{ID: "k1", Hash: hash, Name: "till 1", Scopes: []string{auth.ScopeTill}}))

		k, err := r.FindByHash(ctx, hash)
		require.NoError(t, err)
		require.NotNil(t, k)
		assert.Equal(t, []string{auth.ScopeTill}, k.Scopes)

		k, err = r.FindByHash(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, k)
	})
}
