package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-till/internal/domain/auth"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
)

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	c, err := NewSeedCatalog()
	require.NoError(t, err)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 8)
	assert.Equal(t, []string{"Cà phê", "Bánh ngọt", "Trà", "Đồ ăn"}, product.Categories(list))

	p, err := c.FindByID(ctx, "3")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Bánh sừng bò", p.Name)

	p, err = c.FindByBarcode(ctx, "1234567890130")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "8", p.ID)

	p, err = c.FindByID(ctx, "99")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = c.FindByBarcode(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, p)

	v, err := c.FindByCode(ctx, "giam50k")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "GIAM50K", v.Code)

	v, err = c.FindByGUID(ctx, "a1b2c3d4-e5f6-7890-1234-567890abcdef")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "GIAM10", v.Code)

	v, err = c.FindByGUID(ctx, "GIAM10")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c, err := NewSeedCatalog()
	require.NoError(t, err)

	p, _ := c.FindByID(context.Background(), "1")
	p.Stock = 0

	again, _ := c.FindByID(context.Background(), "1")
	assert.Equal(t, 50, again.Stock)
}

func TestNewCatalog_Duplicates(t *testing.T) {
	_, err := NewCatalog([]product.Product{{ID: "1"}, {ID: "1"}}, nil)
	require.Error(t, err)

	_, err = NewCatalog([]product.Product{{ID: "1", Barcode: "b"}, {ID: "2", Barcode: "b"}}, nil)
	require.Error(t, err)

	_, err = NewCatalog(nil, []voucher.Voucher{{Code: "a", GUID: "1"}, {Code: "A", GUID: "2"}})
	require.Error(t, err)
}

func TestOrders(t *testing.T) {
	ctx := context.Background()
	r := NewOrders()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 4 {
		till := "till-1"
		if i == 2 {
			till = "till-2"
		}
		require.NoError(t, r.Create(ctx, &order.Order{
			ID:        fmt.Sprintf("o%d", i),
			TillID:    till,
			Total:     decimal.NewFromInt(int64(i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Status:    order.StatusCompleted,
		}))
	}

	list, err := r.List(ctx, "till-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "o3", list[0].ID, "newest first")
	assert.Equal(t, "o0", list[2].ID)

	list, err = r.List(ctx, "till-1", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = r.List(ctx, "till-9", 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	got, err := r.Get(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "till-2", got.TillID)

	_, err = r.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)

	require.ErrorIs(t, r.Create(ctx, &order.Order{ID: "o1"}), order.ErrDuplicate)
}

func TestAPIKeys(t *testing.T) {
	hash := auth.Hash([]byte("pepper"), "secret")
	r := NewAPIKeys([]auth.Key{{ID: "k1", Hash: hash, Name: "front", Scopes: []string{auth.ScopeTill}}})

	k, err := r.FindByHash(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, k)
	assert.Equal(t, "k1", k.ID)

	k, err = r.FindByHash(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, k)
}
