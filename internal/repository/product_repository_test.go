package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantRepository_GetForOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := seedCatalog(t, pool, 5)
	repo := NewVariantRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	t.Run("Existing variant carries product pricing", func(t *testing.T) {
		v, err := repo.GetForOrder(ctx, tx, f.VariantID)

		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, f.VariantID, v.ID)
		assert.Equal(t, f.ProductID, v.ProductID)
		assert.Equal(t, f.SellerID, v.SellerID)
		assert.Equal(t, "Linen Shirt", v.ProductName)
		assert.Equal(t, "M", v.Size)
		assert.Equal(t, 5, v.StockAvailable)
		assert.Equal(t, 0, v.StockReserved)
		assert.True(t, v.IsAvailable)
		assert.True(t, decimal.NewFromInt(500).Equal(v.UnitPrice))
		assert.True(t, decimal.RequireFromString("0.05").Equal(v.TaxRate))
		assert.True(t, decimal.NewFromInt(50).Equal(v.ShippingCost))
		assert.True(t, decimal.RequireFromString("0.07").Equal(v.CommissionRate))
	})

	t.Run("Missing variant returns nil", func(t *testing.T) {
		v, err := repo.GetForOrder(ctx, tx, uuid.New())

		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestVariantRepository_ListByProduct(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := seedCatalog(t, pool, 3)
	repo := NewVariantRepository(pool, zerolog.Nop())
	ctx := context.Background()

	variants, err := repo.ListByProduct(ctx, f.ProductID)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "L", variants[0].Size)
	assert.Equal(t, "M", variants[1].Size)

	empty, err := repo.ListByProduct(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestVariantRepository_StockMovements(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := seedCatalog(t, pool, 5)
	repo := NewVariantRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)

	reserved, err := repo.Reserve(ctx, tx, f.VariantID, 3)
	require.NoError(t, err)
	assert.True(t, reserved)

	available, err := repo.StockAvailable(ctx, tx, f.VariantID)
	require.NoError(t, err)
	assert.Equal(t, 2, available)

	reserved, err = repo.Reserve(ctx, tx, f.VariantID, 3)
	require.NoError(t, err)
	assert.False(t, reserved, "conditional update must not oversell")

	require.NoError(t, repo.Release(ctx, tx, f.VariantID, 1))
	require.NoError(t, repo.Fulfil(ctx, tx, f.VariantID, 2))
	require.NoError(t, tx.Commit(ctx))

	v, err := repo.GetByID(ctx, f.VariantID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 3, v.StockAvailable)
	assert.Equal(t, 0, v.StockReserved)
}

func TestVariantRepository_ConcurrentReserveNeverOversells(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := seedCatalog(t, pool, 4)
	repo := NewVariantRepository(pool, zerolog.Nop())
	ctx := context.Background()

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tx, err := pool.Begin(ctx)
			if err != nil {
				return
			}
			defer tx.Rollback(ctx)

			ok, err := repo.Reserve(ctx, tx, f.VariantID, 1)
			if err != nil || !ok {
				return
			}
			if tx.Commit(ctx) == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	v, err := repo.GetByID(ctx, f.VariantID)
	require.NoError(t, err)
	assert.Equal(t, 4, successes)
	assert.Equal(t, 0, v.StockAvailable)
	assert.Equal(t, 4, v.StockReserved)
}

func TestAddressRepository_GetForCustomer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := seedCatalog(t, pool, 1)
	repo := NewAddressRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name       string
		addressID  uuid.UUID
		customerID uuid.UUID
		expectNil  bool
	}{
		{name: "Owner resolves address", addressID: f.AddressID, customerID: f.CustomerID},
		{name: "Other customer does not", addressID: f.AddressID, customerID: uuid.New(), expectNil: true},
		{name: "Unknown address", addressID: uuid.New(), customerID: f.CustomerID, expectNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := repo.GetForCustomer(ctx, tt.addressID, tt.customerID)

			require.NoError(t, err)
			if tt.expectNil {
				assert.Nil(t, addr)
				return
			}
			require.NotNil(t, addr)
			assert.Equal(t, "560001", addr.Pincode)
			assert.Equal(t, "Bengaluru", addr.City)
		})
	}
}
