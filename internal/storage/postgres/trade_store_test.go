package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpolica91/Solana-Bots/internal/domain"
	"github.com/fpolica91/Solana-Bots/internal/storage"
	pgstore "github.com/fpolica91/Solana-Bots/internal/storage/postgres"
)

func createTestTrade(mint string) *domain.TradeRecord {
	return &domain.TradeRecord{
		Mint:          mint,
		BondingCurve:  "curve-" + mint,
		Buyer:         "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS",
		TakeProfitPct: 25,
		StartTime:     time.Now().UnixMilli(),
		Status:        domain.StatusPending,
		CurrentPrice:  0.0000012,
		BoughtPrice:   0.0000012,
		BoughtAmount:  8_000_000,
	}
}

func TestTradeStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewTradeStore(pool)

	trade := createTestTrade("mint-001")
	require.NoError(t, store.Insert(ctx, trade))

	retrieved, err := store.GetByMint(ctx, "mint-001")
	require.NoError(t, err)

	assert.Equal(t, trade.Mint, retrieved.Mint)
	assert.Equal(t, trade.BondingCurve, retrieved.BondingCurve)
	assert.Equal(t, trade.Buyer, retrieved.Buyer)
	assert.Equal(t, trade.Status, retrieved.Status)
	assert.Equal(t, trade.StartTime, retrieved.StartTime)
	assert.Nil(t, retrieved.EndTime)
	assert.Nil(t, retrieved.SoldPrice)
	assert.InDelta(t, trade.TakeProfitPct, retrieved.TakeProfitPct, 0.0001)
	assert.InDelta(t, trade.CurrentPrice, retrieved.CurrentPrice, 1e-10)
	assert.InDelta(t, trade.BoughtPrice, retrieved.BoughtPrice, 1e-10)
	assert.InDelta(t, trade.BoughtAmount, retrieved.BoughtAmount, 0.5)
}

func TestTradeStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, createTestTrade("mint-001")))

	err := store.Insert(ctx, createTestTrade("mint-001"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeStore_GetByMintNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := pgstore.NewTradeStore(pool).GetByMint(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewTradeStore(pool)

	trade := createTestTrade("mint-001")
	require.NoError(t, store.Insert(ctx, trade))

	trade.Status = domain.StatusCompleted
	trade.EndTime = ptr(trade.StartTime + 45_000)
	trade.SoldPrice = ptr(0.0000018)
	trade.CurrentPrice = 0.0000018
	trade.ProfitPct = 50
	require.NoError(t, store.Update(ctx, trade))

	retrieved, err := store.GetByMint(ctx, "mint-001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, retrieved.Status)
	require.NotNil(t, retrieved.EndTime)
	assert.Equal(t, *trade.EndTime, *retrieved.EndTime)
	require.NotNil(t, retrieved.SoldPrice)
	assert.InDelta(t, *trade.SoldPrice, *retrieved.SoldPrice, 1e-10)
	assert.InDelta(t, 50.0, retrieved.ProfitPct, 0.0001)
}

func TestTradeStore_UpdateNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	err := pgstore.NewTradeStore(pool).Update(context.Background(), createTestTrade("ghost"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_GetActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewTradeStore(pool)

	base := time.Now().UnixMilli()

	second := createTestTrade("mint-b")
	second.Status = domain.StatusActive
	second.StartTime = base + 100
	require.NoError(t, store.Insert(ctx, second))

	first := createTestTrade("mint-a")
	first.Status = domain.StatusActive
	first.StartTime = base
	require.NoError(t, store.Insert(ctx, first))

	done := createTestTrade("mint-c")
	done.Status = domain.StatusCompleted
	require.NoError(t, store.Insert(ctx, done))

	active, err := store.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "mint-a", active[0].Mint)
	assert.Equal(t, "mint-b", active[1].Mint)
}

func TestTradeStore_GetByStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewTradeStore(pool)

	for i, status := range []domain.TradeStatus{
		domain.StatusPending,
		domain.StatusFailed,
		domain.StatusFailed,
	} {
		trade := createTestTrade("mint-" + string(rune('a'+i)))
		trade.Status = status
		require.NoError(t, store.Insert(ctx, trade))
	}

	failed, err := store.GetByStatus(ctx, domain.StatusFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	pending, err := store.GetByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
