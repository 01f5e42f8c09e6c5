package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/core"
)

func testRun(batchID, name string) core.RunConfig {
	return core.RunConfig{
		BatchID:      batchID,
		StrategyName: name,
		Params:       `{"fast":9}`,
		Env:          "BACKTEST",
		StartTime:    time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC),
	}
}

func testTrade(runID int64, symbol string) core.Trade {
	return core.Trade{
		RunID:       runID,
		Symbol:      symbol,
		Qty:         100,
		Side:        core.SideBuy,
		Price:       decimal.NewFromFloat(187.25),
		Indicators:  core.Indicators{"sma_fast": 186.1},
		StopPrice:   decimal.NewFromFloat(183.5),
		TargetPrice: decimal.NewFromFloat(194.7),
		Timestamp:   time.Date(2026, 8, 21, 9, 35, 0, 0, time.UTC),
	}
}

// exerciseStore runs the TradeStore contract against any backend.
func exerciseStore(t *testing.T, s core.TradeStore) {
	ctx := context.Background()

	runA, err := s.CreateRun(ctx, testRun("batch-1", "ma_cross"))
	require.NoError(t, err)
	runB, err := s.CreateRun(ctx, testRun("batch-1", "momentum"))
	require.NoError(t, err)
	runC, err := s.CreateRun(ctx, testRun("batch-2", "ma_cross"))
	require.NoError(t, err)
	assert.NotEqual(t, runA, runB)

	require.NoError(t, s.SaveTrade(ctx, testTrade(runA, "AAPL")))
	require.NoError(t, s.SaveTrade(ctx, testTrade(runA, "MSFT")))
	require.NoError(t, s.SaveTrade(ctx, testTrade(runB, "MSFT")))
	require.NoError(t, s.SaveTrade(ctx, testTrade(runC, "NVDA")))

	symbols, err := s.LoadBatchSymbols(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	symbols, err = s.LoadBatchSymbols(ctx, "batch-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, symbols)

	symbols, err = s.LoadBatchSymbols(ctx, "no-such-batch")
	require.NoError(t, err)
	assert.Empty(t, symbols)

	batches, err := s.ListBatches(ctx, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, "batch-1", batches[0].BatchID)
	assert.Equal(t, "ma_cross", batches[0].StrategyName)
	assert.Equal(t, "BACKTEST", batches[0].Env)

	// A cutoff after the runs excludes everything.
	batches, err = s.ListBatches(ctx, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestMemoryStoreTradesInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	runID, err := s.CreateRun(ctx, testRun("batch", "ma_cross"))
	require.NoError(t, err)
	require.NoError(t, s.SaveTrade(ctx, testTrade(runID, "AAPL")))
	require.NoError(t, s.SaveTrade(ctx, testTrade(runID, "MSFT")))

	trades := s.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, "AAPL", trades[0].Symbol)
	assert.Equal(t, "MSFT", trades[1].Symbol)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStoreRoundTripsTradeFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	runID, err := s.CreateRun(ctx, testRun("batch", "ma_cross"))
	require.NoError(t, err)

	trade := testTrade(runID, "AAPL")
	trade.Indicators = core.LiquidationIndicators()
	require.NoError(t, s.SaveTrade(ctx, trade))

	var operation, indicators, price string
	var qty int64
	row := s.db.QueryRowContext(ctx,
		`SELECT operation, qty, price, indicators FROM trades WHERE algo_run_id = ?`, runID)
	require.NoError(t, row.Scan(&operation, &qty, &price, &indicators))

	assert.Equal(t, "buy", operation)
	assert.Equal(t, int64(100), qty)
	assert.Equal(t, "187.25", price)
	assert.JSONEq(t, `{"liquidate":1}`, indicators)
}
