package state

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtester/internal/core"
)

func TestSeedDoesNotResetExistingTrack(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 8, 21, 9, 35, 0, 0, time.UTC)

	track := store.Seed("AAPL", core.NewBarSeries(nil))
	store.ApplyDecision(track, core.Order{Side: core.SideBuy, Qty: 100}, 0, now)
	require.Equal(t, int64(100), track.Position)

	// A scanner proposing AAPL again must not wipe its position.
	again := store.Seed("AAPL", core.NewBarSeries(nil))
	assert.Same(t, track, again)
	assert.Equal(t, int64(100), again.Position)
	assert.Equal(t, 1, store.Len())
}

func TestApplyDecisionConsistentBuy(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 8, 21, 9, 35, 42, 0, time.UTC)
	track := store.Seed("AAPL", core.NewBarSeries(nil))

	snapshot := store.ApplyDecision(track, core.Order{
		Side:       core.SideBuy,
		Qty:        100,
		Indicators: core.Indicators{"sma_fast": 1},
	}, 2, now)

	assert.Equal(t, int64(100), track.Position)
	assert.Equal(t, now.Truncate(time.Minute), track.BuyTime)
	assert.Equal(t, 2, track.Owner)
	assert.Equal(t, core.Indicators{"sma_fast": 1}, snapshot)
}

func TestApplyDecisionConsistentSell(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	track := store.Seed("AAPL", core.NewBarSeries(nil))
	track.Position = 100

	store.ApplyDecision(track, core.Order{Side: core.SideSell, Qty: -100}, 0, now)
	assert.Equal(t, int64(0), track.Position)
}

func TestApplyDecisionSignSideMismatchSubtracts(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)

	// A sell with positive quantity reduces the position by that quantity.
	track := store.Seed("AAPL", core.NewBarSeries(nil))
	track.Position = 100
	store.ApplyDecision(track, core.Order{Side: core.SideSell, Qty: 100}, 0, now)
	assert.Equal(t, int64(0), track.Position)
	assert.True(t, track.BuyTime.IsZero())

	// A buy with negative quantity also subtracts, increasing the position.
	other := store.Seed("MSFT", core.NewBarSeries(nil))
	store.ApplyDecision(other, core.Order{Side: core.SideBuy, Qty: -50}, 0, now)
	assert.Equal(t, int64(50), other.Position)
}

func TestApplyDecisionStopTargetAndIndicators(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	track := store.Seed("AAPL", core.NewBarSeries(nil))

	stop := decimal.NewFromFloat(98)
	target := decimal.NewFromFloat(104)
	store.ApplyDecision(track, core.Order{
		Side:        core.SideBuy,
		Qty:         100,
		StopPrice:   stop,
		TargetPrice: target,
		Indicators:  core.Indicators{"sma_fast": 1},
	}, 0, now)

	assert.True(t, stop.Equal(track.StopPrice))
	assert.True(t, target.Equal(track.TargetPrice))
	assert.Equal(t, core.Indicators{"sma_fast": 1}, track.BuyIndicators)

	// A later order without stop/target keeps the previous levels.
	store.ApplyDecision(track, core.Order{
		Side:       core.SideSell,
		Qty:        -100,
		Indicators: core.Indicators{"sma_slow": 2},
	}, 0, now)
	assert.True(t, stop.Equal(track.StopPrice))
	assert.Equal(t, core.Indicators{"sma_slow": 2}, track.SellIndicators)
}
