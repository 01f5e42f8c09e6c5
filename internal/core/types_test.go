package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "backtester/pkg/errors"
)

func minuteBars(start time.Time, count int) []Bar {
	bars := make([]Bar, count)
	for i := range bars {
		price := decimal.NewFromInt(int64(100 + i))
		bars[i] = Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

func TestNewBarSeriesSortsByTimestamp(t *testing.T) {
	start := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	bars := minuteBars(start, 5)
	shuffled := []Bar{bars[3], bars[0], bars[4], bars[1], bars[2]}

	series := NewBarSeries(shuffled)

	require.Equal(t, 5, series.Len())
	for i := 1; i < series.Len(); i++ {
		assert.True(t, series.At(i-1).Timestamp.Before(series.At(i).Timestamp))
	}
}

func TestNearestIndexExactAndNeighbors(t *testing.T) {
	start := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	series := NewBarSeries(minuteBars(start, 10))

	idx, err := series.NearestIndex(start.Add(4 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	// 20 seconds past a bar resolves to that bar.
	idx, err = series.NearestIndex(start.Add(4*time.Minute + 20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	// Exact midpoint ties resolve to the later bar.
	idx, err = series.NearestIndex(start.Add(4*time.Minute + 30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5, idx)
}

func TestNearestIndexOutsideRange(t *testing.T) {
	start := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	series := NewBarSeries(minuteBars(start, 10))

	_, err := series.NearestIndex(start.Add(-time.Minute))
	assert.ErrorIs(t, err, apperrors.ErrBarAlignment)

	_, err = series.NearestIndex(start.Add(10 * time.Minute))
	assert.ErrorIs(t, err, apperrors.ErrBarAlignment)
}

func TestNearestIndexEmptySeries(t *testing.T) {
	series := NewBarSeries(nil)
	_, err := series.NearestIndex(time.Now())
	assert.ErrorIs(t, err, apperrors.ErrBarAlignment)
}

func TestUpToSharesStorageAndClamps(t *testing.T) {
	start := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	series := NewBarSeries(minuteBars(start, 10))

	view := series.UpTo(4)
	require.Equal(t, 5, view.Len())
	assert.Equal(t, series.At(4), view.Last())

	clamped := series.UpTo(99)
	assert.Equal(t, series.Len(), clamped.Len())
}

func TestLiquidationIndicators(t *testing.T) {
	in := LiquidationIndicators()
	assert.True(t, in.IsLiquidation())
	assert.False(t, Indicators{"sma_fast": 1.0}.IsLiquidation())
}
