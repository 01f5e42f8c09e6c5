// Package core defines the shared types and interfaces for the backtest engine
package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "backtester/pkg/errors"
)

// Side represents the direction of a trade decision
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// StrategyType distinguishes strategies whose positions must be flat by
// session end from those that may carry positions overnight.
type StrategyType string

const (
	StrategyDayTrade StrategyType = "day_trade"
	StrategySwing    StrategyType = "swing"
)

// Bar is a single OHLCV minute bar.
type Bar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// BarSeries is an ordered, timestamp-ascending sequence of bars.
// A series is immutable once built; views produced by UpTo share the
// underlying storage.
type BarSeries struct {
	bars []Bar
}

// NewBarSeries builds a series from bars, sorting them by timestamp.
func NewBarSeries(bars []Bar) *BarSeries {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &BarSeries{bars: sorted}
}

// Len returns the number of bars in the series.
func (s *BarSeries) Len() int { return len(s.bars) }

// At returns the bar at index i.
func (s *BarSeries) At(i int) Bar { return s.bars[i] }

// Last returns the final bar of the series.
func (s *BarSeries) Last() Bar { return s.bars[len(s.bars)-1] }

// UpTo returns a view of the series up to and including index i.
func (s *BarSeries) UpTo(i int) *BarSeries {
	if i >= len(s.bars) {
		i = len(s.bars) - 1
	}
	return &BarSeries{bars: s.bars[:i+1]}
}

// NearestIndex locates the bar closest in time to t. It fails when the
// series is empty or when t falls entirely outside the covered range,
// which is how a stale or truncated download surfaces during alignment.
func (s *BarSeries) NearestIndex(t time.Time) (int, error) {
	if len(s.bars) == 0 {
		return 0, fmt.Errorf("%w: empty series", apperrors.ErrBarAlignment)
	}
	first, last := s.bars[0].Timestamp, s.bars[len(s.bars)-1].Timestamp
	if t.Before(first) || t.After(last) {
		return 0, fmt.Errorf("%w: %s outside series range [%s, %s]",
			apperrors.ErrBarAlignment, t.Format(time.RFC3339), first.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	i := sort.Search(len(s.bars), func(i int) bool {
		return !s.bars[i].Timestamp.Before(t)
	})
	if i == 0 {
		return 0, nil
	}
	if i == len(s.bars) {
		return len(s.bars) - 1, nil
	}
	// Pick whichever neighbor is closer; ties resolve to the later bar.
	before := t.Sub(s.bars[i-1].Timestamp)
	after := s.bars[i].Timestamp.Sub(t)
	if before < after {
		return i - 1, nil
	}
	return i, nil
}

// Indicators is a snapshot of the indicator values supporting a decision.
type Indicators map[string]float64

// LiquidationIndicators marks a trade as a forced end-of-session close
// rather than a strategy-sourced decision.
func LiquidationIndicators() Indicators {
	return Indicators{"liquidate": 1}
}

// IsLiquidation reports whether the snapshot carries the liquidation sentinel.
func (in Indicators) IsLiquidation() bool {
	_, ok := in["liquidate"]
	return ok
}

// Order is the order detail returned by a strategy decision.
type Order struct {
	Side        Side
	Qty         int64 // signed: positive buys, negative sells
	StopPrice   decimal.Decimal
	TargetPrice decimal.Decimal
	Indicators  Indicators
}

// Trade is an executed (or liquidation) trade. Immutable once created,
// written exactly once to the trade store.
type Trade struct {
	RunID       int64
	Symbol      string
	Qty         int64
	Side        Side
	Price       decimal.Decimal
	Indicators  Indicators
	StopPrice   decimal.Decimal
	TargetPrice decimal.Decimal
	Timestamp   time.Time
}

// RunConfig describes one strategy registration persisted as an algo run.
type RunConfig struct {
	BatchID      string
	StrategyName string
	Params       string
	Env          string
	RefRunID     int64
	StartTime    time.Time
}

// BatchInfo summarizes a persisted run for batch listings.
type BatchInfo struct {
	RunID        int64
	BatchID      string
	StrategyName string
	Env          string
	StartTime    time.Time
}

// StrategyRequest carries everything a strategy sees on one symbol-tick.
type StrategyRequest struct {
	Symbol         string
	Backtesting    bool
	Position       int64
	History        *BarSeries // bars up to and including the current tick
	Now            time.Time
	PortfolioValue decimal.Decimal
	Debug          bool
}
