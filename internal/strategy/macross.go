package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"backtester/internal/core"
	"backtester/pkg/tradingutils"
)

// MACross is a day-trade strategy entering long on a fast/slow moving
// average golden cross and exiting on the reverse cross or on the stop.
type MACross struct {
	fast      int
	slow      int
	qty       int64
	stopPct   float64
	targetPct float64
}

// NewMACross builds the crossover strategy. Parameters: "fast" (default 9),
// "slow" (default 21), "qty" (default 100), "stop_percent" (default 2),
// "target_percent" (default 4).
func NewMACross(params map[string]interface{}, _ Deps) (core.Strategy, error) {
	fast := intParam(params, "fast", 9)
	slow := intParam(params, "slow", 21)
	if fast <= 0 || slow <= fast {
		return nil, fmt.Errorf("ma_cross requires 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}
	qty := int64(intParam(params, "qty", 100))
	if qty <= 0 {
		return nil, fmt.Errorf("ma_cross requires a positive qty, got %d", qty)
	}
	return &MACross{
		fast:      fast,
		slow:      slow,
		qty:       qty,
		stopPct:   floatParam(params, "stop_percent", 2.0),
		targetPct: floatParam(params, "target_percent", 4.0),
	}, nil
}

func (m *MACross) Name() string            { return "ma_cross" }
func (m *MACross) Type() core.StrategyType { return core.StrategyDayTrade }

func (m *MACross) Run(_ context.Context, req core.StrategyRequest) (bool, core.Order, error) {
	h := req.History
	if h.Len() < m.slow+1 {
		return false, core.Order{}, nil
	}

	closes := make([]decimal.Decimal, h.Len())
	for i := range closes {
		closes[i] = h.At(i).Close
	}
	last := len(closes) - 1
	fastNow, _ := tradingutils.SMA(closes, m.fast, last)
	slowNow, _ := tradingutils.SMA(closes, m.slow, last)
	fastPrev, _ := tradingutils.SMA(closes, m.fast, last-1)
	slowPrev, _ := tradingutils.SMA(closes, m.slow, last-1)
	price := h.Last().Close

	crossedUp := fastPrev.LessThanOrEqual(slowPrev) && fastNow.GreaterThan(slowNow)
	crossedDown := fastPrev.GreaterThanOrEqual(slowPrev) && fastNow.LessThan(slowNow)

	if req.Position == 0 && crossedUp {
		stop := tradingutils.RoundPrice(price.Mul(decimal.NewFromFloat(1-m.stopPct/100)), 2)
		target := tradingutils.RoundPrice(price.Mul(decimal.NewFromFloat(1+m.targetPct/100)), 2)
		fastF, _ := fastNow.Float64()
		slowF, _ := slowNow.Float64()
		return true, core.Order{
			Side:        core.SideBuy,
			Qty:         m.qty,
			StopPrice:   stop,
			TargetPrice: target,
			Indicators:  core.Indicators{"sma_fast": fastF, "sma_slow": slowF},
		}, nil
	}

	if req.Position > 0 {
		stopHit := false
		if m.stopPct > 0 {
			// Entry price is unknown here; use the slow average as the
			// reference the exit is anchored on.
			stopHit = price.LessThan(slowNow.Mul(decimal.NewFromFloat(1 - m.stopPct/100)))
		}
		if crossedDown || stopHit {
			fastF, _ := fastNow.Float64()
			slowF, _ := slowNow.Float64()
			return true, core.Order{
				Side:       core.SideSell,
				Qty:        -req.Position,
				Indicators: core.Indicators{"sma_fast": fastF, "sma_slow": slowF},
			}, nil
		}
	}

	return false, core.Order{}, nil
}

// BuyCallback is an observability hook; the trade is already committed.
func (m *MACross) BuyCallback(_ context.Context, _ string, _ decimal.Decimal, _ int64) error {
	return nil
}

// SellCallback is an observability hook; the trade is already committed.
func (m *MACross) SellCallback(_ context.Context, _ string, _ decimal.Decimal, _ int64) error {
	return nil
}
