// Package strategy implements the ordered strategy pipeline and the
// built-in strategy registry.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backtester/internal/core"
	"backtester/internal/state"
	apperrors "backtester/pkg/errors"
	"backtester/pkg/telemetry"
)

// Entry binds a registered strategy to the persisted run attributing its
// trades. The pipeline order is fixed for the session lifetime.
type Entry struct {
	Strategy core.Strategy
	RunID    int64
}

// Pipeline evaluates strategies in registration order for each symbol-tick.
// The first strategy producing an actionable decision wins; the remaining
// strategies are not evaluated for that symbol on that tick.
type Pipeline struct {
	entries []Entry
	state   *state.Store
	trades  core.TradeStore
	logger  core.ILogger
}

// NewPipeline creates an empty pipeline over the given collaborators.
func NewPipeline(st *state.Store, trades core.TradeStore, logger core.ILogger) *Pipeline {
	return &Pipeline{
		state:  st,
		trades: trades,
		logger: logger.WithField("component", "pipeline"),
	}
}

// Register appends a strategy bound to runID. Registration order is
// evaluation order; no mutation is allowed once the session is running.
func (p *Pipeline) Register(s core.Strategy, runID int64) {
	p.entries = append(p.entries, Entry{Strategy: s, RunID: runID})
}

// Len returns the number of registered strategies.
func (p *Pipeline) Len() int { return len(p.entries) }

// TypeOf resolves a pipeline index to the strategy's type. The index is
// how symbol tracks reference their owning strategy.
func (p *Pipeline) TypeOf(i int) (core.StrategyType, bool) {
	if i < 0 || i >= len(p.entries) {
		return "", false
	}
	return p.entries[i].Strategy.Type(), true
}

// RunIDOf resolves a pipeline index to its persisted run id.
func (p *Pipeline) RunIDOf(i int) int64 {
	if i < 0 || i >= len(p.entries) {
		return 0
	}
	return p.entries[i].RunID
}

// Evaluate runs the pipeline for one symbol-tick. A strategy error is
// isolated to that strategy; a trade-store error is fatal and returned.
// The returned message is a human-readable progress line, empty when no
// decision was acted on.
func (p *Pipeline) Evaluate(
	ctx context.Context,
	track *state.Track,
	history *core.BarSeries,
	now time.Time,
	price decimal.Decimal,
	portfolioValue decimal.Decimal,
	debug bool,
) (string, error) {
	for i, entry := range p.entries {
		if debug {
			p.logger.Debug("executing strategy",
				"strategy", entry.Strategy.Name(), "symbol", track.Symbol, "now", now)
		}

		do, order, err := entry.Strategy.Run(ctx, core.StrategyRequest{
			Symbol:         track.Symbol,
			Backtesting:    true,
			Position:       track.Position,
			History:        history,
			Now:            now,
			PortfolioValue: portfolioValue,
			Debug:          debug,
		})
		if err != nil {
			telemetry.StrategyErrors.WithLabelValues(entry.Strategy.Name()).Inc()
			p.logger.Error("strategy run failed",
				"strategy", entry.Strategy.Name(), "symbol", track.Symbol, "error", err)
			continue
		}
		if !do {
			continue
		}

		snapshot := p.state.ApplyDecision(track, order, i, now)

		trade := core.Trade{
			RunID:       entry.RunID,
			Symbol:      track.Symbol,
			Qty:         order.Qty,
			Side:        order.Side,
			Price:       price,
			Indicators:  snapshot,
			StopPrice:   track.StopPrice,
			TargetPrice: track.TargetPrice,
			Timestamp:   now,
		}
		if err := p.trades.SaveTrade(ctx, trade); err != nil {
			return "", fmt.Errorf("%w: %s %d of %s: %v",
				apperrors.ErrPersistence, order.Side, order.Qty, track.Symbol, err)
		}
		telemetry.TradesRecorded.WithLabelValues(string(order.Side)).Inc()

		// The trade is committed; callback failures are observability-only
		// and must not undo it.
		var cbErr error
		switch order.Side {
		case core.SideBuy:
			cbErr = entry.Strategy.BuyCallback(ctx, track.Symbol, price, order.Qty)
		case core.SideSell:
			cbErr = entry.Strategy.SellCallback(ctx, track.Symbol, price, order.Qty)
		}
		if cbErr != nil {
			p.logger.Warn("strategy callback failed",
				"strategy", entry.Strategy.Name(), "symbol", track.Symbol, "error", cbErr)
		}

		msg := fmt.Sprintf("[%s][%s] %s %d of %s @ %s",
			now.Format("2006-01-02 15:04"), entry.Strategy.Name(),
			order.Side, order.Qty, track.Symbol, price)
		return msg, nil
	}
	return "", nil
}
