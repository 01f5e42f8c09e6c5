// Package engine drives a backtest session over a virtual minute clock.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"backtester/internal/core"
	"backtester/internal/marketdata"
	"backtester/internal/scanner"
	"backtester/internal/state"
	"backtester/internal/strategy"
	apperrors "backtester/pkg/errors"
	"backtester/pkg/telemetry"
)

// SessionConfig describes one backtest session.
type SessionConfig struct {
	BatchID        string // empty generates a fresh batch id
	Start          time.Time
	End            time.Time
	Symbols        []string // explicit symbols seeded before the first tick
	PortfolioValue decimal.Decimal
	Debug          bool
}

// Session replays one trading day minute by minute. Exactly one goroutine
// drives it; nothing here is safe for concurrent use.
type Session struct {
	cfg      SessionConfig
	batchID  string
	now      time.Time
	state    *state.Store
	pipeline *strategy.Pipeline
	loader   *marketdata.Loader
	scanners []core.Scanner
	trades   core.TradeStore
	logger   core.ILogger

	// order preserves symbol discovery order so iteration over tracks is
	// reproducible run to run.
	order    []string
	finished bool
}

// NewSession assembles a session, persists one algo run per registered
// strategy and prefetches bars for the explicit symbol list.
func NewSession(
	ctx context.Context,
	cfg SessionConfig,
	st *state.Store,
	pipe *strategy.Pipeline,
	loader *marketdata.Loader,
	scanners []core.Scanner,
	trades core.TradeStore,
	logger core.ILogger,
) (*Session, error) {
	if !cfg.Start.Before(cfg.End) {
		return nil, fmt.Errorf("session start %s not before end %s", cfg.Start, cfg.End)
	}

	batchID := cfg.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}

	s := &Session{
		cfg:      cfg,
		batchID:  batchID,
		now:      cfg.Start.Truncate(time.Minute),
		state:    st,
		pipeline: pipe,
		loader:   loader,
		scanners: scanners,
		trades:   trades,
		logger:   logger.WithField("component", "session").WithField("batch_id", batchID),
	}

	if len(cfg.Symbols) > 0 {
		results := marketdata.Prefetch(ctx, loader, cfg.Symbols, s.now, logger)
		for _, r := range results {
			if r.Err != nil {
				if marketdata.IsSkippable(r.Err) {
					continue
				}
				return nil, r.Err
			}
			s.seed(r.Symbol, r.Series)
		}
		s.logger.Info("loaded data for symbols", "requested", len(cfg.Symbols), "loaded", s.state.Len())
	}

	return s, nil
}

// BatchID returns the batch id, generated or inherited.
func (s *Session) BatchID() string { return s.batchID }

// Now returns the virtual clock's current minute.
func (s *Session) Now() time.Time { return s.now }

func (s *Session) seed(symbol string, series *core.BarSeries) {
	if !s.state.Has(symbol) {
		s.order = append(s.order, symbol)
		telemetry.SymbolsTracked.Set(float64(s.state.Len() + 1))
	}
	s.state.Seed(symbol, series)
}

// NextMinute advances the simulation by one minute: due scanners run and
// may add symbols, then every tracked symbol is evaluated through the
// strategy pipeline. The session-end minute itself is never processed;
// the last tick is one minute before end. Progress messages describe the
// trades acted on this tick.
func (s *Session) NextMinute(ctx context.Context) (bool, []string, error) {
	if s.finished {
		return false, nil, apperrors.ErrSessionFinished
	}
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}

	s.runScanners(ctx)

	var messages []string
	for _, symbol := range s.order {
		track := s.state.Get(symbol)
		if track == nil || track.Halted {
			continue
		}

		idx, err := track.Series.NearestIndex(s.now)
		if err != nil {
			// The clock is outside this symbol's data coverage on this
			// tick; nothing to evaluate.
			s.logger.Debug("no bar for tick", "symbol", symbol, "now", s.now, "error", err)
			continue
		}

		bar := track.Series.At(idx)
		if !bar.Timestamp.Truncate(time.Minute).Equal(s.now) {
			track.Halted = true
			telemetry.InvariantViolations.Inc()
			s.logger.Error("bar timestamp diverged from clock, halting symbol",
				"symbol", symbol, "now", s.now, "bar_time", bar.Timestamp)
			continue
		}

		msg, err := s.pipeline.Evaluate(ctx, track, track.Series.UpTo(idx), s.now,
			bar.Close, s.cfg.PortfolioValue, s.cfg.Debug)
		if err != nil {
			// Only persistence failures escape the pipeline; the run's
			// record is no longer trustworthy.
			return false, messages, err
		}
		if msg != "" {
			messages = append(messages, msg)
		}
	}

	telemetry.TicksProcessed.Inc()
	s.now = s.now.Add(time.Minute)
	if !s.now.Before(s.cfg.End) {
		s.finished = true
	}
	return !s.finished, messages, nil
}

// runScanners fires every scanner due on this tick. Scanner failures are
// isolated; discovered symbols already tracked keep their state.
func (s *Session) runScanners(ctx context.Context) {
	for _, sc := range s.scanners {
		if !scanner.ShouldRun(sc, s.now, s.cfg.Start.Truncate(time.Minute)) {
			continue
		}
		symbols, err := sc.Run(ctx, s.now)
		if err != nil {
			telemetry.ScannerErrors.WithLabelValues(sc.Name()).Inc()
			s.logger.Error("scanner failed", "scanner", sc.Name(), "now", s.now, "error", err)
			continue
		}
		for _, symbol := range symbols {
			if s.state.Has(symbol) {
				continue
			}
			series, err := s.loader.Load(ctx, symbol, s.now)
			if err != nil {
				if marketdata.IsSkippable(err) {
					continue
				}
				s.logger.Error("symbol load failed", "symbol", symbol, "error", err)
				continue
			}
			s.seed(symbol, series)
			s.logger.Info("tracking symbol", "symbol", symbol, "scanner", sc.Name(), "now", s.now)
		}
	}
}

// Liquidate force-closes every open day-trade position at the close of
// the bar nearest session end. Swing positions are carried. Each closing
// trade is attributed to the run of the strategy that opened the
// position and tagged with the liquidation indicator.
func (s *Session) Liquidate(ctx context.Context) ([]string, error) {
	ts := s.now
	if ts.After(s.cfg.End) {
		ts = s.cfg.End
	}

	var messages []string
	for _, symbol := range s.order {
		track := s.state.Get(symbol)
		if track == nil || track.Position == 0 {
			continue
		}

		stype, ok := s.pipeline.TypeOf(track.Owner)
		if !ok || stype != core.StrategyDayTrade {
			continue
		}

		qty := track.Position
		if qty < 0 {
			qty = -qty
		}
		side := core.SideSell
		if track.Position < 0 {
			side = core.SideBuy
		}
		// The loaded window extends past the close, so the last bar can
		// be well after the session; fill at the bar nearest session end.
		price := track.Series.Last().Close
		if idx, err := track.Series.NearestIndex(ts); err == nil {
			price = track.Series.At(idx).Close
		}

		trade := core.Trade{
			RunID:      s.pipeline.RunIDOf(track.Owner),
			Symbol:     symbol,
			Qty:        qty,
			Side:       side,
			Price:      price,
			Indicators: core.LiquidationIndicators(),
			Timestamp:  ts,
		}
		if err := s.trades.SaveTrade(ctx, trade); err != nil {
			return messages, fmt.Errorf("%w: liquidate %s: %v", apperrors.ErrPersistence, symbol, err)
		}
		telemetry.TradesRecorded.WithLabelValues(string(side)).Inc()

		track.Position = 0
		messages = append(messages, fmt.Sprintf("[%s] liquidate %s %d of %s @ %s",
			ts.Format("2006-01-02 15:04"), side, qty, symbol, price))
		s.logger.Info("liquidated position", "symbol", symbol, "side", side, "qty", qty, "price", price)
	}
	return messages, nil
}
