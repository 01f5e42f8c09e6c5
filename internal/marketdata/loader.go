// Package marketdata adapts a historical bar provider for the backtest
// engine: windowed loads, a fixed retry budget, and start-time alignment.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backtester/internal/core"
	apperrors "backtester/pkg/errors"
	"backtester/pkg/telemetry"
)

const (
	// maxAttempts is the shared retry budget per symbol. Only alignment
	// lookup failures consume it; an upstream data fault aborts outright.
	maxAttempts = 3

	// minBars is the minimum series length considered usable.
	minBars = 100
)

// Loader wraps a BarProvider with the engine's load policy.
type Loader struct {
	provider     core.BarProvider
	logger       core.ILogger
	lookbackDays int
	minBars      int
}

// NewLoader creates a loader with the given lookback window in days.
func NewLoader(provider core.BarProvider, lookbackDays int, logger core.ILogger) *Loader {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	return &Loader{
		provider:     provider,
		logger:       logger.WithField("component", "loader"),
		lookbackDays: lookbackDays,
		minBars:      minBars,
	}
}

// Load fetches the bar window around start and aligns it to start. Each
// attempt re-requests the full window. An ErrDataUnavailable from the
// provider or an undersized series aborts immediately; an alignment
// failure consumes one attempt and reloads. Exhausting the budget skips
// the symbol with a warning.
func (l *Loader) Load(ctx context.Context, symbol string, start time.Time) (*core.BarSeries, error) {
	from := start.AddDate(0, 0, -l.lookbackDays)
	to := start.AddDate(0, 0, 1)

	attempts := maxAttempts
	var lastErr error
	for attempts > 0 {
		bars, err := l.provider.Fetch(ctx, symbol, from, to)
		if err != nil {
			// Hard infrastructure fault: not retried.
			l.logger.Warn("bar fetch failed", "symbol", symbol, "error", err)
			return nil, fmt.Errorf("%w: fetch %s: %v", apperrors.ErrDataUnavailable, symbol, err)
		}
		if len(bars) < l.minBars {
			l.logger.Warn("not enough data points", "symbol", symbol, "bars", len(bars))
			return nil, fmt.Errorf("%w: %s has %d bars, need %d",
				apperrors.ErrInsufficientBars, symbol, len(bars), l.minBars)
		}

		series := core.NewBarSeries(bars)
		if _, err := series.NearestIndex(start); err != nil {
			attempts--
			lastErr = err
			telemetry.BarLoadRetries.Inc()
			l.logger.Warn("alignment lookup failed, reloading",
				"symbol", symbol, "attempts_left", attempts, "error", err)
			continue
		}
		return series, nil
	}

	telemetry.SymbolsSkipped.Inc()
	l.logger.Warn("retry budget exhausted, skipping symbol", "symbol", symbol, "error", lastErr)
	return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrBarAlignment, symbol, lastErr)
}

// IsSkippable reports whether a load error means "skip this symbol and
// carry on" as opposed to a programming error.
func IsSkippable(err error) bool {
	return errors.Is(err, apperrors.ErrDataUnavailable) ||
		errors.Is(err, apperrors.ErrInsufficientBars) ||
		errors.Is(err, apperrors.ErrBarAlignment)
}
