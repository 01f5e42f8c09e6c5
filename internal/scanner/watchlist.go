package scanner

import (
	"context"
	"fmt"
	"time"

	"backtester/internal/core"
)

// Watchlist proposes a fixed symbol list once at session start.
type Watchlist struct {
	symbols []string
}

// NewWatchlist builds a watchlist scanner from its "symbols" parameter.
func NewWatchlist(params map[string]interface{}, _ Deps) (core.Scanner, error) {
	symbols := stringSlice(params, "symbols")
	if len(symbols) == 0 {
		return nil, fmt.Errorf("watchlist scanner requires a non-empty symbols list")
	}
	return &Watchlist{symbols: symbols}, nil
}

func (w *Watchlist) Name() string { return "watchlist" }

// Recurrence is zero: the watchlist runs exactly once.
func (w *Watchlist) Recurrence() time.Duration { return 0 }

func (w *Watchlist) Run(_ context.Context, _ time.Time) ([]string, error) {
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out, nil
}
