package marketdata

import (
	"context"
	"time"

	"backtester/internal/core"
	"backtester/pkg/concurrency"
)

// PrefetchResult pairs a symbol with its loaded series or load error.
type PrefetchResult struct {
	Symbol string
	Series *core.BarSeries
	Err    error
}

// Prefetch loads bars for a known-in-advance symbol list in parallel
// before the virtual clock starts. Results come back in input order, so
// seeding stays deterministic regardless of completion order. Symbols
// discovered mid-session by scanners are loaded serially by the driver
// loop instead; the simulation itself never fans out.
func Prefetch(ctx context.Context, loader *Loader, symbols []string, start time.Time, logger core.ILogger) []PrefetchResult {
	results := make([]PrefetchResult, len(symbols))

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "bar_prefetch",
		MaxWorkers:  4,
		MaxCapacity: len(symbols) + 1,
	}, logger)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		_ = pool.Submit(func() {
			series, err := loader.Load(ctx, symbol, start)
			results[i] = PrefetchResult{Symbol: symbol, Series: series, Err: err}
		})
	}
	pool.Wait()

	return results
}
