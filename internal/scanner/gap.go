package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backtester/internal/core"
	"backtester/pkg/logging"
	"backtester/pkg/tradingutils"
)

// Gap scans a configured universe for symbols gapping up from the prior
// close by at least a minimum percentage. It re-runs on its recurrence so
// intraday movers surface after the open.
type Gap struct {
	bars       core.BarProvider
	logger     core.ILogger
	universe   []string
	minGapPct  float64
	maxSymbols int
	lookback   time.Duration
	rec        time.Duration
}

type gapCandidate struct {
	symbol string
	gapPct float64
}

// NewGap builds a gap scanner. Required parameter: "universe". Optional:
// "min_gap_percent" (default 3.0), "max_symbols" (default 20),
// "recurrence_minutes" (default 0, run once).
func NewGap(params map[string]interface{}, deps Deps) (core.Scanner, error) {
	universe := stringSlice(params, "universe")
	if len(universe) == 0 {
		return nil, fmt.Errorf("gap scanner requires a non-empty universe")
	}
	if deps.Bars == nil {
		return nil, fmt.Errorf("gap scanner requires a bar provider")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gap{
		bars:       deps.Bars,
		logger:     logger.WithField("scanner", "gap"),
		universe:   universe,
		minGapPct:  floatValue(params, "min_gap_percent", 3.0),
		maxSymbols: intValue(params, "max_symbols", 20),
		lookback:   48 * time.Hour,
		rec:        recurrence(params),
	}, nil
}

func (g *Gap) Name() string { return "gap" }

func (g *Gap) Recurrence() time.Duration { return g.rec }

// Run measures each universe symbol's move from the first to the latest
// bar of the lookback window and proposes the strongest movers. Universe
// order breaks ties so proposals stay reproducible.
func (g *Gap) Run(ctx context.Context, now time.Time) ([]string, error) {
	candidates := make([]gapCandidate, 0, len(g.universe))
	for _, symbol := range g.universe {
		bars, err := g.bars.Fetch(ctx, symbol, now.Add(-g.lookback), now)
		if err != nil {
			g.logger.Debug("skipping universe symbol", "symbol", symbol, "error", err)
			continue
		}
		if len(bars) < 2 {
			continue
		}
		series := core.NewBarSeries(bars)
		base := series.At(0).Close
		if base.IsZero() {
			continue
		}
		gapPct, _ := tradingutils.PercentChange(base, series.Last().Close).Float64()
		if gapPct >= g.minGapPct {
			candidates = append(candidates, gapCandidate{symbol: symbol, gapPct: gapPct})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].gapPct > candidates[j].gapPct
	})
	if len(candidates) > g.maxSymbols {
		candidates = candidates[:g.maxSymbols]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.symbol
	}
	return out, nil
}
