// Package telemetry exposes Prometheus metrics for the backtest engine.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksProcessed counts virtual minutes the driver has advanced.
	TicksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backtester_ticks_processed_total",
		Help: "Virtual minutes advanced by the session driver",
	})

	// TradesRecorded counts trades persisted to the trade store, by side.
	TradesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtester_trades_recorded_total",
		Help: "Trades persisted to the trade store",
	}, []string{"side"})

	// SymbolsTracked reports the number of symbols currently tracked.
	SymbolsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backtester_symbols_tracked",
		Help: "Symbols currently tracked by the state store",
	})

	// SymbolsSkipped counts symbols dropped after data-load failures.
	SymbolsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backtester_symbols_skipped_total",
		Help: "Symbols skipped because their bar data could not be loaded",
	})

	// ScannerErrors counts isolated scanner failures, by scanner.
	ScannerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtester_scanner_errors_total",
		Help: "Scanner runs that failed and were isolated",
	}, []string{"scanner"})

	// StrategyErrors counts isolated strategy failures, by strategy.
	StrategyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtester_strategy_errors_total",
		Help: "Strategy runs that failed and were isolated",
	}, []string{"strategy"})

	// BarLoadRetries counts bar-load attempts consumed by alignment retries.
	BarLoadRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backtester_bar_load_retries_total",
		Help: "Bar load attempts retried after alignment lookup failures",
	})

	// InvariantViolations counts tick/bar timestamp mismatches.
	InvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backtester_invariant_violations_total",
		Help: "Symbols halted after a tick/bar timestamp mismatch",
	})
)
