package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BarProvider fetches historical minute bars for a symbol over a window.
// Implementations signal upstream failures with apperrors.ErrDataUnavailable.
type BarProvider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// TradeStore persists algo runs and trades and answers batch queries.
// SaveTrade failures are fatal to a session: a trade that cannot be
// recorded invalidates the run's integrity.
type TradeStore interface {
	CreateRun(ctx context.Context, cfg RunConfig) (int64, error)
	SaveTrade(ctx context.Context, trade Trade) error
	LoadBatchSymbols(ctx context.Context, batchID string) ([]string, error)
	ListBatches(ctx context.Context, since time.Time) ([]BatchInfo, error)
	Close() error
}

// Scanner proposes symbols to track, optionally on a recurring schedule.
// A zero recurrence means the scanner runs exactly once at session start.
type Scanner interface {
	Name() string
	Recurrence() time.Duration
	Run(ctx context.Context, now time.Time) ([]string, error)
}

// Strategy decides whether to trade a symbol given its price history and
// current position. Any component satisfying this shape may be registered;
// the engine has no compile-time knowledge of concrete implementations.
type Strategy interface {
	Name() string
	Type() StrategyType
	Run(ctx context.Context, req StrategyRequest) (bool, Order, error)
	BuyCallback(ctx context.Context, symbol string, price decimal.Decimal, qty int64) error
	SellCallback(ctx context.Context, symbol string, price decimal.Decimal, qty int64) error
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
