// Package store persists algo runs and trades. The SQLite backend is
// the default for local runs; Postgres serves shared result databases.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"backtester/internal/core"
)

// MemoryStore is an in-memory TradeStore used by tests and dry runs.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]core.RunConfig
	trades []core.Trade
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		runs:   make(map[int64]core.RunConfig),
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, cfg core.RunConfig) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.runs[id] = cfg
	return id, nil
}

func (s *MemoryStore) SaveTrade(_ context.Context, trade core.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

func (s *MemoryStore) LoadBatchSymbols(_ context.Context, batchID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runIDs := make(map[int64]bool)
	for id, cfg := range s.runs {
		if cfg.BatchID == batchID {
			runIDs[id] = true
		}
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, t := range s.trades {
		if runIDs[t.RunID] && !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *MemoryStore) ListBatches(_ context.Context, since time.Time) ([]core.BatchInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batches []core.BatchInfo
	for id, cfg := range s.runs {
		if cfg.StartTime.Before(since) {
			continue
		}
		batches = append(batches, core.BatchInfo{
			RunID:        id,
			BatchID:      cfg.BatchID,
			StrategyName: cfg.StrategyName,
			Env:          cfg.Env,
			StartTime:    cfg.StartTime,
		})
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].RunID < batches[j].RunID })
	return batches, nil
}

func (s *MemoryStore) Close() error { return nil }

// Trades returns a copy of every recorded trade, in insertion order.
func (s *MemoryStore) Trades() []core.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}
