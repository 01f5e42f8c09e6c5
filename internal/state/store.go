// Package state holds all per-symbol mutable simulation state.
package state

import (
	"time"

	"github.com/shopspring/decimal"

	"backtester/internal/core"
)

// NoOwner marks a track that no strategy decision has touched yet.
const NoOwner = -1

// Track is the per-symbol state record. The owning strategy is kept as an
// index into the session's pipeline registration list, not a live reference.
type Track struct {
	Symbol         string
	Position       int64
	Series         *core.BarSeries
	BuyTime        time.Time
	BuyIndicators  core.Indicators
	SellIndicators core.Indicators
	StopPrice      decimal.Decimal
	TargetPrice    decimal.Decimal
	Owner          int
	Halted         bool // set on a tick/bar timestamp mismatch; skipped for the rest of the session
}

// Store maps symbols to their tracks. It has exactly one mutator (the
// session driver loop) and readers never run concurrently with it, so no
// locking is required.
type Store struct {
	tracks map[string]*Track
}

// NewStore creates an empty state store scoped to one session.
func NewStore() *Store {
	return &Store{tracks: make(map[string]*Track)}
}

// Seed registers a symbol with its loaded bar series. Existing tracks are
// left untouched so a scanner re-surfacing a symbol cannot reset state.
func (s *Store) Seed(symbol string, series *core.BarSeries) *Track {
	if t, ok := s.tracks[symbol]; ok {
		return t
	}
	t := &Track{
		Symbol: symbol,
		Series: series,
		Owner:  NoOwner,
	}
	s.tracks[symbol] = t
	return t
}

// Get returns the track for symbol, or nil when untracked.
func (s *Store) Get(symbol string) *Track {
	return s.tracks[symbol]
}

// Has reports whether symbol is tracked.
func (s *Store) Has(symbol string) bool {
	_, ok := s.tracks[symbol]
	return ok
}

// Len returns the number of tracked symbols.
func (s *Store) Len() int { return len(s.tracks) }

// ApplyDecision mutates a track for an acted-upon decision and returns the
// indicator snapshot that belongs on the persisted trade.
//
// The sign/side rule mirrors the original engine: a buy with positive
// quantity or a sell with negative quantity adds the quantity to the
// position; any sign/side mismatch subtracts it instead, acting as a
// position-reducing adjustment rather than being rejected.
func (s *Store) ApplyDecision(t *Track, order core.Order, owner int, now time.Time) core.Indicators {
	consistent := (order.Side == core.SideBuy && order.Qty > 0) ||
		(order.Side == core.SideSell && order.Qty < 0)
	if consistent {
		t.Position += order.Qty
		t.BuyTime = now.Truncate(time.Minute)
	} else {
		t.Position -= order.Qty
	}

	if !order.StopPrice.IsZero() {
		t.StopPrice = order.StopPrice
	}
	if !order.TargetPrice.IsZero() {
		t.TargetPrice = order.TargetPrice
	}

	var snapshot core.Indicators
	if order.Side == core.SideBuy {
		t.BuyIndicators = order.Indicators
		snapshot = t.BuyIndicators
	} else {
		t.SellIndicators = order.Indicators
		snapshot = t.SellIndicators
	}

	t.Owner = owner
	return snapshot
}

// Symbols returns the tracked symbols in unspecified order. Callers that
// need deterministic iteration keep their own discovery-ordered list.
func (s *Store) Symbols() []string {
	out := make([]string, 0, len(s.tracks))
	for sym := range s.tracks {
		out = append(out, sym)
	}
	return out
}
