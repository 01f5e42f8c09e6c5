// Package scanner implements symbol discovery for backtest sessions.
//
// Scanners are registered through an explicit name->factory registry
// populated at startup; no runtime code loading is involved. Anything
// satisfying core.Scanner may be registered.
package scanner

import (
	"fmt"
	"time"

	"backtester/internal/core"
	apperrors "backtester/pkg/errors"
)

// Deps are the collaborators a scanner factory may need.
type Deps struct {
	Bars   core.BarProvider
	Logger core.ILogger
}

// Factory builds a scanner from its configured parameters.
type Factory func(params map[string]interface{}, deps Deps) (core.Scanner, error)

// Registry maps scanner names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry pre-populated with the built-in scanners.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("watchlist", NewWatchlist)
	r.Register("gap", NewGap)
	return r
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build instantiates the named scanner.
func (r *Registry) Build(name string, params map[string]interface{}, deps Deps) (core.Scanner, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownScanner, name)
	}
	return f(params, deps)
}

// ShouldRun decides whether a scanner fires on this tick. Every scanner
// runs at session start; afterwards only scanners with a positive
// recurrence fire, on minutes where the elapsed session time is an exact
// multiple of the recurrence.
func ShouldRun(sc core.Scanner, now, sessionStart time.Time) bool {
	if now.Equal(sessionStart) {
		return true
	}
	rec := sc.Recurrence()
	if rec <= 0 {
		return false
	}
	elapsed := int(now.Sub(sessionStart) / time.Minute)
	recMinutes := int(rec / time.Minute)
	if recMinutes <= 0 {
		return false
	}
	return elapsed%recMinutes == 0
}

// Helpers for pulling typed values out of YAML-decoded parameter maps.

func stringSlice(params map[string]interface{}, key string) []string {
	raw, ok := params[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intValue(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func floatValue(params map[string]interface{}, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func recurrence(params map[string]interface{}) time.Duration {
	return time.Duration(intValue(params, "recurrence_minutes", 0)) * time.Minute
}
