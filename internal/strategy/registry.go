package strategy

import (
	"fmt"

	"backtester/internal/core"
	apperrors "backtester/pkg/errors"
)

// Deps are the collaborators a strategy factory may need.
type Deps struct {
	Logger core.ILogger
}

// Factory builds a strategy from its configured parameters.
type Factory func(params map[string]interface{}, deps Deps) (core.Strategy, error)

// Registry maps strategy names to factories. It is populated explicitly at
// startup; the engine never loads code at runtime.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry pre-populated with the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("ma_cross", NewMACross)
	return r
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build instantiates the named strategy.
func (r *Registry) Build(name string, params map[string]interface{}, deps Deps) (core.Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownStrategy, name)
	}
	return f(params, deps)
}

func intParam(params map[string]interface{}, key string, fallback int) int {
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

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
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
