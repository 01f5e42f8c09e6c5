// Package mock provides scripted collaborators for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"backtester/internal/core"
)

// BarProvider is a scripted core.BarProvider. Responses are queued per
// symbol and consumed one per Fetch, so tests can model a provider that
// returns different data on each attempt. When a symbol's queue is
// exhausted the last response repeats.
type BarProvider struct {
	mu        sync.Mutex
	responses map[string][]FetchResponse
	calls     map[string]int
}

// FetchResponse is one scripted Fetch outcome.
type FetchResponse struct {
	Bars []core.Bar
	Err  error
}

// NewBarProvider creates an empty scripted provider.
func NewBarProvider() *BarProvider {
	return &BarProvider{
		responses: make(map[string][]FetchResponse),
		calls:     make(map[string]int),
	}
}

// Script queues responses for symbol in order.
func (p *BarProvider) Script(symbol string, responses ...FetchResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[symbol] = append(p.responses[symbol], responses...)
}

// Fetch pops the next scripted response for symbol.
func (p *BarProvider) Fetch(_ context.Context, symbol string, _, _ time.Time) ([]core.Bar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.responses[symbol]
	n := p.calls[symbol]
	p.calls[symbol] = n + 1

	if len(queue) == 0 {
		return nil, nil
	}
	if n >= len(queue) {
		n = len(queue) - 1
	}
	return queue[n].Bars, queue[n].Err
}

// FetchCount reports how many times symbol was fetched.
func (p *BarProvider) FetchCount(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[symbol]
}

// MinuteBars generates count consecutive one-minute bars starting at
// start, with closes walking from base in steps of step.
func MinuteBars(start time.Time, count int, base, step float64) []core.Bar {
	bars := make([]core.Bar, count)
	for i := range bars {
		close := decimal.NewFromFloat(base + step*float64(i))
		bars[i] = core.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      close,
			High:      close,
			Low:       close,
			Close:     close,
			Volume:    1000,
		}
	}
	return bars
}
