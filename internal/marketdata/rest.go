package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"backtester/internal/core"
	apperrors "backtester/pkg/errors"
	"backtester/pkg/httpclient"
)

// RESTProvider fetches minute aggregates from a Polygon-style REST API.
// Transport-level retries and circuit breaking live in the HTTP client;
// any failure that escapes it is a hard data fault for the engine.
type RESTProvider struct {
	client  *httpclient.Client
	apiKey  string
	limiter *rate.Limiter
}

// RESTConfig configures the REST provider.
type RESTConfig struct {
	BaseURL      string
	APIKey       string
	RateLimitRPS int
	Timeout      time.Duration
}

// NewRESTProvider creates a provider over the aggregates endpoint.
func NewRESTProvider(cfg RESTConfig) *RESTProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	return &RESTProvider{
		client:  httpclient.NewClient(cfg.BaseURL, cfg.Timeout),
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

type aggsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Timestamp int64   `json:"t"` // epoch millis
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
}

// Fetch downloads one-minute bars for symbol over [start, end].
func (p *RESTProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/minute/%s/%s",
		symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	body, err := p.client.Get(ctx, path, map[string]string{
		"apiKey": p.apiKey,
		"limit":  "10000",
		"sort":   "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDataUnavailable, err)
	}

	var resp aggsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode aggregates: %v", apperrors.ErrDataUnavailable, err)
	}

	bars := make([]core.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, core.Bar{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      decimal.NewFromFloat(r.Open),
			High:      decimal.NewFromFloat(r.High),
			Low:       decimal.NewFromFloat(r.Low),
			Close:     decimal.NewFromFloat(r.Close),
			Volume:    int64(r.Volume),
		})
	}
	return bars, nil
}
