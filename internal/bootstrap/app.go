// Package bootstrap assembles the application from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"backtester/internal/config"
	"backtester/internal/core"
	"backtester/internal/marketdata"
	"backtester/internal/scanner"
	"backtester/internal/store"
	"backtester/internal/strategy"
	"backtester/pkg/logging"
	"backtester/pkg/telemetry"
)

// App holds the core dependencies built from configuration.
type App struct {
	Cfg      *config.Config
	Logger   core.ILogger
	Store    core.TradeStore
	Provider core.BarProvider
	Loader   *marketdata.Loader
	Scanners []core.Scanner
	Metrics  *telemetry.Server

	strategies *strategy.Registry
}

// NewApp creates a new App instance by bootstrapping all dependencies.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logging.SetGlobalLogger(logger)

	tradeStore, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("trade store: %w", err)
	}

	provider := marketdata.NewRESTProvider(marketdata.RESTConfig{
		BaseURL:      cfg.Data.BaseURL,
		APIKey:       cfg.Data.APIKey,
		RateLimitRPS: cfg.Data.RateLimitRPS,
		Timeout:      time.Duration(cfg.Data.TimeoutSeconds) * time.Second,
	})
	loader := marketdata.NewLoader(provider, cfg.Session.LookbackDays, logger)

	scanners, err := buildScanners(cfg, provider, logger)
	if err != nil {
		return nil, fmt.Errorf("scanners: %w", err)
	}

	app := &App{
		Cfg:        cfg,
		Logger:     logger,
		Store:      tradeStore,
		Provider:   provider,
		Loader:     loader,
		Scanners:   scanners,
		strategies: strategy.NewRegistry(),
	}
	if cfg.Telemetry.EnableMetrics {
		app.Metrics = telemetry.NewServer(cfg.Telemetry.MetricsPort, logger)
	}
	return app, nil
}

// BuildStrategies instantiates the configured strategies in order.
func (a *App) BuildStrategies() ([]core.Strategy, error) {
	out := make([]core.Strategy, 0, len(a.Cfg.Strategies))
	for _, sc := range a.Cfg.Strategies {
		s, err := a.strategies.Build(sc.Name, sc.Params, strategy.Deps{Logger: a.Logger})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Runner is an interface for components that can be run and stopped gracefully.
type Runner interface {
	Run(ctx context.Context) error
}

// Run orchestrates the application lifecycle, including signal handling.
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if a.Metrics != nil {
		a.Metrics.Start()
		defer func() { _ = a.Metrics.Stop(context.Background()) }()
	}

	for _, runner := range runners {
		r := runner
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		a.Logger.Error("application stopped with error", "error", err)
		return err
	}
	return nil
}

func buildStore(cfg *config.Config) (core.TradeStore, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.SQLite.Path)
	case "postgres":
		return store.NewPostgresStore(store.PostgresOption{
			Host:       cfg.Store.Postgres.Host,
			Port:       cfg.Store.Postgres.Port,
			User:       cfg.Store.Postgres.User,
			Password:   cfg.Store.Postgres.Password,
			Database:   cfg.Store.Postgres.Database,
			SSLMode:    cfg.Store.Postgres.SSLMode,
			ConnString: cfg.Store.Postgres.ConnString,
		})
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func buildScanners(cfg *config.Config, provider core.BarProvider, logger core.ILogger) ([]core.Scanner, error) {
	registry := scanner.NewRegistry()
	out := make([]core.Scanner, 0, len(cfg.Scanners))
	for _, sc := range cfg.Scanners {
		s, err := registry.Build(sc.Name, sc.Params, scanner.Deps{Bars: provider, Logger: logger})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
