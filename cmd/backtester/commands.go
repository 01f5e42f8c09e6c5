package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"backtester/internal/bootstrap"
	"backtester/internal/core"
	"backtester/internal/engine"
	"backtester/internal/state"
	"backtester/internal/strategy"
	"backtester/pkg/cli"
)

const defaultPortfolioValue = 100000

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "backtester",
		Short: "Minute-resolution trading strategy backtester",
		Long: `Backtester replays historical minute bars through scanners and an
ordered strategy pipeline, recording every trade decision under a batch id.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "configs/backtester.yaml", "Configuration file path")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newBatchesCmd())

	return rootCmd
}

// newRunCmd creates the run command
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [batch-id]",
		Short: "Run a backtest session",
		Long: `Run a single backtest session. With a batch-id argument the session
replays the symbols traded in that batch; otherwise symbols come from the
--symbols flag or the configuration file. Every session records its trades
under a freshly generated batch id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			symbolList, _ := cmd.Flags().GetString("symbols")
			strict, _ := cmd.Flags().GetBool("strict")
			duration, _ := cmd.Flags().GetDuration("duration")
			debug, _ := cmd.Flags().GetBool("debug")

			refBatchID := ""
			if len(args) == 1 {
				refBatchID = args[0]
				if err := cli.ValidateBatchID(refBatchID); err != nil {
					return err
				}
			}
			symbols, err := cli.ParseSymbols(symbolList)
			if err != nil {
				return err
			}

			return runSession(configPath, runOptions{
				RefBatchID: refBatchID,
				Symbols:    symbols,
				Strict:     strict,
				Duration:   duration,
				Debug:      debug,
			})
		},
	}

	cmd.Flags().String("symbols", "", "Comma-separated symbols to backtest (overrides config)")
	cmd.Flags().Bool("strict", false, "Replay only the symbols traded in the referenced batch; fail if it recorded none")
	cmd.Flags().Duration("duration", 0, "Cut the session short, e.g. 90m")
	cmd.Flags().Bool("debug", false, "Log every strategy execution")

	return cmd
}

// newBatchesCmd creates the batches command
func newBatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List recently recorded backtest batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			days, _ := cmd.Flags().GetInt("days")
			return listBatches(configPath, days)
		},
	}

	cmd.Flags().Int("days", 30, "How many days back to list")

	return cmd
}

type runOptions struct {
	RefBatchID string
	Symbols    []string
	Strict     bool
	Duration   time.Duration
	Debug      bool
}

type sessionRunner struct {
	app  *bootstrap.App
	opts runOptions
}

func runSession(configPath string, opts runOptions) error {
	app, err := bootstrap.NewApp(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(&sessionRunner{app: app, opts: opts})
}

func (r *sessionRunner) Run(ctx context.Context) error {
	cfg := r.app.Cfg

	start, end, err := cfg.SessionWindow()
	if err != nil {
		return err
	}
	if r.opts.Duration > 0 {
		end = start.Add(r.opts.Duration)
	}

	symbols := r.opts.Symbols
	if len(symbols) == 0 && r.opts.RefBatchID != "" {
		symbols, err = r.app.Store.LoadBatchSymbols(ctx, r.opts.RefBatchID)
		if err != nil {
			return fmt.Errorf("load batch %s: %w", r.opts.RefBatchID, err)
		}
		if r.opts.Strict && len(symbols) == 0 {
			return fmt.Errorf("batch %s has no recorded symbols", r.opts.RefBatchID)
		}
	}
	if len(symbols) == 0 {
		symbols = cfg.Session.Symbols
	}

	portfolioValue := cfg.Session.PortfolioValue
	if portfolioValue == 0 {
		portfolioValue = defaultPortfolioValue
	}

	batchID := uuid.NewString()
	// The batch id is the handle for inspecting results, so print it even
	// when the session aborts partway.
	defer fmt.Printf("new batch-id: %s\n", batchID)

	stateStore := state.NewStore()
	pipeline := strategy.NewPipeline(stateStore, r.app.Store, r.app.Logger)

	strategies, err := r.app.BuildStrategies()
	if err != nil {
		return err
	}
	for i, s := range strategies {
		params, err := json.Marshal(cfg.Strategies[i].Params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", s.Name(), err)
		}
		runID, err := r.app.Store.CreateRun(ctx, core.RunConfig{
			BatchID:      batchID,
			StrategyName: s.Name(),
			Params:       string(params),
			Env:          cfg.System.Env,
			StartTime:    time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("create run for %s: %w", s.Name(), err)
		}
		pipeline.Register(s, runID)
	}

	session, err := engine.NewSession(ctx, engine.SessionConfig{
		BatchID:        batchID,
		Start:          start,
		End:            end,
		Symbols:        symbols,
		PortfolioValue: decimal.NewFromFloat(portfolioValue),
		Debug:          r.opts.Debug,
	}, stateStore, pipeline, r.app.Loader, r.app.Scanners, r.app.Store, r.app.Logger)
	if err != nil {
		return err
	}

	fmt.Printf("backtesting %s %s -> %s\n",
		cfg.Session.Date, start.Format("15:04"), end.Format("15:04"))

	for {
		more, messages, err := session.NextMinute(ctx)
		for _, msg := range messages {
			fmt.Println(msg)
		}
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	messages, err := session.Liquidate(ctx)
	for _, msg := range messages {
		fmt.Println(msg)
	}
	return err
}

func listBatches(configPath string, days int) error {
	app, err := bootstrap.NewApp(configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	batches, err := app.Store.ListBatches(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println("no batches recorded")
		return nil
	}

	fmt.Printf("%-8s %-38s %-16s %-10s %s\n", "RUN", "BATCH", "STRATEGY", "ENV", "START")
	for _, b := range batches {
		fmt.Printf("%-8d %-38s %-16s %-10s %s\n",
			b.RunID, b.BatchID, b.StrategyName, b.Env, b.StartTime.Format(time.RFC3339))
	}
	return nil
}
