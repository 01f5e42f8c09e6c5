package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"backtester/internal/core"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// PostgresOption defines connection options for the Postgres backend.
type PostgresOption struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	ConnString string
}

type algoRunRow struct {
	AlgoRunID   int64     `gorm:"column:algo_run_id;primaryKey;autoIncrement"`
	BatchID     string    `gorm:"column:batch_id;index"`
	AlgoName    string    `gorm:"column:algo_name"`
	Parameters  string    `gorm:"column:parameters"`
	Environment string    `gorm:"column:environment"`
	RefAlgoRun  int64     `gorm:"column:ref_algo_run"`
	StartTime   time.Time `gorm:"column:start_time"`
}

func (algoRunRow) TableName() string { return "algo_runs" }

type tradeRow struct {
	TradeID     int64     `gorm:"column:trade_id;primaryKey;autoIncrement"`
	AlgoRunID   int64     `gorm:"column:algo_run_id;index"`
	Symbol      string    `gorm:"column:symbol"`
	Operation   string    `gorm:"column:operation"`
	Qty         int64     `gorm:"column:qty"`
	Price       string    `gorm:"column:price"`
	Indicators  string    `gorm:"column:indicators"`
	StopPrice   string    `gorm:"column:stop_price"`
	TargetPrice string    `gorm:"column:target_price"`
	Tstamp      time.Time `gorm:"column:tstamp"`
}

func (tradeRow) TableName() string { return "trades" }

// PostgresStore persists runs and trades in a shared Postgres database.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to Postgres and migrates the schema.
func NewPostgresStore(opt PostgresOption) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(opt.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&algoRunRow{}, &tradeRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, cfg core.RunConfig) (int64, error) {
	row := algoRunRow{
		BatchID:     cfg.BatchID,
		AlgoName:    cfg.StrategyName,
		Parameters:  cfg.Params,
		Environment: cfg.Env,
		RefAlgoRun:  cfg.RefRunID,
		StartTime:   cfg.StartTime,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to create algo run: %w", err)
	}
	return row.AlgoRunID, nil
}

func (s *PostgresStore) SaveTrade(ctx context.Context, trade core.Trade) error {
	indicators, err := json.Marshal(trade.Indicators)
	if err != nil {
		return fmt.Errorf("failed to marshal indicators: %w", err)
	}

	row := tradeRow{
		AlgoRunID:   trade.RunID,
		Symbol:      trade.Symbol,
		Operation:   string(trade.Side),
		Qty:         trade.Qty,
		Price:       trade.Price.String(),
		Indicators:  string(indicators),
		StopPrice:   trade.StopPrice.String(),
		TargetPrice: trade.TargetPrice.String(),
		Tstamp:      trade.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadBatchSymbols(ctx context.Context, batchID string) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).
		Model(&tradeRow{}).
		Distinct("trades.symbol").
		Joins("JOIN algo_runs ON algo_runs.algo_run_id = trades.algo_run_id").
		Where("algo_runs.batch_id = ?", batchID).
		Order("trades.symbol").
		Pluck("trades.symbol", &symbols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load batch symbols: %w", err)
	}
	return symbols, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, since time.Time) ([]core.BatchInfo, error) {
	var rows []algoRunRow
	err := s.db.WithContext(ctx).
		Where("start_time >= ?", since).
		Order("algo_run_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	batches := make([]core.BatchInfo, 0, len(rows))
	for _, r := range rows {
		batches = append(batches, core.BatchInfo{
			RunID:        r.AlgoRunID,
			BatchID:      r.BatchID,
			StrategyName: r.AlgoName,
			Env:          r.Environment,
			StartTime:    r.StartTime,
		})
	}
	return batches, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt PostgresOption) dsn() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String()
}
