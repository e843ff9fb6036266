// Package store provides persistence for price/signal series and backtest
// run summaries. The simulation engine itself never touches storage; these
// stores sit at its input and output boundaries.
package store

import (
	"context"
	"time"

	"tradesim/internal/domain"
)

// SeriesStore persists and retrieves price/signal series.
type SeriesStore interface {
	// WriteSeries persists a series for the given symbol.
	WriteSeries(ctx context.Context, symbol string, bars []domain.Bar) error

	// ReadSeries returns the series for symbol within [start, end].
	ReadSeries(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored series.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunStore persists and retrieves backtest run summaries.
type RunStore interface {
	// SaveRun inserts a run summary and assigns its ID.
	SaveRun(ctx context.Context, run *RunRecord) error

	// GetRun retrieves a single run by its ID.
	GetRun(ctx context.Context, id int64) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first, optionally
	// filtered by symbol, up to limit.
	ListRuns(ctx context.Context, symbol string, limit int) ([]RunRecord, error)
}

// RunRecord is the persisted summary of one backtest run.
type RunRecord struct {
	ID             int64     `json:"id"`
	Symbol         string    `json:"symbol"`
	CreatedAt      time.Time `json:"created_at"`
	InitialCapital float64   `json:"initial_capital"`
	Slippage       float64   `json:"slippage_fraction"`
	LatencyMs      int64     `json:"latency_ms"`
	FinalReturnPct float64   `json:"final_return_pct"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	TotalTrades    int       `json:"total_trades"`
	Warnings       []string  `json:"warnings,omitempty"`
}
