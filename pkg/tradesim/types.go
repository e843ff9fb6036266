package tradesim

import "time"

// Bar is one timestamped observation of price and desired exposure, as
// submitted inline on a backtest request and stored in the series store.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Signal    int       `json:"signal"`
}

// BacktestRequest is the JSON body for POST /api/v1/backtest. The series
// comes either inline via Bars or from the server's series store via Symbol
// plus an optional date range.
type BacktestRequest struct {
	Symbol string     `json:"symbol,omitempty"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
	Bars   []Bar      `json:"bars,omitempty"`

	InitialCapital   float64 `json:"initial_capital"`
	SlippageFraction float64 `json:"slippage_fraction"`
	LatencyMs        int64   `json:"latency_ms"`

	// Persist stores a summary of the run when the server has a run store
	// configured.
	Persist bool `json:"persist,omitempty"`
}

// Params echoes the execution parameters a run was executed with.
type Params struct {
	InitialCapital float64       `json:"initial_capital"`
	Slippage       float64       `json:"slippage_fraction"`
	Latency        time.Duration `json:"latency"`
}

// Metrics summarizes the risk/return profile of a completed backtest.
type Metrics struct {
	FinalReturnPct      float64 `json:"final_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	SortinoRatio        float64 `json:"sortino_ratio"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	TotalTrades         int     `json:"total_trades"`
	WinRate             float64 `json:"win_rate"`
	ProfitFactor        float64 `json:"profit_factor"`
}

// Trade records one completed round trip (entry and exit) of a run.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Qty        float64   `json:"qty"`
	PnL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"return_pct"`
}

// EquityPoint is one mark-to-market valuation of the portfolio.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Result is the full outcome of one backtest run.
type Result struct {
	Params      Params        `json:"params"`
	Metrics     Metrics       `json:"metrics"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Trades      []Trade       `json:"trades"`

	// Warnings records recoverable events such as orders dropped because
	// latency overran the series. Empty on a clean run.
	Warnings []string `json:"warnings,omitempty"`
}

// BacktestResponse is the JSON reply for POST /api/v1/backtest.
type BacktestResponse struct {
	Symbol string  `json:"symbol,omitempty"`
	RunID  int64   `json:"run_id,omitempty"`
	Result *Result `json:"result"`
}

// RunSummary is one persisted run summary returned by GET /api/v1/results.
type RunSummary struct {
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

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON reply for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
