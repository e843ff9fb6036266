package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"tradesim/internal/domain"
)

// ErrInvalidCapital reports a non-positive initial capital.
var ErrInvalidCapital = errors.New("initial capital must be positive")

// Params holds the execution parameters of one backtest run. Immutable for
// the lifetime of the run.
type Params struct {
	InitialCapital float64       `json:"initial_capital"`
	Slippage       float64       `json:"slippage_fraction"`
	Latency        time.Duration `json:"latency"`
}

// Result is the immutable outcome of one backtest run. It is never mutated
// after Run returns.
type Result struct {
	Params      Params               `json:"params"`
	Metrics     Metrics              `json:"metrics"`
	EquityCurve []domain.EquityPoint `json:"equity_curve"`
	Trades      []domain.Trade       `json:"trades"`

	// Warnings records recoverable events such as orders dropped because
	// latency overran the series. Empty on a clean run.
	Warnings []string `json:"warnings,omitempty"`
}

// Runner executes backtest runs. A single Runner may drive many concurrent
// runs: each run owns its portfolio state and shares nothing with the others.
type Runner struct {
	log *slog.Logger
}

// NewRunner creates a Runner that logs through the given logger.
func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log}
}

// Run executes one backtest of the series under the given parameters.
// Validation errors are returned before any simulation work occurs. Identical
// inputs always produce identical output.
func (r *Runner) Run(ctx context.Context, series []domain.Bar, params Params) (*Result, error) {
	if params.InitialCapital <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidCapital, params.InitialCapital)
	}
	if err := domain.ValidateSeries(series); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}

	exec, err := NewExecutionModel(params.Slippage, params.Latency)
	if err != nil {
		return nil, err
	}

	sim := newSimulator(exec, series, params.InitialCapital)
	if err := sim.run(ctx); err != nil {
		return nil, err
	}

	res := &Result{
		Params:      params,
		Metrics:     computeMetrics(sim.pf.curve, sim.trades),
		EquityCurve: sim.pf.curve,
		Trades:      sim.trades,
		Warnings:    sim.warnings,
	}

	r.log.Debug("backtest complete",
		"bars", len(series),
		"trades", res.Metrics.TotalTrades,
		"final_return_pct", res.Metrics.FinalReturnPct,
		"warnings", len(res.Warnings))

	return res, nil
}

// RunVariants executes one run per parameter variant, dispatching up to
// maxWorkers runs concurrently (NumCPU when maxWorkers <= 0). The series is
// shared read-only; results are returned in variant order and published only
// after every worker has finished. A failed variant leaves a nil slot in the
// results and contributes to the joined error.
func (r *Runner) RunVariants(ctx context.Context, series []domain.Bar, variants []Params, maxWorkers int) ([]*Result, error) {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	results := make([]*Result, len(variants))
	errs := make([]error, len(variants))

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for i, p := range variants {
		wg.Add(1)
		go func(i int, p Params) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := r.Run(ctx, series, p)
			if err != nil {
				errs[i] = fmt.Errorf("variant %d: %w", i, err)
				return
			}
			results[i] = res
		}(i, p)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
