// Package backtest implements the backtest execution and risk simulation
// engine: it replays a time-ordered price/signal series through an execution
// model with slippage and latency, tracks portfolio state bar by bar, and
// derives risk/return metrics from the resulting equity curve.
package backtest

import (
	"context"
	"fmt"
	"time"

	"tradesim/internal/domain"
)

// positionState is the state of the simulation loop's two-state machine.
type positionState int

const (
	stateFlat positionState = iota // no position, all value in cash
	stateLong                      // fully invested, all value in shares
)

// portfolio holds the mutable state of one simulation run. It is owned by
// exactly one simulator and never shared across runs.
type portfolio struct {
	cash   float64
	shares float64
	curve  []domain.EquityPoint
}

// markToMarket appends one equity point valued at the given bar price.
func (p *portfolio) markToMarket(ts time.Time, price float64) {
	p.curve = append(p.curve, domain.EquityPoint{
		Timestamp: ts,
		Equity:    p.cash + p.shares*price,
	})
}

// simulator walks a series bar by bar, detecting signal transitions and
// requesting fills from the execution model. A buy deploys all available cash
// into shares; a sell liquidates all shares into cash.
type simulator struct {
	exec   *ExecutionModel
	series []domain.Bar

	pf         portfolio
	state      positionState
	prevSignal int

	entry    *domain.Fill // fill that opened the current position, nil while flat
	trades   []domain.Trade
	warnings []string
}

func newSimulator(exec *ExecutionModel, series []domain.Bar, initialCapital float64) *simulator {
	return &simulator{
		exec:   exec,
		series: series,
		pf: portfolio{
			cash:  initialCapital,
			curve: make([]domain.EquityPoint, 0, len(series)),
		},
		state:      stateFlat,
		prevSignal: domain.SignalFlat,
	}
}

// run processes every bar in timestamp order. Cancellation is honoured only
// between bars so that the equity curve always holds exactly one point per
// processed bar.
func (s *simulator) run(ctx context.Context) error {
	for _, bar := range s.series {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.step(bar)
	}
	return nil
}

// step handles a single bar: trade on a signal transition, then mark to
// market. Repeated identical signals never re-trigger fills.
func (s *simulator) step(bar domain.Bar) {
	if bar.Signal != s.prevSignal {
		switch {
		case bar.Signal == domain.SignalLong && s.state == stateFlat:
			s.enterLong(bar)
		case bar.Signal == domain.SignalFlat && s.state == stateLong:
			s.exitLong(bar)
		}
		// The transition is consumed even when the order was dropped: an
		// unfillable order is abandoned, not retried on later bars.
		s.prevSignal = bar.Signal
	}

	s.pf.markToMarket(bar.Timestamp, bar.Price)
}

func (s *simulator) enterLong(bar domain.Bar) {
	order := domain.Order{
		Side:           domain.OrderSideBuy,
		SignalTime:     bar.Timestamp,
		RequestedPrice: bar.Price,
	}
	fill, err := s.exec.Fill(order, s.series)
	if err != nil {
		s.warn(bar, order.Side, err)
		return
	}

	s.pf.shares = s.pf.cash / fill.Price
	s.pf.cash = 0
	s.entry = &fill
	s.state = stateLong
}

func (s *simulator) exitLong(bar domain.Bar) {
	order := domain.Order{
		Side:           domain.OrderSideSell,
		SignalTime:     bar.Timestamp,
		RequestedPrice: bar.Price,
	}
	fill, err := s.exec.Fill(order, s.series)
	if err != nil {
		s.warn(bar, order.Side, err)
		return
	}

	proceeds := s.pf.shares * fill.Price
	cost := s.pf.shares * s.entry.Price
	s.trades = append(s.trades, domain.Trade{
		EntryTime:  s.entry.Time,
		ExitTime:   fill.Time,
		EntryPrice: s.entry.Price,
		ExitPrice:  fill.Price,
		Qty:        s.pf.shares,
		PnL:        proceeds - cost,
		ReturnPct:  (proceeds/cost - 1) * 100,
	})

	s.pf.cash = proceeds
	s.pf.shares = 0
	s.entry = nil
	s.state = stateFlat
}

func (s *simulator) warn(bar domain.Bar, side domain.OrderSide, err error) {
	s.warnings = append(s.warnings, fmt.Sprintf(
		"%s signal at %s dropped: %v", side, bar.Timestamp.Format(time.RFC3339), err))
}
