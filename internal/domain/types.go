// Package domain defines the core data types shared across the tradesim
// engine: price/signal bars, orders, fills, and completed trades.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Signal values carried on a Bar. SignalLong requests full long exposure,
// SignalFlat requests no exposure.
const (
	SignalFlat = 0
	SignalLong = 1
)

// Bar is one timestamped observation of price and desired exposure.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Signal    int       `json:"signal"`
}

// OrderSide is the direction of an order.
type OrderSide string

// Order sides.
const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order is created when the simulation loop detects a signal transition. It
// exists only long enough to be converted into a Fill and is never persisted.
type Order struct {
	Side           OrderSide
	SignalTime     time.Time
	RequestedPrice float64
}

// Fill is the realized execution of an Order after latency and slippage have
// been applied. Time is the timestamp of the bar whose price was used.
type Fill struct {
	Time  time.Time
	Price float64
}

// Trade records one completed round trip (entry and exit) of a backtest.
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

// Series validation errors. All abort a backtest before any simulation work.
var (
	ErrEmptySeries = errors.New("series is empty")
	ErrBarOrdering = errors.New("bar timestamps must be strictly increasing")
	ErrBadBar      = errors.New("bar has an invalid price or signal")
)

// ValidateSeries checks the invariants required of an input series: at least
// one bar, strictly increasing timestamps, positive prices, binary signals.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i, b := range bars {
		if b.Price <= 0 {
			return fmt.Errorf("bar %d: price %v is not positive: %w", i, b.Price, ErrBadBar)
		}
		if b.Signal != SignalFlat && b.Signal != SignalLong {
			return fmt.Errorf("bar %d: signal %d is not 0 or 1: %w", i, b.Signal, ErrBadBar)
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("bar %d at %s: %w", i, b.Timestamp.Format(time.RFC3339), ErrBarOrdering)
		}
	}
	return nil
}
