package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"tradesim/internal/domain"
)

// ErrUnfillable reports that latency pushed an order past the end of the
// series. It is recoverable: the simulation keeps its prior state and surfaces
// the dropped order as a warning on the result.
var ErrUnfillable = errors.New("order unfillable: latency extends past end of series")

// ErrInvalidParams reports a negative slippage fraction or latency.
var ErrInvalidParams = errors.New("invalid execution parameters")

// ExecutionModel converts a desired trade at a signal bar into a realized
// fill. Latency is applied first and selects which bar's price is used;
// slippage then perturbs that price. The model is stateless across calls.
type ExecutionModel struct {
	slippage float64       // fractional price degradation per fill
	latency  time.Duration // delay between signal and execution
}

// NewExecutionModel creates an ExecutionModel with the given slippage
// fraction (e.g. 0.0005 = 5 basis points) and latency. Both must be >= 0.
func NewExecutionModel(slippage float64, latency time.Duration) (*ExecutionModel, error) {
	if slippage < 0 {
		return nil, fmt.Errorf("%w: slippage fraction %v is negative", ErrInvalidParams, slippage)
	}
	if latency < 0 {
		return nil, fmt.Errorf("%w: latency %v is negative", ErrInvalidParams, latency)
	}
	return &ExecutionModel{slippage: slippage, latency: latency}, nil
}

// Fill locates the first bar at or after order.SignalTime+latency and derives
// the fill price from that bar's price: buys pay price*(1+slippage), sells
// receive price*(1-slippage). Returns ErrUnfillable when no such bar exists.
func (m *ExecutionModel) Fill(order domain.Order, series []domain.Bar) (domain.Fill, error) {
	earliest := order.SignalTime.Add(m.latency)
	idx := sort.Search(len(series), func(i int) bool {
		return !series[i].Timestamp.Before(earliest)
	})
	if idx == len(series) {
		return domain.Fill{}, ErrUnfillable
	}

	price := series[idx].Price
	switch order.Side {
	case domain.OrderSideBuy:
		price *= 1 + m.slippage
	case domain.OrderSideSell:
		price *= 1 - m.slippage
	default:
		return domain.Fill{}, fmt.Errorf("unknown order side %q", order.Side)
	}

	return domain.Fill{Time: series[idx].Timestamp, Price: price}, nil
}
