package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"tradesim/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// dailySeries builds a daily-bar series from parallel price/signal slices.
func dailySeries(prices []float64, signals []int) []domain.Bar {
	bars := make([]domain.Bar, len(prices))
	for i := range prices {
		bars[i] = domain.Bar{
			Timestamp: t0.AddDate(0, 0, i),
			Price:     prices[i],
			Signal:    signals[i],
		}
	}
	return bars
}

func TestNewExecutionModel_RejectsNegativeParams(t *testing.T) {
	if _, err := NewExecutionModel(-0.001, 0); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("NewExecutionModel(negative slippage) = %v, want ErrInvalidParams", err)
	}
	if _, err := NewExecutionModel(0, -time.Second); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("NewExecutionModel(negative latency) = %v, want ErrInvalidParams", err)
	}
}

func TestFill_SlippageFormula(t *testing.T) {
	series := dailySeries([]float64{100}, []int{1})
	m, err := NewExecutionModel(0.01, 0)
	if err != nil {
		t.Fatalf("NewExecutionModel: %v", err)
	}

	buy, err := m.Fill(domain.Order{Side: domain.OrderSideBuy, SignalTime: t0, RequestedPrice: 100}, series)
	if err != nil {
		t.Fatalf("Fill(buy): %v", err)
	}
	if math.Abs(buy.Price-101) > 1e-12 {
		t.Errorf("buy fill price = %v, want 101", buy.Price)
	}

	sell, err := m.Fill(domain.Order{Side: domain.OrderSideSell, SignalTime: t0, RequestedPrice: 100}, series)
	if err != nil {
		t.Fatalf("Fill(sell): %v", err)
	}
	if math.Abs(sell.Price-99) > 1e-12 {
		t.Errorf("sell fill price = %v, want 99", sell.Price)
	}
}

func TestFill_LatencySelectsLaterBar(t *testing.T) {
	series := dailySeries([]float64{100, 110, 120}, []int{1, 1, 1})

	m, err := NewExecutionModel(0, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewExecutionModel: %v", err)
	}

	fill, err := m.Fill(domain.Order{Side: domain.OrderSideBuy, SignalTime: t0, RequestedPrice: 100}, series)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	// Latency moves the fill to the next bar; that bar's price is then used.
	if !fill.Time.Equal(series[1].Timestamp) {
		t.Errorf("fill time = %v, want %v", fill.Time, series[1].Timestamp)
	}
	if fill.Price != 110 {
		t.Errorf("fill price = %v, want 110", fill.Price)
	}
}

func TestFill_ZeroLatencySameBar(t *testing.T) {
	series := dailySeries([]float64{100, 110}, []int{1, 1})
	m, _ := NewExecutionModel(0, 0)

	fill, err := m.Fill(domain.Order{Side: domain.OrderSideBuy, SignalTime: series[1].Timestamp, RequestedPrice: 110}, series)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if !fill.Time.Equal(series[1].Timestamp) || fill.Price != 110 {
		t.Errorf("fill = {%v %v}, want same-bar fill at 110", fill.Time, fill.Price)
	}
}

func TestFill_LatencyPastSeriesEnd(t *testing.T) {
	series := dailySeries([]float64{100, 110}, []int{1, 1})
	m, _ := NewExecutionModel(0, 48*time.Hour)

	_, err := m.Fill(domain.Order{Side: domain.OrderSideBuy, SignalTime: series[1].Timestamp, RequestedPrice: 110}, series)
	if !errors.Is(err, ErrUnfillable) {
		t.Errorf("Fill past series end = %v, want ErrUnfillable", err)
	}
}

func TestFill_SlippageAndLatencyCompose(t *testing.T) {
	series := dailySeries([]float64{100, 110}, []int{1, 1})
	m, _ := NewExecutionModel(0.01, 24*time.Hour)

	fill, err := m.Fill(domain.Order{Side: domain.OrderSideBuy, SignalTime: t0, RequestedPrice: 100}, series)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	// Slippage applies to the latency-shifted bar's price, not the
	// originally requested price.
	want := 110 * 1.01
	if math.Abs(fill.Price-want) > 1e-12 {
		t.Errorf("fill price = %v, want %v", fill.Price, want)
	}
}
