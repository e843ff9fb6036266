package tradesim_test

import (
	"context"
	"math"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tradesim/internal/backtest"
	"tradesim/internal/httpapi"
	"tradesim/internal/store"
	"tradesim/pkg/tradesim"
)

func newTestClient(t *testing.T) *tradesim.Client {
	t.Helper()

	rs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { rs.Close() })

	srv := httpapi.NewServer("127.0.0.1:0", backtest.NewRunner(nil), nil, rs, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return tradesim.NewClient(ts.URL)
}

func clientScenarioBars() []tradesim.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{100, 100, 110, 90}
	signals := []int{0, 1, 1, 0}
	bars := make([]tradesim.Bar, len(prices))
	for i := range bars {
		bars[i] = tradesim.Bar{Timestamp: base.AddDate(0, 0, i), Price: prices[i], Signal: signals[i]}
	}
	return bars
}

func TestClientRunBacktest(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	resp, err := c.RunBacktest(ctx, tradesim.BacktestRequest{
		Symbol:         "AAPL",
		Bars:           clientScenarioBars(),
		InitialCapital: 10000,
		Persist:        true,
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if math.Abs(resp.Result.Metrics.FinalReturnPct-(-10)) > 1e-9 {
		t.Errorf("final return = %v%%, want -10%%", resp.Result.Metrics.FinalReturnPct)
	}
	if len(resp.Result.EquityCurve) != 4 {
		t.Errorf("equity curve length = %d, want 4", len(resp.Result.EquityCurve))
	}
	if resp.RunID == 0 {
		t.Error("persisted run has no run_id")
	}

	runs, err := c.ListResults(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("listed %d runs, want 1", len(runs))
	}
	if runs[0].ID != resp.RunID {
		t.Errorf("listed run ID = %d, want %d", runs[0].ID, resp.RunID)
	}
	if runs[0].Symbol != "AAPL" {
		t.Errorf("listed run symbol = %q, want AAPL", runs[0].Symbol)
	}
}

func TestClientRunBacktest_ServerError(t *testing.T) {
	c := newTestClient(t)

	_, err := c.RunBacktest(context.Background(), tradesim.BacktestRequest{
		Bars:           clientScenarioBars(),
		InitialCapital: -5,
	})
	if err == nil {
		t.Fatal("RunBacktest(invalid capital) = nil error, want error")
	}
}

func TestClientHealth(t *testing.T) {
	c := newTestClient(t)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestClientHealth_Unreachable(t *testing.T) {
	c := tradesim.NewClient("http://127.0.0.1:1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Health(ctx); err == nil {
		t.Error("Health against unreachable server = nil error, want error")
	}
}
