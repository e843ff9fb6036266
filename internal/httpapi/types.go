// Package httpapi exposes backtest runs over a small HTTP REST API. It is a
// thin shim: the wire types live in pkg/tradesim so external clients can
// compile against them; this package decodes them, drives the runner, and
// encodes the engine's output back into them.
package httpapi

import (
	"tradesim/internal/backtest"
	"tradesim/internal/domain"
	"tradesim/internal/store"
	"tradesim/pkg/tradesim"
)

// Wire types, shared with the client SDK.
type (
	BacktestRequest  = tradesim.BacktestRequest
	BacktestResponse = tradesim.BacktestResponse
	ErrorResponse    = tradesim.ErrorResponse
	HealthResponse   = tradesim.HealthResponse
)

// domainBars converts inline request bars into the engine's bar type.
func domainBars(bars []tradesim.Bar) []domain.Bar {
	out := make([]domain.Bar, len(bars))
	for i, b := range bars {
		out[i] = domain.Bar(b)
	}
	return out
}

// apiResult converts a completed run into the wire result shape.
func apiResult(res *backtest.Result) *tradesim.Result {
	out := &tradesim.Result{
		Params:      tradesim.Params(res.Params),
		Metrics:     tradesim.Metrics(res.Metrics),
		EquityCurve: make([]tradesim.EquityPoint, len(res.EquityCurve)),
		Trades:      make([]tradesim.Trade, len(res.Trades)),
		Warnings:    res.Warnings,
	}
	for i, p := range res.EquityCurve {
		out.EquityCurve[i] = tradesim.EquityPoint(p)
	}
	for i, tr := range res.Trades {
		out.Trades[i] = tradesim.Trade(tr)
	}
	return out
}

// apiRuns converts persisted run records into the wire summary shape. The
// result is never nil, so an empty list encodes as [] rather than null.
func apiRuns(runs []store.RunRecord) []tradesim.RunSummary {
	out := make([]tradesim.RunSummary, len(runs))
	for i, r := range runs {
		out[i] = tradesim.RunSummary(r)
	}
	return out
}
