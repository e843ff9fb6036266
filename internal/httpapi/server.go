package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tradesim/internal/backtest"
	"tradesim/internal/domain"
	"tradesim/internal/store"
)

// Server serves the backtest HTTP API.
type Server struct {
	addr   string
	runner *backtest.Runner
	series store.SeriesStore
	runs   store.RunStore // nil disables persistence and /api/v1/results
	log    *slog.Logger

	httpSrv *http.Server
}

// NewServer creates a Server listening on addr. seriesStore may be nil when
// only inline series are used; runStore may be nil to disable persistence.
func NewServer(addr string, runner *backtest.Runner, seriesStore store.SeriesStore, runStore store.RunStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		addr:   addr,
		runner: runner,
		series: seriesStore,
		runs:   runStore,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/v1/results", s.handleResults)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe starts the HTTP listener and blocks until the context is
// cancelled or a fatal error occurs. Shutdown is graceful.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	series, err := s.resolveSeries(r.Context(), &req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	params := backtest.Params{
		InitialCapital: req.InitialCapital,
		Slippage:       req.SlippageFraction,
		Latency:        time.Duration(req.LatencyMs) * time.Millisecond,
	}

	result, err := s.runner.Run(r.Context(), series, params)
	if err != nil {
		s.writeError(w, statusForRunError(err), err)
		return
	}

	resp := BacktestResponse{Symbol: req.Symbol, Result: apiResult(result)}
	if req.Persist && s.runs != nil {
		rec := runRecord(req.Symbol, result)
		if err := s.runs.SaveRun(r.Context(), rec); err != nil {
			s.log.Error("persisting run failed", "symbol", req.Symbol, "err", err)
		} else {
			resp.RunID = rec.ID
		}
	}

	s.log.Info("backtest served",
		"symbol", req.Symbol,
		"bars", len(series),
		"final_return_pct", result.Metrics.FinalReturnPct)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, http.StatusNotFound, errors.New("run persistence is not configured"))
		return
	}

	symbol := r.URL.Query().Get("symbol")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), symbol, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiRuns(runs))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveSeries returns the inline series when present, otherwise loads the
// stored series for the requested symbol and range.
func (s *Server) resolveSeries(ctx context.Context, req *BacktestRequest) ([]domain.Bar, error) {
	if len(req.Bars) > 0 {
		return domainBars(req.Bars), nil
	}
	if req.Symbol == "" {
		return nil, errors.New("request must provide either bars or a symbol")
	}
	if s.series == nil {
		return nil, errors.New("series store is not configured")
	}

	start := time.Time{}
	end := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	if req.Start != nil {
		start = *req.Start
	}
	if req.End != nil {
		end = *req.End
	}

	series, err := s.series.ReadSeries(ctx, req.Symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading series for %s: %w", req.Symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no series data for symbol %q", req.Symbol)
	}
	return series, nil
}

// statusForRunError maps run errors to HTTP statuses: the validation
// sentinels originate from the request body and map to 400; anything
// unrecognized is an internal failure.
func statusForRunError(err error) int {
	switch {
	case errors.Is(err, backtest.ErrInvalidCapital),
		errors.Is(err, backtest.ErrInvalidParams),
		errors.Is(err, domain.ErrEmptySeries),
		errors.Is(err, domain.ErrBarOrdering),
		errors.Is(err, domain.ErrBadBar):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func runRecord(symbol string, res *backtest.Result) *store.RunRecord {
	return &store.RunRecord{
		Symbol:         symbol,
		CreatedAt:      time.Now().UTC(),
		InitialCapital: res.Params.InitialCapital,
		Slippage:       res.Params.Slippage,
		LatencyMs:      res.Params.Latency.Milliseconds(),
		FinalReturnPct: res.Metrics.FinalReturnPct,
		SharpeRatio:    res.Metrics.SharpeRatio,
		MaxDrawdownPct: res.Metrics.MaxDrawdownPct,
		TotalTrades:    res.Metrics.TotalTrades,
		Warnings:       res.Warnings,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Warn("request failed", "status", status, "err", err)
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
