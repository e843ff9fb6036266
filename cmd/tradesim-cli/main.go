package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"tradesim/internal/backtest"
	"tradesim/internal/config"
	"tradesim/internal/ingest"
	"tradesim/internal/store"
	"tradesim/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tradesim-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run        Run one backtest over a CSV series\n")
		fmt.Fprintf(os.Stderr, "  sweep      Run a slippage sweep over a CSV series\n")
		fmt.Fprintf(os.Stderr, "  import     Import a CSV series into the parquet store\n")
		fmt.Fprintf(os.Stderr, "  results    List persisted backtest runs\n")
		fmt.Fprintf(os.Stderr, "  version    Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "sweep":
		err = cmdSweep(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "results":
		err = cmdResults(os.Args[2:])
	case "version":
		fmt.Printf("tradesim-cli %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	csvPath := fs.String("csv", "", "path to timestamp,price,signal CSV series (required)")
	capital := fs.Float64("capital", 10000, "initial capital")
	slippage := fs.Float64("slippage", 0.0005, "slippage fraction (0.0005 = 5 bps)")
	latency := fs.Duration("latency", 0, "execution latency (e.g. 24h for one daily bar)")
	curve := fs.Bool("curve", false, "include the full equity curve in the output")
	fs.Parse(args)

	if *csvPath == "" {
		return fmt.Errorf("-csv is required")
	}

	series, err := ingest.LoadCSV(*csvPath)
	if err != nil {
		return err
	}

	runner := backtest.NewRunner(util.NewLogger("warn", "text"))
	result, err := runner.Run(context.Background(), series, backtest.Params{
		InitialCapital: *capital,
		Slippage:       *slippage,
		Latency:        *latency,
	})
	if err != nil {
		return err
	}

	if !*curve {
		result.EquityCurve = nil
	}
	return printJSON(result)
}

func cmdSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	csvPath := fs.String("csv", "", "path to timestamp,price,signal CSV series (required)")
	capital := fs.Float64("capital", 10000, "initial capital")
	latency := fs.Duration("latency", 0, "execution latency applied to every variant")
	maxBps := fs.Int("max-bps", 50, "sweep slippage from 0 to this many basis points")
	stepBps := fs.Int("step-bps", 5, "basis-point step between variants")
	workers := fs.Int("workers", 0, "max concurrent runs (0 = NumCPU)")
	fs.Parse(args)

	if *csvPath == "" {
		return fmt.Errorf("-csv is required")
	}
	if *stepBps <= 0 {
		return fmt.Errorf("-step-bps must be positive")
	}

	series, err := ingest.LoadCSV(*csvPath)
	if err != nil {
		return err
	}

	var variants []backtest.Params
	for bps := 0; bps <= *maxBps; bps += *stepBps {
		variants = append(variants, backtest.Params{
			InitialCapital: *capital,
			Slippage:       float64(bps) / 10000,
			Latency:        *latency,
		})
	}

	runner := backtest.NewRunner(util.NewLogger("warn", "text"))
	results, err := runner.RunVariants(context.Background(), series, variants, *workers)
	if err != nil {
		return err
	}

	type sweepRow struct {
		SlippageBps    float64 `json:"slippage_bps"`
		FinalReturnPct float64 `json:"final_return_pct"`
		SharpeRatio    float64 `json:"sharpe_ratio"`
		MaxDrawdownPct float64 `json:"max_drawdown_pct"`
		TotalTrades    int     `json:"total_trades"`
	}
	rows := make([]sweepRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, sweepRow{
			SlippageBps:    r.Params.Slippage * 10000,
			FinalReturnPct: r.Metrics.FinalReturnPct,
			SharpeRatio:    r.Metrics.SharpeRatio,
			MaxDrawdownPct: r.Metrics.MaxDrawdownPct,
			TotalTrades:    r.Metrics.TotalTrades,
		})
	}
	return printJSON(rows)
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	csvPath := fs.String("csv", "", "path to timestamp,price,signal CSV series (required)")
	symbol := fs.String("symbol", "", "symbol to store the series under (required)")
	dataDir := fs.String("data-dir", "", "data directory (defaults to config)")
	fs.Parse(args)

	if *csvPath == "" || *symbol == "" {
		return fmt.Errorf("-csv and -symbol are required")
	}

	dir := *dataDir
	if dir == "" {
		dir = loadConfig().Storage.DataDir
	}

	series, err := ingest.LoadCSV(*csvPath)
	if err != nil {
		return err
	}

	ps := store.NewParquetStore(dir)
	if err := ps.WriteSeries(context.Background(), *symbol, series); err != nil {
		return err
	}
	fmt.Printf("imported %d bars for %s into %s\n", len(series), *symbol, dir)
	return nil
}

func cmdResults(args []string) error {
	fs := flag.NewFlagSet("results", flag.ExitOnError)
	symbol := fs.String("symbol", "", "filter by symbol")
	limit := fs.Int("limit", 20, "maximum number of runs to list")
	dbPath := fs.String("db", "", "sqlite path (defaults to config)")
	fs.Parse(args)

	path := *dbPath
	if path == "" {
		path = loadConfig().Storage.SQLitePath
	}

	rs, err := store.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer rs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := rs.ListRuns(ctx, *symbol, *limit)
	if err != nil {
		return err
	}
	return printJSON(runs)
}

// loadConfig reads the configured or default config, falling back to
// built-in defaults when no file exists.
func loadConfig() *config.Config {
	cfgPath := "config/tradesim.yaml"
	if p := os.Getenv("TRADESIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Default()
	}
	return cfg
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
