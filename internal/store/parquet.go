package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradesim/internal/domain"
)

// Compile-time interface check.
var _ SeriesStore = (*ParquetStore)(nil)

// ParquetStore implements SeriesStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// SignalRecord is the Parquet schema for price/signal series data.
type SignalRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Signal    int32   `parquet:"signal"`
}

// WriteSeries writes series data to Parquet files organized by symbol and
// year. Each symbol+year combination produces a separate file at:
//
//	<DataDir>/signals/<SYMBOL>/<YYYY>.parquet
//
// Existing records are merged and deduplicated by timestamp, preferring the
// incoming records.
func (s *ParquetStore) WriteSeries(_ context.Context, symbol string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	groups := make(map[int][]SignalRecord)
	for _, b := range bars {
		year := b.Timestamp.Year()
		groups[year] = append(groups[year], SignalRecord{
			Symbol:    symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Price:     b.Price,
			Signal:    int32(b.Signal),
		})
	}

	for year, records := range groups {
		path := s.seriesPath(symbol, year)

		existing, _ := readParquetFile[SignalRecord](path)
		merged := mergeSignalRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing series for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadSeries reads series data for the given symbol and time range, ordered
// by timestamp.
func (s *ParquetStore) ReadSeries(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		records, err := readParquetFile[SignalRecord](s.seriesPath(symbol, year))
		if err != nil {
			// File doesn't exist for this year — skip.
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp)
			if (ts.Equal(start) || ts.After(start)) && (ts.Equal(end) || ts.Before(end)) {
				bars = append(bars, domain.Bar{
					Timestamp: ts,
					Price:     r.Price,
					Signal:    int(r.Signal),
				})
			}
		}
	}
	return bars, nil
}

// ListSymbols lists all symbols with stored series data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "signals")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// seriesPath returns the filesystem path for a series Parquet file.
// Layout: <dataDir>/signals/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) seriesPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "signals", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeSignalRecords deduplicates records by timestamp, preferring incoming
// records over existing ones. Results are sorted by timestamp.
func mergeSignalRecords(existing, incoming []SignalRecord) []SignalRecord {
	seen := make(map[int64]SignalRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]SignalRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
