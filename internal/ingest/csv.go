// Package ingest loads externally produced price/signal series into the
// engine's domain types. The series itself (feature computation, model
// training, signal generation) is always produced elsewhere.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"tradesim/internal/domain"
)

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadCSV reads a timestamp,price,signal series from the file at path and
// returns it as a validated bar slice.
func LoadCSV(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening series file: %w", err)
	}
	defer f.Close()

	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV parses a timestamp,price,signal series from r. A header row is
// detected by a non-numeric price field and skipped. The returned series
// satisfies domain.ValidateSeries.
func ReadCSV(r io.Reader) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	var bars []domain.Bar
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line++

		if len(record) < 3 {
			return nil, fmt.Errorf("row %d: expected timestamp,price,signal, got %d fields", line, len(record))
		}

		// Header row: price column does not parse as a number.
		if line == 1 {
			if _, err := strconv.ParseFloat(record[1], 64); err != nil {
				continue
			}
		}

		bar, err := parseBar(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	if err := domain.ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func parseBar(record []string) (domain.Bar, error) {
	ts, err := parseTimestamp(record[0])
	if err != nil {
		return domain.Bar{}, err
	}
	price, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing price %q: %w", record[1], err)
	}
	signal, err := strconv.Atoi(record[2])
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing signal %q: %w", record[2], err)
	}
	return domain.Bar{Timestamp: ts, Price: price, Signal: signal}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
