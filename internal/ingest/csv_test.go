package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tradesim/internal/domain"
)

func TestReadCSV(t *testing.T) {
	input := `timestamp,price,signal
2024-01-02,185.50,0
2024-01-03,186.00,1
2024-01-04,184.25,1
2024-01-05,183.00,0
`
	bars, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("got %d bars, want 4", len(bars))
	}

	want := domain.Bar{
		Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Price:     186.00,
		Signal:    1,
	}
	if bars[1] != want {
		t.Errorf("bars[1] = %+v, want %+v", bars[1], want)
	}
}

func TestReadCSV_NoHeader(t *testing.T) {
	input := "2024-01-02,100,0\n2024-01-03,101,1\n"
	bars, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("got %d bars, want 2", len(bars))
	}
}

func TestReadCSV_RFC3339Timestamps(t *testing.T) {
	input := "timestamp,price,signal\n2024-01-02T09:30:00Z,100.5,1\n2024-01-02T09:31:00Z,100.7,1\n"
	bars, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !bars[0].Timestamp.Equal(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("bars[0].Timestamp = %v, want 2024-01-02T09:30:00Z", bars[0].Timestamp)
	}
}

func TestReadCSV_MalformedRows(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad price", "timestamp,price,signal\n2024-01-02,abc,0\n"},
		{"bad signal", "timestamp,price,signal\n2024-01-02,100,x\n"},
		{"bad timestamp", "timestamp,price,signal\nyesterday,100,0\n"},
		{"missing field", "timestamp,price,signal\n2024-01-02,100\n"},
		{"non-binary signal", "timestamp,price,signal\n2024-01-02,100,2\n"},
		{"out of order", "timestamp,price,signal\n2024-01-03,100,0\n2024-01-02,101,0\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("ReadCSV = nil error, want error")
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	content := "timestamp,price,signal\n2024-01-02,100,0\n2024-01-03,110,1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	bars, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("got %d bars, want 2", len(bars))
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("LoadCSV(missing file) = nil error, want error")
	}
}
