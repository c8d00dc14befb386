package net

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVLogger(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "history.csv")
	model := compiledModel(1)
	x, y := lineData(8, 1)

	_, err := model.Fit(context.Background(), x, y, FitConfig{
		Epochs:    3,
		Callbacks: []Callback{NewCSVLogger(filename, false, nil)},
	})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read history: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("got %d rows, want header + 3 epochs", len(records))
	}
	header := []string{"epoch", "loss", "mse", "time_seconds"}
	for i, h := range header {
		if records[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}
	if records[3][0] != "2" {
		t.Errorf("last epoch = %q, want 2", records[3][0])
	}
}

func TestCSVLoggerAppend(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "history.csv")
	x, y := lineData(8, 1)

	for i := 0; i < 2; i++ {
		model := compiledModel(1)
		_, err := model.Fit(context.Background(), x, y, FitConfig{
			Epochs:    2,
			Callbacks: []Callback{NewCSVLogger(filename, true, nil)},
		})
		if err != nil {
			t.Fatalf("Fit: %v", err)
		}
	}

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("got %d rows, want one header and 4 epochs", len(records))
	}
}

func TestCSVLoggerBadPath(t *testing.T) {
	model := compiledModel(1)
	x, y := lineData(4, 1)
	logger := NewCSVLogger(filepath.Join(t.TempDir(), "missing", "history.csv"), false, nil)

	if _, err := model.Fit(context.Background(), x, y, FitConfig{Callbacks: []Callback{logger}}); err != nil {
		t.Fatalf("Fit should not fail when the history file cannot be opened: %v", err)
	}
}
