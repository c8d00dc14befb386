// Package cars loads the horsepower/MPG records of the public cars dataset.
package cars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/goccy/go-json"
)

// DefaultURL serves a JSON array of CarData.
const DefaultURL = "https://storage.googleapis.com/tfjs-tutorials/carsData.json"

// ErrStatus is wrapped by Fetch when the server answers with a non-2xx code.
var ErrStatus = errors.New("cars: unexpected HTTP status")

// CarData is one entry of the upstream dataset. Numeric fields are pointers
// because the dataset uses null for unknown values.
type CarData struct {
	Name         string   `json:"Name"`
	MPG          *float64 `json:"Miles_per_Gallon"`
	Cylinders    *float64 `json:"Cylinders"`
	Displacement *float64 `json:"Displacement"`
	Horsepower   *float64 `json:"Horsepower"`
	Weight       *float64 `json:"Weight_in_lbs"`
	Acceleration *float64 `json:"Acceleration"`
	Year         string   `json:"Year"`
	Origin       string   `json:"Origin"`
}

// Record is a cleaned sample: both fields are always present.
type Record struct {
	MPG        float64
	Horsepower float64
}

// Fetch downloads url with client and returns the cleaned records.
// A nil client uses http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Record, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cars: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cars: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s from %s", ErrStatus, resp.Status, url)
	}

	return Decode(resp.Body)
}

// ReadFile loads the dataset from a local JSON file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cars: open dataset: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a JSON array of CarData and cleans it.
func Decode(r io.Reader) ([]Record, error) {
	var raw []CarData
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("cars: decode dataset: %w", err)
	}
	return Clean(raw), nil
}

// Clean keeps the cars that have both an MPG and a horsepower value.
// Incomplete entries are dropped silently.
func Clean(raw []CarData) []Record {
	records := make([]Record, 0, len(raw))
	for _, car := range raw {
		if car.MPG == nil || car.Horsepower == nil {
			continue
		}
		records = append(records, Record{
			MPG:        *car.MPG,
			Horsepower: *car.Horsepower,
		})
	}
	return records
}
