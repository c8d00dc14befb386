// Package regression trains a linear model that predicts a car's MPG from
// its horsepower.
package regression

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/mpgregression/internal/activations"
	"github.com/FlavioCFOliveira/mpgregression/internal/cars"
	"github.com/FlavioCFOliveira/mpgregression/internal/chart"
	"github.com/FlavioCFOliveira/mpgregression/internal/layer"
	"github.com/FlavioCFOliveira/mpgregression/internal/loss"
	"github.com/FlavioCFOliveira/mpgregression/internal/net"
	"github.com/FlavioCFOliveira/mpgregression/internal/normalize"
	"github.com/FlavioCFOliveira/mpgregression/internal/opt"
	"github.com/FlavioCFOliveira/mpgregression/internal/tensor"
)

const (
	DefaultBatchSize    = 32
	DefaultEpochs       = 50
	DefaultLearningRate = 0.001
	DefaultOptimizer    = "Adam"

	// ProbeCount is the number of evenly spaced inputs sampled for the
	// prediction curve.
	ProbeCount = 100
)

// CreateModel builds the 1 -> 1 -> 1 linear network: two dense units with
// bias. A nil rng initialises weights from the global source.
func CreateModel(rng *rand.Rand) *net.Sequential {
	model := net.NewSequential()
	model.Add(layer.NewDenseRand(1, 1, activations.Linear{}, rng))
	model.Add(layer.NewDenseRand(1, 1, activations.Linear{}, rng))
	return model
}

// TrainConfig holds the fit hyperparameters.
type TrainConfig struct {
	BatchSize    int
	Epochs       int
	LearningRate float64
	// Optimizer is "Adam" or "SGD". Empty means Adam.
	Optimizer string
	Shuffle   bool
	Rand      *rand.Rand
}

// DefaultTrainConfig returns batch size 32, 50 epochs, Adam at 0.001 and
// per-epoch shuffling.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		BatchSize:    DefaultBatchSize,
		Epochs:       DefaultEpochs,
		LearningRate: DefaultLearningRate,
		Optimizer:    DefaultOptimizer,
		Shuffle:      true,
	}
}

// withDefaults returns DefaultTrainConfig for a zero config and otherwise
// fills each unset numeric field from it. Shuffle is kept as given.
func (c TrainConfig) withDefaults() TrainConfig {
	if c == (TrainConfig{}) {
		return DefaultTrainConfig()
	}
	def := DefaultTrainConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Epochs <= 0 {
		c.Epochs = def.Epochs
	}
	if c.LearningRate <= 0 {
		c.LearningRate = def.LearningRate
	}
	if c.Optimizer == "" {
		c.Optimizer = def.Optimizer
	}
	return c
}

// Train compiles model with the configured optimizer and MSE and fits it to
// the normalized columns. Unset fields of cfg take their default values.
// The model is updated in place.
func Train(ctx context.Context, model *net.Sequential, data normalize.Tensors, cfg TrainConfig, callbacks ...net.Callback) (*net.History, error) {
	cfg = cfg.withDefaults()
	optimizer, err := opt.FromName(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	model.Compile(optimizer, loss.MSE{})

	x, y := data.Rows()
	history, err := model.Fit(ctx, x, y, net.FitConfig{
		BatchSize: cfg.BatchSize,
		Epochs:    cfg.Epochs,
		Shuffle:   cfg.Shuffle,
		Rand:      cfg.Rand,
		Callbacks: callbacks,
	})
	if err != nil {
		return history, fmt.Errorf("train: %w", err)
	}
	return history, nil
}

// Probe returns n evenly spaced values over [0,1], first 0 and last 1.
func Probe(n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{0}
	}
	return floats.Span(make([]float64, n), 0, 1)
}

// Predict samples the model on the probe sequence and maps both the probes
// and the predictions back to horsepower and MPG.
func Predict(model *net.Sequential, bounds normalize.Bounds) (chart.Series, error) {
	series := chart.Series{Name: "predicted"}
	err := tensor.Tidy(func(s *tensor.Scope) error {
		if len(model.Layers()) == 0 {
			return errors.New("predict: model has no layers")
		}
		xs := s.Column(Probe(ProbeCount))
		preds := model.PredictMatrix(xs)

		series.Points = make([]chart.Point, ProbeCount)
		for i := range series.Points {
			series.Points[i] = chart.Point{
				X: bounds.InvertInput(xs.At(i, 0)),
				Y: bounds.InvertLabel(preds.At(i, 0)),
			}
		}
		return nil
	})
	if err != nil {
		return chart.Series{}, err
	}
	return series, nil
}

// PredictMPG returns the model's MPG estimate for a single horsepower value.
func PredictMPG(model *net.Sequential, bounds normalize.Bounds, horsepower float64) float64 {
	x := normalize.Scale(horsepower, bounds.InputMin, bounds.InputMax)
	return bounds.InvertLabel(model.Predict([]float64{x})[0])
}

// Performance returns the per-epoch loss and mse of history as two series
// over the epoch number.
func Performance(history *net.History) []chart.Series {
	lossSeries := chart.Series{Name: "loss"}
	mseSeries := chart.Series{Name: "mse"}
	if history == nil {
		return []chart.Series{lossSeries, mseSeries}
	}
	for i, epoch := range history.Epochs {
		x := float64(epoch)
		lossSeries.Points = append(lossSeries.Points, chart.Point{X: x, Y: history.Loss[i]})
		mseSeries.Points = append(mseSeries.Points, chart.Point{X: x, Y: history.MSE[i]})
	}
	return []chart.Series{lossSeries, mseSeries}
}

// Original returns the records as (horsepower, mpg) points.
func Original(records []cars.Record) chart.Series {
	series := chart.Series{Name: "original", Points: make([]chart.Point, len(records))}
	for i, r := range records {
		series.Points[i] = chart.Point{X: r.Horsepower, Y: r.MPG}
	}
	return series
}

// SaveModel writes the trained network followed by its normalization bounds.
func SaveModel(path string, model *net.Sequential, bounds normalize.Bounds) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	enc := gob.NewEncoder(f)
	if err := model.EncodeTo(enc); err != nil {
		f.Close()
		return fmt.Errorf("save model: %w", err)
	}
	if err := enc.Encode(bounds); err != nil {
		f.Close()
		return fmt.Errorf("save model: encode bounds: %w", err)
	}
	return f.Close()
}

// LoadModel reads a file written by SaveModel.
func LoadModel(path string) (*net.Sequential, normalize.Bounds, error) {
	var bounds normalize.Bounds

	f, err := os.Open(path)
	if err != nil {
		return nil, bounds, fmt.Errorf("load model: %w", err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	n, err := net.DecodeFrom(dec)
	if err != nil {
		return nil, bounds, fmt.Errorf("load model: %w", err)
	}
	if err := dec.Decode(&bounds); err != nil {
		return nil, bounds, fmt.Errorf("load model: decode bounds: %w", err)
	}
	return &net.Sequential{Network: n}, bounds, nil
}
