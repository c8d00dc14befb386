package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/panics"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/mpgregression/internal/layer"
	"github.com/FlavioCFOliveira/mpgregression/internal/loss"
	"github.com/FlavioCFOliveira/mpgregression/internal/opt"
)

// DefaultBatchSize is used by Fit when FitConfig.BatchSize is not set.
const DefaultBatchSize = 32

// Sequential is a high-level wrapper around Network to provide a Keras-like API.
type Sequential struct {
	*Network
}

// NewSequential creates a new Sequential model.
func NewSequential(layers ...layer.Layer) *Sequential {
	return &Sequential{
		Network: &Network{
			layers: layers,
		},
	}
}

// Add appends a layer to the model.
func (s *Sequential) Add(l layer.Layer) {
	s.layers = append(s.layers, l)
}

// Compile configures the model for training.
func (s *Sequential) Compile(optimizer opt.Optimizer, lossFn loss.Loss) {
	s.opt = optimizer
	s.loss = lossFn
}

// FitConfig holds the hyperparameters of a Fit call.
type FitConfig struct {
	BatchSize int
	Epochs    int
	// Shuffle reorders the samples at the start of every epoch.
	Shuffle bool
	// Rand drives the per-epoch shuffle. Nil means a time-seeded source.
	Rand      *rand.Rand
	Callbacks []Callback
}

// Fit trains the model on x and y for cfg.Epochs epochs of mini-batches and
// returns the per-epoch history. The context is checked between epochs.
// Panics raised by layers or the loss function are returned as errors.
func (s *Sequential) Fit(ctx context.Context, x, y [][]float64, cfg FitConfig) (*History, error) {
	if s.loss == nil || s.opt == nil {
		return nil, ErrNotCompiled
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("fit: %d samples but %d labels", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, errors.New("fit: no samples")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 1
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	history := &History{}
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = s.fit(ctx, x, y, cfg, history)
	})
	if r := pc.Recovered(); r != nil {
		return history, fmt.Errorf("fit: %w", r.AsError())
	}
	return history, err
}

func (s *Sequential) fit(ctx context.Context, x, y [][]float64, cfg FitConfig, history *History) error {
	for _, cb := range cfg.Callbacks {
		cb.OnTrainBegin(s.Network)
	}
	defer func() {
		for _, cb := range cfg.Callbacks {
			cb.OnTrainEnd(s.Network)
		}
	}()

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	batchX := make([][]float64, 0, cfg.BatchSize)
	batchY := make([][]float64, 0, cfg.BatchSize)

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, cb := range cfg.Callbacks {
			cb.OnEpochBegin(epoch, s.Network)
		}

		if cfg.Shuffle {
			cfg.Rand.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		var lossSum, mseSum float64
		for batch, start := 0, 0; start < len(order); batch, start = batch+1, start+cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			batchX, batchY = batchX[:0], batchY[:0]
			for _, idx := range order[start:end] {
				batchX = append(batchX, x[idx])
				batchY = append(batchY, y[idx])
			}

			for _, cb := range cfg.Callbacks {
				cb.OnBatchBegin(batch, s.Network)
			}
			res := s.trainBatch(batchX, batchY)
			lossSum += res.Loss * float64(len(batchX))
			mseSum += res.MSE * float64(len(batchX))
			for _, cb := range cfg.Callbacks {
				cb.OnBatchEnd(batch, res.Loss, s.Network)
			}
		}

		logs := EpochLogs{
			Loss: lossSum / float64(len(x)),
			MSE:  mseSum / float64(len(x)),
		}
		history.record(epoch, logs)

		stop := false
		for _, cb := range cfg.Callbacks {
			cb.OnEpochEnd(epoch, logs, s.Network)
			if st, ok := cb.(Stopper); ok && st.StopTraining() {
				stop = true
			}
		}
		if stop {
			break
		}
	}
	return nil
}

// Predict performs a forward pass and returns a copy of the output.
func (s *Sequential) Predict(x []float64) []float64 {
	out := s.Forward(x)
	res := make([]float64, len(out))
	copy(res, out)
	return res
}

// PredictBatch performs forward pass on a batch of samples.
func (s *Sequential) PredictBatch(x [][]float64) [][]float64 {
	res := make([][]float64, len(x))
	for i := range x {
		res[i] = s.Predict(x[i])
	}
	return res
}

// PredictMatrix runs every row of x through the model and returns the
// outputs as a rows×outSize matrix.
func (s *Sequential) PredictMatrix(x mat.Matrix) *mat.Dense {
	rows, cols := x.Dims()
	outSize := s.layers[len(s.layers)-1].OutSize()
	out := mat.NewDense(rows, outSize, nil)

	row := make([]float64, cols)
	for r := 0; r < rows; r++ {
		mat.Row(row, r, x)
		out.SetRow(r, s.Forward(row))
	}
	return out
}

// Evaluate calculates the average loss on a dataset.
func (s *Sequential) Evaluate(x, y [][]float64) (float64, error) {
	if s.loss == nil {
		return 0, ErrNotCompiled
	}
	if len(x) == 0 || len(x) != len(y) {
		return 0, fmt.Errorf("evaluate: %d samples, %d labels", len(x), len(y))
	}
	total := 0.0
	for i := range x {
		total += s.loss.Forward(s.Forward(x[i]), y[i])
	}
	return total / float64(len(x)), nil
}

// Summary writes a summary of the network architecture to w.
func (s *Sequential) Summary(w io.Writer) {
	fmt.Fprintln(w, "Model: Sequential")
	fmt.Fprintln(w, "_________________________________________________________________")
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Fprintln(w, "=================================================================")

	totalParams := 0
	for i, l := range s.layers {
		lType := fmt.Sprintf("%T", l)
		for j := len(lType) - 1; j >= 0; j-- {
			if lType[j] == '.' {
				lType = lType[j+1:]
				break
			}
		}

		outShape := fmt.Sprintf("[batch,%d]", l.OutSize())
		params := len(l.Params())
		totalParams += params

		fmt.Fprintf(w, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", lType, i), outShape, params)
	}
	fmt.Fprintln(w, "=================================================================")
	fmt.Fprintf(w, "Total params: %d\n", totalParams)
	fmt.Fprintln(w, "_________________________________________________________________")
}

// LoadSequential loads a model written by Network.Save.
func LoadSequential(filename string) (*Sequential, error) {
	n, err := Load(filename)
	if err != nil {
		return nil, err
	}
	return &Sequential{Network: n}, nil
}
