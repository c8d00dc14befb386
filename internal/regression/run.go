package regression

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/FlavioCFOliveira/mpgregression/internal/cars"
	"github.com/FlavioCFOliveira/mpgregression/internal/chart"
	"github.com/FlavioCFOliveira/mpgregression/internal/net"
	"github.com/FlavioCFOliveira/mpgregression/internal/normalize"
)

const (
	DataPlotFile       = "horsepower_v_mpg.png"
	TrainingPlotFile   = "training_performance.png"
	PredictionPlotFile = "predictions.png"
)

// Options configures a full tutorial run.
type Options struct {
	// DatasetURL is fetched when DatasetFile is empty.
	DatasetURL  string
	DatasetFile string
	Client      *http.Client

	// Train holds the fit hyperparameters. A zero value means
	// DefaultTrainConfig; otherwise unset numeric fields take their defaults.
	Train TrainConfig
	// Seed drives weight init, the record shuffle and the per-epoch
	// shuffle. Zero means time-seeded.
	Seed int64

	// OutputDir receives the two scatterplots. Empty disables plotting.
	OutputDir      string
	HistoryFile    string
	CheckpointFile string
	ModelFile      string

	EarlyStoppingPatience int
	LogEvery              int

	Log     *slog.Logger
	Summary io.Writer
}

// Result is everything a run produced.
type Result struct {
	Records   []cars.Record
	Bounds    normalize.Bounds
	History   *net.History
	Original  chart.Series
	Predicted chart.Series
	Model     *net.Sequential
}

// Run loads the dataset, plots it, trains the model and plots its
// predictions against the original data. Steps run one after another.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	records, err := loadRecords(ctx, opts)
	if err != nil {
		return nil, err
	}
	log.Info("dataset loaded", "records", len(records))

	res := &Result{Records: records, Original: Original(records)}
	plot(log, opts.OutputDir, DataPlotFile, chart.DefaultOptions("Horsepower v MPG"), res.Original)

	res.Model = CreateModel(rng)
	if opts.Summary != nil {
		res.Model.Summary(opts.Summary)
	}

	data, bounds, err := normalize.Normalize(records, rng)
	if err != nil {
		return nil, err
	}
	res.Bounds = bounds
	log.Debug("normalized",
		"input_min", bounds.InputMin, "input_max", bounds.InputMax,
		"label_min", bounds.LabelMin, "label_max", bounds.LabelMax)

	cfg := opts.Train.withDefaults()
	cfg.Rand = rng
	res.History, err = Train(ctx, res.Model, data, cfg, callbacks(log, opts, bounds)...)
	if err != nil {
		return res, err
	}
	if last, ok := res.History.Last(); ok {
		log.Info("training finished", "epochs", res.History.Len(), "loss", last.Loss, "mse", last.MSE)
	}
	plotLines(log, opts.OutputDir, TrainingPlotFile,
		chart.HistoryOptions("Training Performance"), Performance(res.History)...)

	res.Predicted, err = Predict(res.Model, bounds)
	if err != nil {
		return res, err
	}
	plot(log, opts.OutputDir, PredictionPlotFile,
		chart.DefaultOptions("Model Predictions vs Original Data"), res.Original, res.Predicted)

	if opts.ModelFile != "" {
		if err := SaveModel(opts.ModelFile, res.Model, bounds); err != nil {
			return res, err
		}
		log.Info("model saved", "file", opts.ModelFile)
	}

	return res, nil
}

func loadRecords(ctx context.Context, opts Options) ([]cars.Record, error) {
	if opts.DatasetFile != "" {
		return cars.ReadFile(opts.DatasetFile)
	}
	url := opts.DatasetURL
	if url == "" {
		url = cars.DefaultURL
	}
	return cars.Fetch(ctx, opts.Client, url)
}

func callbacks(log *slog.Logger, opts Options, bounds normalize.Bounds) []net.Callback {
	logEvery := opts.LogEvery
	if logEvery <= 0 {
		logEvery = 1
	}
	cbs := []net.Callback{net.Logger{Interval: logEvery, Log: log}}

	if opts.HistoryFile != "" {
		cbs = append(cbs, net.NewCSVLogger(opts.HistoryFile, false, log))
	}
	if opts.CheckpointFile != "" {
		ckpt := net.NewModelCheckpoint(opts.CheckpointFile, log)
		ckpt.Save = func(n *net.Network) error {
			return SaveModel(opts.CheckpointFile, &net.Sequential{Network: n}, bounds)
		}
		cbs = append(cbs, ckpt)
	}
	if opts.EarlyStoppingPatience > 0 {
		es := net.NewEarlyStopping(opts.EarlyStoppingPatience, 0)
		es.Log = log
		cbs = append(cbs, es)
	}
	return cbs
}

// plot renders a scatterplot into dir. Rendering failures are logged, not
// returned, so a run whose predictions went non-finite still finishes.
func plot(log *slog.Logger, dir, name string, opts chart.Options, series ...chart.Series) {
	render(log, dir, name, chart.Scatter, opts, series...)
}

func plotLines(log *slog.Logger, dir, name string, opts chart.Options, series ...chart.Series) {
	render(log, dir, name, chart.Lines, opts, series...)
}

type renderFunc func(path string, opts chart.Options, series ...chart.Series) error

func render(log *slog.Logger, dir, name string, draw renderFunc, opts chart.Options, series ...chart.Series) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("create output dir", "dir", dir, "error", err)
		return
	}
	path := filepath.Join(dir, name)
	if err := draw(path, opts, series...); err != nil {
		log.Warn("render chart", "file", path, "error", err)
		return
	}
	log.Info("chart written", "file", path)
}
