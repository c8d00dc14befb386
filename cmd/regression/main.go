// Command regression fetches the cars dataset, trains a linear model that
// predicts MPG from horsepower and plots the predictions against the data.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauspost/cpuid/v2"

	"github.com/FlavioCFOliveira/mpgregression/internal/config"
	"github.com/FlavioCFOliveira/mpgregression/internal/logs"
	"github.com/FlavioCFOliveira/mpgregression/internal/regression"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config")
	datasetURL := flag.String("dataset-url", "", "Override dataset URL")
	datasetFile := flag.String("dataset-file", "", "Read the dataset from a local JSON file")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	learningRate := flag.Float64("learning-rate", 0, "Optimizer learning rate")
	optimizer := flag.String("optimizer", "", "Adam or SGD")
	seed := flag.Int64("seed", 0, "PRNG seed (0 = time seeded)")
	outputDir := flag.String("out", "", "Directory for the scatterplots")
	modelFile := flag.String("model", "", "Save the trained model here, or load it with -predict")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	logEvery := flag.Int("log-every", 0, "Log every N epochs")
	predict := flag.Float64("predict", 0, "Print the MPG predicted for this horsepower using -model, then exit")
	summary := flag.Bool("summary", true, "Print the model summary before training")

	flag.Parse()

	predictSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "predict" {
			predictSet = true
		}
	})

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	cfg.ApplyOverrides(config.Overrides{
		DatasetURL:   *datasetURL,
		DatasetFile:  *datasetFile,
		BatchSize:    *batchSize,
		Epochs:       *epochs,
		LearningRate: *learningRate,
		Optimizer:    *optimizer,
		Seed:         *seed,
		OutputDir:    *outputDir,
		ModelFile:    *modelFile,
		LogLevel:     *logLevel,
		LogEvery:     *logEvery,
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if predictSet {
		if err := runPredict(log, cfg.ModelFile, *predict); err != nil {
			log.Error("predict failed", "error", err)
			closeLog()
			os.Exit(1)
		}
		return
	}

	log.Debug("host",
		"cpu", cpuid.CPU.BrandName,
		"cores", cpuid.CPU.PhysicalCores,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2),
		"fma3", cpuid.CPU.Supports(cpuid.FMA3),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.Options()
	opts.Log = log
	if *summary {
		opts.Summary = os.Stdout
	}

	if _, err := regression.Run(ctx, opts); err != nil {
		log.Error("training failed", "error", err)
		stop()
		closeLog()
		os.Exit(1)
	}
	log.Info("done training")
}

func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}

	var file io.Writer
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := logs.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		file = f
		closeFn = func() { f.Close() }
	}

	return logs.New(os.Stderr, file, level), closeFn, nil
}

func runPredict(log *slog.Logger, modelFile string, horsepower float64) error {
	if modelFile == "" {
		return fmt.Errorf("-predict needs -model")
	}
	model, bounds, err := regression.LoadModel(modelFile)
	if err != nil {
		return err
	}
	mpg := regression.PredictMPG(model, bounds, horsepower)
	log.Debug("prediction", "horsepower", horsepower, "mpg", mpg)
	fmt.Printf("%.2f\n", mpg)
	return nil
}
