package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FlavioCFOliveira/mpgregression/internal/cars"
	"github.com/FlavioCFOliveira/mpgregression/internal/opt"
	"github.com/FlavioCFOliveira/mpgregression/internal/regression"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DatasetURL  string `yaml:"dataset_url"`
	DatasetFile string `yaml:"dataset_file"`

	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	Optimizer    string  `yaml:"optimizer"`
	Seed         int64   `yaml:"seed"`

	OutputDir             string `yaml:"output_dir"`
	HistoryFile           string `yaml:"history_file"`
	CheckpointFile        string `yaml:"checkpoint_file"`
	ModelFile             string `yaml:"model_file"`
	EarlyStoppingPatience int    `yaml:"early_stopping_patience"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	LogEvery int    `yaml:"log_every"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DatasetURL   string
	DatasetFile  string
	BatchSize    int
	Epochs       int
	LearningRate float64
	Optimizer    string
	Seed         int64
	OutputDir    string
	ModelFile    string
	LogLevel     string
	LogEvery     int
}

// Default returns the tutorial settings: the public cars dataset, batch
// size 32, 50 epochs and Adam at 0.001.
func Default() *Config {
	return &Config{
		DatasetURL:   cars.DefaultURL,
		BatchSize:    regression.DefaultBatchSize,
		Epochs:       regression.DefaultEpochs,
		LearningRate: regression.DefaultLearningRate,
		Optimizer:    regression.DefaultOptimizer,
		OutputDir:    "out",
		LogLevel:     "info",
		LogEvery:     10,
	}
}

// Load reads and validates a Config from YAML. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DatasetURL != "" {
		c.DatasetURL = o.DatasetURL
	}
	if o.DatasetFile != "" {
		c.DatasetFile = o.DatasetFile
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Optimizer != "" {
		c.Optimizer = o.Optimizer
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.ModelFile != "" {
		c.ModelFile = o.ModelFile
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DatasetURL == "" && c.DatasetFile == "" {
		return errors.New("one of dataset_url or dataset_file must be set")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if _, err := opt.FromName(c.Optimizer, c.LearningRate); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if c.EarlyStoppingPatience < 0 {
		return fmt.Errorf("early_stopping_patience must be >= 0 (got %d)", c.EarlyStoppingPatience)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 10
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Options converts the config into regression run options.
func (c *Config) Options() regression.Options {
	return regression.Options{
		DatasetURL:  c.DatasetURL,
		DatasetFile: c.DatasetFile,
		Train: regression.TrainConfig{
			BatchSize:    c.BatchSize,
			Epochs:       c.Epochs,
			LearningRate: c.LearningRate,
			Optimizer:    c.Optimizer,
			Shuffle:      true,
		},
		Seed:                  c.Seed,
		OutputDir:             c.OutputDir,
		HistoryFile:           c.HistoryFile,
		CheckpointFile:        c.CheckpointFile,
		ModelFile:             c.ModelFile,
		EarlyStoppingPatience: c.EarlyStoppingPatience,
		LogEvery:              c.LogEvery,
	}
}
