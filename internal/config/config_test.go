package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/mpgregression/internal/cars"
)

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, cars.DefaultURL, cfg.DatasetURL)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 50, cfg.Epochs)
	assert.Equal(t, 0.001, cfg.LearningRate)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := `# tutorial run
dataset_file: testdata/cars.json
epochs: 10
learning_rate: 0.01
seed: 7
log_level: debug
early_stopping_patience: 3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testdata/cars.json", cfg.DatasetFile)
	assert.Equal(t, 10, cfg.Epochs)
	assert.Equal(t, 32, cfg.BatchSize, "unset keys keep defaults")
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 3, cfg.EarlyStoppingPatience)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseUnknownKey(t *testing.T) {
	_, err := Parse(strings.NewReader("train_root_a: /data\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{
		Epochs:    5,
		Seed:      11,
		OutputDir: "plots",
		LogLevel:  "warn",
		Optimizer: "sgd",
	})

	assert.Equal(t, 5, cfg.Epochs)
	assert.Equal(t, int64(11), cfg.Seed)
	assert.Equal(t, "plots", cfg.OutputDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "sgd", cfg.Optimizer)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.BatchSize, "zero overrides are ignored")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no dataset", func(c *Config) { c.DatasetURL = "" }},
		{"batch size", func(c *Config) { c.BatchSize = 0 }},
		{"epochs", func(c *Config) { c.Epochs = -1 }},
		{"learning rate", func(c *Config) { c.LearningRate = 0 }},
		{"patience", func(c *Config) { c.EarlyStoppingPatience = -2 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"optimizer", func(c *Config) { c.Optimizer = "rmsprop" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestValidateFillsLogEvery(t *testing.T) {
	cfg := Default()
	cfg.LogEvery = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.LogEvery)
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.ModelFile = "model.gob"
	opts := cfg.Options()

	assert.Equal(t, cfg.DatasetURL, opts.DatasetURL)
	assert.Equal(t, 32, opts.Train.BatchSize)
	assert.Equal(t, 50, opts.Train.Epochs)
	assert.True(t, opts.Train.Shuffle)
	assert.Equal(t, "Adam", opts.Train.Optimizer)
	assert.Equal(t, "model.gob", opts.ModelFile)
}
