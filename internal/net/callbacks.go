package net

import (
	"log/slog"
	"math"
)

// EpochLogs carries the metrics reported at the end of an epoch.
type EpochLogs struct {
	Loss float64
	MSE  float64
}

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, logs EpochLogs, n *Network)
	OnBatchBegin(batch int, n *Network)
	OnBatchEnd(batch int, loss float64, n *Network)
}

// Stopper is implemented by callbacks that can end training early.
type Stopper interface {
	StopTraining() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                          {}
func (c BaseCallback) OnTrainEnd(n *Network)                            {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)               {}
func (c BaseCallback) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {}
func (c BaseCallback) OnBatchBegin(batch int, n *Network)               {}
func (c BaseCallback) OnBatchEnd(batch int, loss float64, n *Network)   {}

// EarlyStopping stops training when the loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64
	Log       *slog.Logger

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.Inf(1),
	}
}

func (c *EarlyStopping) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {
	if logs.Loss < c.bestLoss-c.Threshold {
		c.bestLoss = logs.Loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		if c.Log != nil {
			c.Log.Info("early stopping", "epoch", epoch, "loss", logs.Loss, "patience", c.Patience)
		}
		c.Stopped = true
	}
}

func (c *EarlyStopping) StopTraining() bool {
	return c.Stopped
}

// ModelCheckpoint saves the model after every epoch if it's the best so far.
type ModelCheckpoint struct {
	BaseCallback
	Filename string
	Log      *slog.Logger
	// Save writes the checkpoint. Nil means Network.Save to Filename.
	Save func(n *Network) error

	bestLoss float64
}

func NewModelCheckpoint(filename string, log *slog.Logger) *ModelCheckpoint {
	return &ModelCheckpoint{
		Filename: filename,
		Log:      log,
		bestLoss: math.Inf(1),
	}
}

func (c *ModelCheckpoint) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {
	if !(logs.Loss < c.bestLoss) {
		return
	}
	c.bestLoss = logs.Loss
	var err error
	if c.Save != nil {
		err = c.Save(n)
	} else {
		err = n.Save(c.Filename)
	}
	if c.Log == nil {
		return
	}
	if err != nil {
		c.Log.Error("save checkpoint", "file", c.Filename, "error", err)
	} else {
		c.Log.Debug("checkpoint saved", "file", c.Filename, "loss", logs.Loss)
	}
}

// Logger logs training progress.
type Logger struct {
	BaseCallback
	Interval int
	Log      *slog.Logger
}

func (c Logger) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {
	if c.Log == nil || c.Interval <= 0 || epoch%c.Interval != 0 {
		return
	}
	c.Log.Info("epoch end", "epoch", epoch, "loss", logs.Loss, "mse", logs.MSE)
}

// History records the metrics of every finished epoch.
type History struct {
	Epochs []int
	Loss   []float64
	MSE    []float64
}

func (h *History) record(epoch int, logs EpochLogs) {
	h.Epochs = append(h.Epochs, epoch)
	h.Loss = append(h.Loss, logs.Loss)
	h.MSE = append(h.MSE, logs.MSE)
}

// Len returns the number of recorded epochs.
func (h *History) Len() int {
	return len(h.Epochs)
}

// Last returns the metrics of the final recorded epoch.
func (h *History) Last() (EpochLogs, bool) {
	if len(h.Epochs) == 0 {
		return EpochLogs{}, false
	}
	i := len(h.Epochs) - 1
	return EpochLogs{Loss: h.Loss[i], MSE: h.MSE[i]}, true
}
