package net

import (
	"encoding/csv"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// CSVLogger writes one row per epoch (epoch, loss, mse, elapsed seconds)
// to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool
	Log      *slog.Logger

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool, log *slog.Logger) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
		Log:      log,
	}
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.logError("open history file", err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.write([]string{"epoch", "loss", "mse", "time_seconds"})
	}
}

func (c *CSVLogger) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {
	if c.writer == nil {
		return
	}

	c.write([]string{
		strconv.Itoa(epoch),
		strconv.FormatFloat(logs.Loss, 'f', 6, 64),
		strconv.FormatFloat(logs.MSE, 'f', 6, 64),
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	})
}

func (c *CSVLogger) OnTrainEnd(n *Network) {
	if c.file == nil {
		return
	}
	c.writer.Flush()
	if err := c.file.Close(); err != nil {
		c.logError("close history file", err)
	}
	c.file = nil
	c.writer = nil
}

func (c *CSVLogger) write(record []string) {
	if err := c.writer.Write(record); err != nil {
		c.logError("write history record", err)
		return
	}
	c.writer.Flush()
}

func (c *CSVLogger) logError(msg string, err error) {
	if c.Log != nil {
		c.Log.Error(msg, "file", c.Filename, "error", err)
	}
}
