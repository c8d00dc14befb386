// Package logs builds the process logger.
package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// New returns a logger that writes text records to terminal and, when file
// is non-nil, JSON records to file. Both honour level.
func New(terminal io.Writer, file io.Writer, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{
		slog.NewTextHandler(terminal, opts),
	}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// OpenFile opens path for appending JSON log records.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
