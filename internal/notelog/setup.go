package notelog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openmined/notesync/internal/utils"
)

// Options configures the process-wide structured logger.
type Options struct {
	// LogFilePath, when non-empty, mirrors log output to this file in
	// addition to stderr.
	LogFilePath string
	// Verbose enables slog.LevelDebug; otherwise slog.LevelInfo is used.
	Verbose bool
}

// Setup installs a slog.TextHandler (or MultiHandler, when a log file is
// configured) as the default logger and returns a closer for the log file.
func Setup(opts Options) (func() error, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewTextHandler(os.Stderr, handlerOpts)

	if opts.LogFilePath == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return func() error { return nil }, nil
	}

	if err := utils.EnsureParent(opts.LogFilePath); err != nil {
		return nil, fmt.Errorf("ensure log directory %s: %w", filepath.Dir(opts.LogFilePath), err)
	}

	f, err := os.OpenFile(opts.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(f, handlerOpts)
	slog.SetDefault(slog.New(NewMultiHandler(stderrHandler, fileHandler)))

	return f.Close, nil
}

// Discard returns a logger that drops everything; handy for tests that
// exercise code paths which log but whose output is not under test.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
