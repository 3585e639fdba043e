package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"turbo-delete/internal/config"
)

const logFile = "turbo-delete.log"

// Options selects where log lines go
type Options struct {
	Dir          string
	RotationDays int
	Level        zerolog.Level
	Console      io.Writer // nil disables console output
	NoColor      bool
}

// FromConfig derives Options from the loaded configuration
func FromConfig(cfg *config.Config, console io.Writer) Options {
	return Options{
		Dir:          cfg.Logging.Dir,
		RotationDays: cfg.Logging.RotationDays,
		Level:        cfg.LogLevel(),
		Console:      console,
	}
}

// New builds a logger writing to the console and to an append-mode file in
// opts.Dir. The returned closer releases the file. When the file cannot be
// opened the logger falls back to console only and says so.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	if opts.RotationDays <= 0 {
		opts.RotationDays = 30 // default
	}

	var writers []io.Writer
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		})
	}

	var closer io.Closer = nopCloser{}
	var fileErr error
	if opts.Dir != "" {
		f, err := openLogFile(opts.Dir, opts.RotationDays)
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, f)
			closer = f
		}
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	logger := zerolog.New(out).Level(opts.Level).With().Timestamp().Logger()

	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("dir", opts.Dir).Msg("logging to console only")
	}
	return logger, closer, fileErr
}

// Component returns a child logger tagged with name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func openLogFile(dir string, rotationDays int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	filePath := filepath.Join(dir, logFile)
	rotateLogsIfNeeded(filePath, rotationDays)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// rotateLogsIfNeeded rotates the log file once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int) {
	info, err := os.Stat(logPath)
	if err != nil {
		// Log file doesn't exist yet, nothing to rotate
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		rotatedPath := logPath + "." + timestamp

		if err := os.Rename(logPath, rotatedPath); err != nil {
			return
		}

		cleanupOldLogs(logPath, rotationDays)
	}
}

// cleanupOldLogs removes rotated log files older than rotationDays
func cleanupOldLogs(logPath string, rotationDays int) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			_ = os.Remove(filepath.Join(logDir, entry.Name()))
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
