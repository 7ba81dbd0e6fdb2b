package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cbzmage/internal/config"
)

// Options describes a console logger.
type Options struct {
	Level  string
	Format string
	// Output defaults to stderr so stdout stays free for reports.
	Output io.Writer
	// Source adds file:line to every record. Debug level always adds it.
	Source bool
}

// New returns a logger writing console or JSON records to opts.Output.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	source := opts.Source || levelVar.Level() <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return slog.New(newConsoleHandler(out, levelVar, source)), nil
	case "json":
		return slog.New(newJSONHandler(out, levelVar, source)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig builds the logger for one CLI run. Console records follow
// logging.format. With paths.log_dir set, the run also writes a JSON log
// there and run logs older than logging.retention_days are pruned.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	console, err := New(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return console, nil
	}

	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	now := time.Now()
	logPath := filepath.Join(cfg.Paths.LogDir, RunLogName(now))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", logPath, err)
	}
	// The run log keeps debug records whatever the console level is.
	fileLevel := new(slog.LevelVar)
	fileLevel.Set(slog.LevelDebug)

	logger := TeeLogger(console, newJSONHandler(file, fileLevel, false))
	PruneRunLogs(NewComponentLogger(logger, "logging"), cfg.Paths.LogDir, cfg.Logging.RetentionDays, now, logPath)
	return logger, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
