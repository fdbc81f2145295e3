package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"archivist/internal/config"
)

// LogFileName is the file written inside the configured log directory.
const LogFileName = "archivist.log"

// Options describes logger construction parameters.
type Options struct {
	Level   string
	Format  string
	Console io.Writer
	// FilePath receives JSON records in addition to the console output.
	FilePath string
	// FileLevel filters the file records. Empty uses Level.
	FileLevel   string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	consoleLevel := new(slog.LevelVar)
	consoleLevel.Set(parseLevel(opts.Level))
	addSource := opts.Development || consoleLevel.Level() <= slog.LevelDebug

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var primary slog.Handler
	switch format {
	case "json":
		primary = newJSONHandler(console, consoleLevel, addSource)
	case "console":
		primary = newConsoleHandler(console, consoleLevel, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	var fileHandler slog.Handler
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		fileLevel := consoleLevel
		if strings.TrimSpace(opts.FileLevel) != "" {
			fileLevel = new(slog.LevelVar)
			fileLevel.Set(parseLevel(opts.FileLevel))
		}
		fileHandler = newJSONHandler(file, fileLevel, addSource)
	}

	return slog.New(newTeeHandler(primary, fileHandler)), nil
}

// NewFromConfig creates a logger using application config defaults.
func NewFromConfig(cfg *config.Config, console io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Console: console})
	}

	var filePath string
	if cfg.Paths.LogDir != "" {
		filePath = filepath.Join(cfg.Paths.LogDir, LogFileName)
	}
	return New(Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Console:   console,
		FilePath:  filePath,
		FileLevel: cfg.Logging.FileLevel,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
