package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains destination, index and state locations.
type Paths struct {
	DestDir     string `toml:"dest_dir"`
	IndexPath   string `toml:"index_path"`
	LogDir      string `toml:"log_dir"`
	JournalPath string `toml:"journal_path"`
}

// Commons contains configuration for the Wikimedia Commons query API.
type Commons struct {
	APIURL              string  `toml:"api_url"`
	BatchSize           int     `toml:"batch_size"`
	QueryRatePerSecond  float64 `toml:"query_rate_per_second"`
	QueryTimeoutSeconds int     `toml:"query_timeout_seconds"`
	Contact             string  `toml:"contact"`
}

// Fetch contains the content download limits.
type Fetch struct {
	MaxConcurrentRequests int `toml:"max_concurrent_requests"`
	MaxConcurrentPerHost  int `toml:"max_concurrent_per_host"`
	FetchTimeoutSeconds   int `toml:"fetch_timeout_seconds"`
	MaxRetries            int `toml:"max_retries"`
}

// Index contains index merge behaviour.
type Index struct {
	// MergeOnCancel merges whatever was archived before an interrupted run.
	MergeOnCancel bool `toml:"merge_on_cancel"`
}

// Journal controls the run history database.
type Journal struct {
	Enabled bool `toml:"enabled"`
}

// Notifications configures run summaries pushed to an ntfy topic.
type Notifications struct {
	// NtfyTopic is the full topic URL. Empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// OnlyFailures suppresses summaries of fully successful runs.
	OnlyFailures bool `toml:"only_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// FileLevel filters the log file separately. Empty follows Level.
	FileLevel string `toml:"file_level"`
}

// Config encapsulates all configuration values for archivist.
//
// Configuration sections by subsystem:
//   - Paths: default destination, index, log and journal locations
//   - Commons: query endpoint, batching and pacing
//   - Fetch: global and per-host download concurrency, timeouts, retries
//   - Index: merge behaviour
//   - Journal: run history
//   - Notifications: ntfy run summaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Commons       Commons       `toml:"commons"`
	Fetch         Fetch         `toml:"fetch"`
	Index         Index         `toml:"index"`
	Journal       Journal       `toml:"journal"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("archivist.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directories archivist writes to on every run.
// Destination directories are created per run by the fetcher.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.Journal.Enabled && c.Paths.JournalPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.JournalPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueryTimeout returns the per-request timeout for metadata queries.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Commons.QueryTimeoutSeconds) * time.Second
}

// NotificationTimeout returns the per-request timeout for ntfy pushes.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// FetchTimeout returns the per-request timeout for content downloads.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.FetchTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "archivist")
	}
	return defaultStateDirFallback
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
