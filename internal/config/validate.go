package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCommons(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Paths.JournalPath) == "" {
		return errors.New("paths.journal_path must be set when journal.enabled is true")
	}
	return nil
}

func (c *Config) validateCommons() error {
	parsed, err := url.Parse(c.Commons.APIURL)
	if err != nil {
		return fmt.Errorf("commons.api_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("commons.api_url must be an http(s) url, got %q", c.Commons.APIURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("commons.api_url is missing a host: %q", c.Commons.APIURL)
	}
	if c.Commons.BatchSize < 1 || c.Commons.BatchSize > maxBatchSize {
		return fmt.Errorf("commons.batch_size must be between 1 and %d", maxBatchSize)
	}
	if c.Commons.QueryRatePerSecond <= 0 {
		return errors.New("commons.query_rate_per_second must be positive")
	}
	return ensurePositiveMap(map[string]int{
		"commons.query_timeout_seconds": c.Commons.QueryTimeoutSeconds,
	})
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.max_concurrent_requests": c.Fetch.MaxConcurrentRequests,
		"fetch.max_concurrent_per_host": c.Fetch.MaxConcurrentPerHost,
		"fetch.fetch_timeout_seconds":   c.Fetch.FetchTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Fetch.MaxConcurrentPerHost > c.Fetch.MaxConcurrentRequests {
		return errors.New("fetch.max_concurrent_per_host must not exceed fetch.max_concurrent_requests")
	}
	if c.Fetch.MaxRetries < 0 {
		return errors.New("fetch.max_retries must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) url, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	if c.Logging.FileLevel != "" && !validLevel(c.Logging.FileLevel) {
		return fmt.Errorf("logging.file_level must be one of debug, info, warn, error (got %q)", c.Logging.FileLevel)
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
