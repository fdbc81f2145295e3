package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCommons()
	c.normalizeFetch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DestDir, err = expandPath(strings.TrimSpace(c.Paths.DestDir)); err != nil {
		return fmt.Errorf("paths.dest_dir: %w", err)
	}
	if c.Paths.IndexPath, err = expandPath(strings.TrimSpace(c.Paths.IndexPath)); err != nil {
		return fmt.Errorf("paths.index_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = Default().Paths.LogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		c.Paths.JournalPath = Default().Paths.JournalPath
	}
	if c.Paths.JournalPath, err = expandPath(c.Paths.JournalPath); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCommons() {
	c.Commons.APIURL = strings.TrimSpace(c.Commons.APIURL)
	if c.Commons.APIURL == "" {
		c.Commons.APIURL = defaultCommonsAPIURL
	}
	if c.Commons.BatchSize <= 0 {
		c.Commons.BatchSize = defaultBatchSize
	}
	if c.Commons.BatchSize > maxBatchSize {
		c.Commons.BatchSize = maxBatchSize
	}
	if c.Commons.QueryRatePerSecond <= 0 {
		c.Commons.QueryRatePerSecond = defaultQueryRatePerSecond
	}
	if c.Commons.QueryTimeoutSeconds <= 0 {
		c.Commons.QueryTimeoutSeconds = defaultQueryTimeoutSeconds
	}
	c.Commons.Contact = strings.TrimSpace(c.Commons.Contact)
	if c.Commons.Contact == "" {
		if value, ok := os.LookupEnv("ARCHIVIST_CONTACT"); ok {
			c.Commons.Contact = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.MaxConcurrentPerHost <= 0 {
		c.Fetch.MaxConcurrentPerHost = defaultMaxConcurrentPerHost
	}
	if c.Fetch.MaxConcurrentRequests <= 0 {
		c.Fetch.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}
	if c.Fetch.FetchTimeoutSeconds <= 0 {
		c.Fetch.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.Fetch.MaxRetries < 0 {
		c.Fetch.MaxRetries = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.FileLevel = strings.ToLower(strings.TrimSpace(c.Logging.FileLevel))
}
