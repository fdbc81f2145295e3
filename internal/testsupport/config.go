package testsupport

import (
	"path/filepath"
	"testing"

	"archivist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DestDir = filepath.Join(base, "archive")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.JournalPath = filepath.Join(base, "state", "journal.db")
	cfgVal.Commons.Contact = "archivist-tests@example.com"
	cfgVal.Commons.QueryRatePerSecond = 1000
	cfgVal.Commons.QueryTimeoutSeconds = 5
	cfgVal.Fetch.FetchTimeoutSeconds = 5
	cfgVal.Fetch.MaxRetries = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCommonsAPI points the config at a fake query endpoint.
func WithCommonsAPI(apiURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Commons.APIURL = apiURL
	}
}

// WithIndex sets the index path relative to the temp base directory.
func WithIndex(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.IndexPath = filepath.Join(b.baseDir, name)
	}
}

// WithFetchLimits overrides the global and per-host request caps.
func WithFetchLimits(global, perHost int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fetch.MaxConcurrentRequests = global
		b.cfg.Fetch.MaxConcurrentPerHost = perHost
	}
}

// WithoutJournal disables run history.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
