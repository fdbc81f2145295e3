package config

import "path/filepath"

const (
	defaultConfigPath            = "~/.config/archivist/config.toml"
	defaultStateDirFallback      = "~/.local/state/archivist"
	defaultCommonsAPIURL         = "https://commons.wikimedia.org/w/api.php"
	defaultBatchSize             = 50
	maxBatchSize                 = 50
	defaultQueryRatePerSecond    = 5
	defaultQueryTimeoutSeconds   = 30
	defaultMaxConcurrentRequests = 8
	defaultMaxConcurrentPerHost  = 1
	defaultFetchTimeoutSeconds   = 300
	defaultMaxRetries            = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultJournalEnabled        = true
	defaultNotifyTimeoutSeconds  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	stateDir := defaultStateDir()
	return Config{
		Paths: Paths{
			LogDir:      filepath.Join(stateDir, "logs"),
			JournalPath: filepath.Join(stateDir, "journal.db"),
		},
		Commons: Commons{
			APIURL:              defaultCommonsAPIURL,
			BatchSize:           defaultBatchSize,
			QueryRatePerSecond:  defaultQueryRatePerSecond,
			QueryTimeoutSeconds: defaultQueryTimeoutSeconds,
		},
		Fetch: Fetch{
			MaxConcurrentRequests: defaultMaxConcurrentRequests,
			MaxConcurrentPerHost:  defaultMaxConcurrentPerHost,
			FetchTimeoutSeconds:   defaultFetchTimeoutSeconds,
			MaxRetries:            defaultMaxRetries,
		},
		Journal: Journal{
			Enabled: defaultJournalEnabled,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
