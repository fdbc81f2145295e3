package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"archivist/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnvContact(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("ARCHIVIST_CONTACT", "ops@example.com")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "archivist", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	wantLogs := filepath.Join(tempHome, ".local", "state", "archivist", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Paths.JournalPath != filepath.Join(tempHome, ".local", "state", "archivist", "journal.db") {
		t.Fatalf("unexpected journal path: %q", cfg.Paths.JournalPath)
	}
	if cfg.Commons.Contact != "ops@example.com" {
		t.Fatalf("expected contact from env, got %q", cfg.Commons.Contact)
	}
	if cfg.Commons.BatchSize != 50 {
		t.Fatalf("expected batch size 50, got %d", cfg.Commons.BatchSize)
	}
	if cfg.Fetch.MaxConcurrentPerHost != 1 {
		t.Fatalf("expected per-host cap 1, got %d", cfg.Fetch.MaxConcurrentPerHost)
	}
	if cfg.Paths.IndexPath != "" {
		t.Fatalf("expected no default index path, got %q", cfg.Paths.IndexPath)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "archivist.toml")
	content := `
[paths]
dest_dir = "~/archive"
index_path = "~/archive/index.md"

[commons]
batch_size = 500
query_rate_per_second = 2

[fetch]
max_concurrent_requests = 4
max_concurrent_per_host = 2
max_retries = -3

[notifications]
ntfy_topic = " https://ntfy.example/archive "
request_timeout_seconds = 0

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %s, got %s (exists=%v)", path, resolved, exists)
	}
	if cfg.Paths.DestDir != filepath.Join(tempHome, "archive") {
		t.Fatalf("unexpected dest dir: %q", cfg.Paths.DestDir)
	}
	if cfg.Paths.IndexPath != filepath.Join(tempHome, "archive", "index.md") {
		t.Fatalf("unexpected index path: %q", cfg.Paths.IndexPath)
	}
	if cfg.Commons.BatchSize != 50 {
		t.Fatalf("expected batch size clamped to 50, got %d", cfg.Commons.BatchSize)
	}
	if cfg.Fetch.MaxConcurrentRequests != 4 || cfg.Fetch.MaxConcurrentPerHost != 2 {
		t.Fatalf("unexpected fetch limits: %+v", cfg.Fetch)
	}
	if cfg.Fetch.MaxRetries != 0 {
		t.Fatalf("expected negative retries clamped to 0, got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/archive" || cfg.NotificationTimeout() != 10*time.Second {
		t.Fatalf("unexpected notifications config: %+v", cfg.Notifications)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[fetch]\nparallelism = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateRejectsBadLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "per host above global",
			mutate: func(c *config.Config) { c.Fetch.MaxConcurrentPerHost = 9 },
			want:   "max_concurrent_per_host",
		},
		{
			name:   "non http api url",
			mutate: func(c *config.Config) { c.Commons.APIURL = "ftp://example.com/api.php" },
			want:   "commons.api_url",
		},
		{
			name:   "zero timeout",
			mutate: func(c *config.Config) { c.Fetch.FetchTimeoutSeconds = 0 },
			want:   "fetch.fetch_timeout_seconds",
		},
		{
			name:   "non http ntfy topic",
			mutate: func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/topic" },
			want:   "notifications.ntfy_topic",
		},
		{
			name:   "unknown file level",
			mutate: func(c *config.Config) { c.Logging.FileLevel = "trace" },
			want:   "logging.file_level",
		},
		{
			name:   "unknown level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSampleConfigIsValidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
