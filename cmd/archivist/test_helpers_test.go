package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"archivist/internal/config"
	"archivist/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	server     *testsupport.CommonsServer
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, files ...testsupport.CommonsFile) *cliTestEnv {
	t.Helper()
	return setupCLITestEnvWith(t, files)
}

func setupCLITestEnvWith(t *testing.T, files []testsupport.CommonsFile, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	server := testsupport.NewCommonsServer(t, files...)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithCommonsAPI(server.APIURL()),
		testsupport.WithIndex("site/README.md"),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)

	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("ARCHIVIST_CONTACT", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		server:     server,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
