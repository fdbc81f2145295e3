package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"archivist/internal/outcome"
	"archivist/internal/testsupport"
)

func TestCommonsArchivesAndIndexes(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.CommonsFile{Title: "File:A.jpg", Content: "aaa", Artist: "Al", License: "CC0"},
		testsupport.CommonsFile{Title: "File:B.jpg", Content: "bbb", Artist: "Bea", License: "CC BY 4.0"},
	)

	out, stderr, err := runCLI(t, []string{"wikimedia-commons", "File:B.jpg", "File:A.jpg"}, env.configPath)
	if err != nil {
		t.Fatalf("wikimedia-commons: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "2 requested, 2 archived")
	requireContains(t, out, "success (0)")
	requireContains(t, stderr, "archive run finished")

	if got := testsupport.ReadFile(t, filepath.Join(env.cfg.Paths.DestDir, "B.jpg")); got != "bbb" {
		t.Fatalf("B.jpg content = %q", got)
	}
	idx := testsupport.ReadFile(t, env.cfg.Paths.IndexPath)
	lines := strings.Split(strings.TrimSuffix(idx, "\n"), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "- [A.jpg](A.jpg): ") || !strings.HasPrefix(lines[1], "- [B.jpg](B.jpg): ") {
		t.Fatalf("unexpected index:\n%s", idx)
	}
}

func TestCommonsAliasAndDestFlag(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.CommonsFile{Title: "File:A.jpg", Content: "aaa"})
	dest := filepath.Join(env.baseDir, "elsewhere")

	if _, stderr, err := runCLI(t, []string{"commons", "--dest", dest, "--no-index", "File:A.jpg"}, env.configPath); err != nil {
		t.Fatalf("commons: %v\nstderr: %s", err, stderr)
	}
	testsupport.ReadFile(t, filepath.Join(dest, "A.jpg"))
	testsupport.AssertMissing(t, filepath.Join(env.cfg.Paths.DestDir, "A.jpg"))
	testsupport.AssertMissing(t, env.cfg.Paths.IndexPath)
}

func TestCommonsUnresolvedIdentifierExitsWithQueryStatus(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.CommonsFile{Title: "File:A.jpg", Content: "aaa"})

	out, _, err := runCLI(t, []string{"wikimedia-commons", "File:A.jpg", "File:Missing.jpg"}, env.configPath)
	var coded *exitError
	if !errors.As(err, &coded) || coded.status != outcome.StatusQueryError {
		t.Fatalf("expected query-error exit, got %v", err)
	}
	if code := exitCode(err, io.Discard); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	requireContains(t, out, "File:Missing.jpg")
	requireContains(t, out, string(outcome.ReasonNotFound))
	requireContains(t, out, "query-error (2)")

	idx := testsupport.ReadFile(t, env.cfg.Paths.IndexPath)
	if strings.Count(idx, "- [") != 1 {
		t.Fatalf("expected the resolved file to be indexed, got:\n%s", idx)
	}
}

func TestCommonsDownloadFailureExitsWithFetchStatus(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.CommonsFile{Title: "File:A.jpg", Content: "aaa"},
		testsupport.CommonsFile{Title: "File:Gone.jpg", DownloadStatus: http.StatusNotFound},
	)

	out, _, err := runCLI(t, []string{"wikimedia-commons", "File:A.jpg", "File:Gone.jpg"}, env.configPath)
	if code := exitCode(err, io.Discard); code != 4 {
		t.Fatalf("exit code = %d (err %v), want 4", code, err)
	}
	requireContains(t, out, "Gone.jpg")
	requireContains(t, out, "fetch-failed")
	testsupport.AssertMissing(t, filepath.Join(env.cfg.Paths.DestDir, "Gone.jpg"))
}

func TestCommonsMalformedIndexExitsWithIndexStatus(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.CommonsFile{Title: "File:A.jpg", Content: "aaa"})
	original := "# Files\n\n- [broken\n- [ok](ok): fine\n"
	testsupport.WriteFile(t, env.cfg.Paths.IndexPath, original)

	out, _, err := runCLI(t, []string{"wikimedia-commons", "File:A.jpg"}, env.configPath)
	if code := exitCode(err, io.Discard); code != 8 {
		t.Fatalf("exit code = %d (err %v), want 8", code, err)
	}
	requireContains(t, out, "index not updated")
	if got := testsupport.ReadFile(t, env.cfg.Paths.IndexPath); got != original {
		t.Fatalf("index was modified:\n%s", got)
	}
}

func TestCommonsJSONReport(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.CommonsFile{Title: "File:A.jpg", Content: "aaa", Artist: "Al"})

	out, _, err := runCLI(t, []string{"wikimedia-commons", "--json", "File:A.jpg", "File:Nope.jpg"}, env.configPath)
	if exitCode(err, io.Discard) != 2 {
		t.Fatalf("unexpected error: %v", err)
	}
	var view reportView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if view.Status != "query-error" || view.ExitCode != 2 || view.Requested != 2 {
		t.Fatalf("unexpected report: %+v", view)
	}
	if len(view.Archived) != 1 || view.Archived[0].Filename != "A.jpg" {
		t.Fatalf("unexpected archived rows: %+v", view.Archived)
	}
	if len(view.Failures) != 1 || view.Failures[0].Identifier != "File:Nope.jpg" || view.Failures[0].Filename != "" {
		t.Fatalf("unexpected failures: %+v", view.Failures)
	}
}

func TestCommonsQueryOutageReportsEveryIdentifier(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.CommonsFile{Title: "File:A.jpg", Content: "aaa"})
	env.server.FailQueries(http.StatusBadGateway)

	out, _, err := runCLI(t, []string{"wikimedia-commons", "File:A.jpg", "File:B.jpg"}, env.configPath)
	if code := exitCode(err, io.Discard); code != 2 {
		t.Fatalf("exit code = %d (err %v), want 2", code, err)
	}
	if strings.Count(out, string(outcome.ReasonTransport)) != 2 {
		t.Fatalf("expected both identifiers reported as transport failures:\n%s", out)
	}
	if env.server.Downloads.Load() != 0 {
		t.Fatal("no downloads expected when queries fail")
	}
}

func TestCommonsRequiresDestination(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Paths.DestDir = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"wikimedia-commons", "File:A.jpg"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--dest") {
		t.Fatalf("expected destination error, got %v", err)
	}
	if env.server.Queries.Load() != 0 {
		t.Fatal("no queries expected without a destination")
	}
}

func TestCommonsRejectsBlankIdentifiers(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"wikimedia-commons"}, env.configPath); err == nil {
		t.Fatal("expected an argument error without identifiers")
	}
	_, _, err := runCLI(t, []string{"wikimedia-commons", "  ", ""}, env.configPath)
	if err == nil || exitCode(err, io.Discard) != 1 {
		t.Fatalf("expected generic failure for blank identifiers, got %v", err)
	}
}
