package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"archivist/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory_Missing(t *testing.T) {
	result := CheckCreatableDirectory("test", filepath.Join(t.TempDir(), "a", "b"))
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable pass, got: %+v", result)
	}
}

func TestCheckCreatableDirectory_FileAncestor(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckCreatableDirectory("test", filepath.Join(f, "sub"))
	if result.Passed {
		t.Fatal("expected failure below a regular file")
	}
}

func TestCheckIndexFile(t *testing.T) {
	dir := t.TempDir()
	if r := CheckIndexFile("index", filepath.Join(dir, "docs", "README.md")); !r.Passed {
		t.Fatalf("expected pass for missing index, got %+v", r)
	}
	if r := CheckIndexFile("index", dir); r.Passed {
		t.Fatal("expected failure when index path is a directory")
	}
	existing := filepath.Join(dir, "README.md")
	if err := os.WriteFile(existing, []byte("# x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckIndexFile("index", existing); !r.Passed {
		t.Fatalf("expected pass for writable index, got %+v", r)
	}
}

func TestCheckCommonsAPI_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("meta") != "siteinfo" || r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckCommonsAPI(context.Background(), srv.URL+"/w/api.php", "archivist/test")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckCommonsAPI_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	result := CheckCommonsAPI(context.Background(), srv.URL, "x")
	if result.Passed {
		t.Fatal("expected failure for 403")
	}
}

func TestCheckCommonsAPI_MissingURL(t *testing.T) {
	if result := CheckCommonsAPI(context.Background(), "", ""); result.Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DestDir = filepath.Join(base, "archive")
	cfg.Paths.IndexPath = filepath.Join(base, "archive", "README.md")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.JournalPath = filepath.Join(base, "state", "journal.db")

	results := RunAll(&cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if err := Err(results); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}

	cfg.Journal.Enabled = false
	cfg.Paths.IndexPath = ""
	if n := len(RunAll(&cfg)); n != 2 {
		t.Fatalf("expected 2 results without index and journal, got %d", n)
	}
}

func TestErrListsFailures(t *testing.T) {
	err := Err([]Result{{Name: "a", Passed: true}, {Name: "b", Detail: "broken"}})
	if err == nil || !strings.Contains(err.Error(), "b: broken") {
		t.Fatalf("Err = %v", err)
	}
	if RunAll(nil) != nil {
		t.Fatal("nil config should yield no results")
	}
}
