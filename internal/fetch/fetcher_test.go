package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, opts Options) *Fetcher {
	t.Helper()
	if opts.DestDir == "" {
		opts.DestDir = t.TempDir()
	}
	if opts.Retry.InitialBackoff == 0 {
		opts.Retry.InitialBackoff = time.Millisecond
		opts.Retry.MaxBackoff = 5 * time.Millisecond
	}
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestFetchWritesFileAndSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{UserAgent: "archivist/test (ops@example.com)"})
	result, err := f.Fetch(context.Background(), Descriptor{Filename: "A.jpg", URL: srv.URL + "/a.jpg"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(f.DestDir(), "A.jpg"))
	if err != nil {
		t.Fatalf("read archived file: %v", err)
	}
	if string(data) != "image-bytes" || result.Bytes != int64(len(data)) {
		t.Fatalf("unexpected content %q bytes=%d", data, result.Bytes)
	}
	if gotUA != "archivist/test (ops@example.com)" {
		t.Fatalf("User-Agent = %q", gotUA)
	}
}

func TestFetchOverwritesExistingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{})
	path := filepath.Join(f.DestDir(), "A.jpg")
	if err := os.WriteFile(path, []byte("old-and-longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(context.Background(), Descriptor{Filename: "A.jpg", URL: srv.URL}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Fatalf("content = %q", data)
	}
}

func TestFetchNon2xxWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Retry: RetryPolicy{MaxRetries: 2}})
	_, err := f.Fetch(context.Background(), Descriptor{Filename: "A.jpg", URL: srv.URL})
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	entries, _ := os.ReadDir(f.DestDir())
	if len(entries) != 0 {
		t.Fatalf("expected empty destination, found %d entries", len(entries))
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, Options{Retry: RetryPolicy{MaxRetries: 2}})
	if _, err := f.Fetch(context.Background(), Descriptor{Filename: "A.jpg", URL: srv.URL}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchRejectsUnsafeFilenames(t *testing.T) {
	f := newTestFetcher(t, Options{})
	for _, name := range []string{"../escape.jpg", "/etc/passwd", "", "a/../../b.jpg"} {
		_, err := f.Fetch(context.Background(), Descriptor{Filename: name, URL: "http://127.0.0.1:1/x"})
		if !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("Fetch(%q) err = %v, want ErrUnsafePath", name, err)
		}
	}
}

func TestFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	f := newTestFetcher(t, Options{Timeout: 20 * time.Millisecond})
	_, err := f.Fetch(context.Background(), Descriptor{Filename: "slow.jpg", URL: srv.URL})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestFetchAllRespectsCaps(t *testing.T) {
	var inFlight, peak atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte(r.URL.Path))
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	f := newTestFetcher(t, Options{Gate: NewGate(4, 1)})
	const total = 6
	descs := make(chan Descriptor)
	go func() {
		defer close(descs)
		for i := range total {
			descs <- Descriptor{Filename: fmt.Sprintf("f%d.jpg", i), URL: fmt.Sprintf("%s/f%d", srv.URL, i)}
		}
	}()

	var mu sync.Mutex
	var results []Result
	f.FetchAll(context.Background(), descs, func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})

	if len(results) != total {
		t.Fatalf("got %d results, want %d", len(results), total)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("fetch %s: %v", r.Descriptor.Filename, r.Err)
		}
		data, _ := os.ReadFile(r.Path)
		if !strings.HasSuffix(string(data), strings.TrimSuffix(r.Descriptor.Filename, ".jpg")) {
			t.Fatalf("unexpected content for %s: %q", r.Descriptor.Filename, data)
		}
	}
	if peak.Load() != 1 {
		t.Fatalf("per-host cap of 1 violated: peak %d", peak.Load())
	}
}
