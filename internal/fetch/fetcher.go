package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"archivist/internal/fileutil"
	"archivist/internal/logging"
)

const defaultFetchTimeout = 300 * time.Second

// ErrUnsafePath reports a filename that would resolve outside the
// destination directory.
var ErrUnsafePath = errors.New("unsafe destination path")

// Descriptor is a resolved item ready to download.
type Descriptor struct {
	Identifier string
	Filename   string
	URL        string
	Credit     string
}

// Result reports the outcome of fetching one descriptor.
type Result struct {
	Descriptor Descriptor
	Path       string
	Bytes      int64
	Err        error
}

// Options configures a Fetcher.
type Options struct {
	DestDir    string
	UserAgent  string
	Timeout    time.Duration
	Retry      RetryPolicy
	Gate       *Gate
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Fetcher downloads descriptors into a destination directory.
type Fetcher struct {
	destDir   string
	userAgent string
	timeout   time.Duration
	retry     RetryPolicy
	gate      *Gate
	http      *http.Client
	logger    *slog.Logger
}

// New creates a Fetcher. A nil Gate allows a single request at a time.
func New(opts Options) (*Fetcher, error) {
	dest := strings.TrimSpace(opts.DestDir)
	if dest == "" {
		return nil, errors.New("fetch: destination directory is required")
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("fetch: resolve destination: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewGate(1, 1)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		destDir:   abs,
		userAgent: strings.TrimSpace(opts.UserAgent),
		timeout:   timeout,
		retry:     opts.Retry,
		gate:      gate,
		http:      client,
		logger:    logging.NewComponentLogger(opts.Logger, "fetch"),
	}, nil
}

// DestDir returns the absolute destination directory.
func (f *Fetcher) DestDir() string {
	return f.destDir
}

// TargetPath returns where filename is stored, rejecting names that escape
// the destination directory.
func (f *Fetcher) TargetPath(filename string) (string, error) {
	name := filepath.FromSlash(filename)
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, filename)
	}
	return filepath.Join(f.destDir, name), nil
}

// Fetch downloads d and stores it under the destination directory,
// overwriting any existing file of the same name.
func (f *Fetcher) Fetch(ctx context.Context, d Descriptor) (Result, error) {
	result := Result{Descriptor: d}
	target, err := f.TargetPath(d.Filename)
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", d.Filename, err)
		return result, result.Err
	}
	result.Path = target

	host, err := HostOf(d.URL)
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", d.Filename, err)
		return result, result.Err
	}

	logger := logging.WithContext(ctx, f.logger).With(
		logging.Filename(d.Filename),
		logging.Host(host),
	)
	logger.Debug("fetch started", logging.String("url", d.URL))

	start := time.Now()
	err = f.retry.Do(ctx, logger, "fetch", func(ctx context.Context) error {
		written, err := f.download(ctx, host, d.URL, target)
		result.Bytes = written
		return err
	})
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", d.Filename, err)
		return result, result.Err
	}

	logger.Info("file archived",
		logging.Event("file_archived"),
		logging.Int("bytes", int(result.Bytes)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (f *Fetcher) download(ctx context.Context, host, rawURL, target string) (int64, error) {
	release, err := f.gate.Acquire(ctx, host)
	if err != nil {
		return 0, err
	}
	defer release()

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := CheckResponse(resp); err != nil {
		return 0, err
	}

	written, err := fileutil.WriteStreamAtomic(target, resp.Body, 0o644)
	if err != nil {
		return written, fmt.Errorf("store: %w", err)
	}
	return written, nil
}

// FetchAll fetches every descriptor received from descs concurrently,
// bounded by the gate, and hands each result to sink. sink may be called from
// multiple goroutines. FetchAll returns once descs is closed and every fetch
// has finished.
func (f *Fetcher) FetchAll(ctx context.Context, descs <-chan Descriptor, sink func(Result)) {
	var wg sync.WaitGroup
	for d := range descs {
		wg.Go(func() {
			result, _ := f.Fetch(ctx, d)
			if sink != nil {
				sink(result)
			}
		})
	}
	wg.Wait()
}
