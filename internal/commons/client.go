package commons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"archivist/internal/fetch"
	"archivist/internal/logging"
	"archivist/internal/outcome"
)

const (
	// DefaultAPIURL is the Wikimedia Commons MediaWiki API endpoint.
	DefaultAPIURL = "https://commons.wikimedia.org/w/api.php"
	// MaxBatchSize is the API's per-request title limit for anonymous clients.
	MaxBatchSize = 50

	defaultQueryTimeout = 30 * time.Second
)

var (
	// ErrNotFound reports a title with no corresponding file page.
	ErrNotFound = errors.New("commons: file not found")
	// ErrMalformed reports a response that lacks the data needed to fetch.
	ErrMalformed = errors.New("commons: malformed response")
)

// Config describes the Commons client configuration.
type Config struct {
	APIURL    string
	UserAgent string
	Timeout   time.Duration
	Retry     fetch.RetryPolicy
	// Gate is shared with the fetcher so queries count toward the same caps.
	Gate *fetch.Gate
	// Limiter paces query requests. Nil disables pacing.
	Limiter    *rate.Limiter
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client queries the MediaWiki API for file metadata.
type Client struct {
	endpoint  *url.URL
	host      string
	userAgent string
	timeout   time.Duration
	retry     fetch.RetryPolicy
	gate      *fetch.Gate
	limiter   *rate.Limiter
	http      *http.Client
	logger    *slog.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		raw = DefaultAPIURL
	}
	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("commons: parse api url: %w", err)
	}
	host, err := fetch.HostOf(raw)
	if err != nil {
		return nil, fmt.Errorf("commons: api url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	gate := cfg.Gate
	if gate == nil {
		gate = fetch.NewGate(1, 1)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		endpoint:  endpoint,
		host:      host,
		userAgent: strings.TrimSpace(cfg.UserAgent),
		timeout:   timeout,
		retry:     cfg.Retry,
		gate:      gate,
		limiter:   cfg.Limiter,
		http:      client,
		logger:    logging.NewComponentLogger(cfg.Logger, "commons"),
	}, nil
}

// Resolution is the per-title result of one batch query.
type Resolution struct {
	Descriptors []fetch.Descriptor
	Failures    []outcome.ResolutionFailure
}

// Query resolves a batch of at most MaxBatchSize titles with a single API
// request. Titles the API cannot accept are failed without being sent. A
// non-nil error means the request as a whole failed; the returned
// Resolution then only holds those pre-flight failures.
func (c *Client) Query(ctx context.Context, titles []string) (Resolution, error) {
	if c == nil {
		return Resolution{}, errors.New("commons: client is nil")
	}
	if len(titles) > MaxBatchSize {
		return Resolution{}, fmt.Errorf("commons: batch of %d titles exceeds limit %d", len(titles), MaxBatchSize)
	}

	var res Resolution
	valid := make([]string, 0, len(titles))
	for _, title := range titles {
		if strings.TrimSpace(title) == "" || strings.ContainsAny(title, "|\x00") {
			res.Failures = append(res.Failures, outcome.ResolutionFailure{
				Identifier: title,
				Reason:     outcome.ReasonMalformed,
				Err:        fmt.Errorf("%w: title %q cannot be queried", ErrMalformed, title),
			})
			continue
		}
		valid = append(valid, title)
	}
	if len(valid) == 0 {
		return res, nil
	}

	var payload apiResponse
	err := c.retry.Do(ctx, c.logger, "commons query", func(ctx context.Context) error {
		var err error
		payload, err = c.do(ctx, valid)
		return err
	})
	if err != nil {
		return res, err
	}

	matched := payload.match(valid)
	res.Descriptors = append(res.Descriptors, matched.Descriptors...)
	res.Failures = append(res.Failures, matched.Failures...)
	return res, nil
}

func (c *Client) do(ctx context.Context, titles []string) (apiResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apiResponse{}, err
		}
	}
	release, err := c.gate.Acquire(ctx, c.host)
	if err != nil {
		return apiResponse{}, err
	}
	defer release()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := *c.endpoint
	params := endpoint.Query()
	params.Set("format", "json")
	params.Set("action", "query")
	params.Set("titles", strings.Join(titles, "|"))
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "extmetadata|url")
	params.Set("iiextmetadatafilter", "Artist|LicenseShortName|LicenseUrl")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return apiResponse{}, fmt.Errorf("commons: build query request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logging.WithContext(ctx, c.logger).Debug("commons query",
		logging.Int("titles", len(titles)),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("commons: query request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := fetch.CheckResponse(resp); err != nil {
		return apiResponse{}, fmt.Errorf("commons: query failed: %w", err)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return apiResponse{}, fmt.Errorf("%w: decode query response: %v", ErrMalformed, err)
	}
	if payload.Error != nil {
		return apiResponse{}, fmt.Errorf("commons: api error %s: %s", payload.Error.Code, payload.Error.Info)
	}
	if payload.Query == nil {
		return apiResponse{}, fmt.Errorf("%w: response has no query section", ErrMalformed)
	}
	return payload, nil
}
