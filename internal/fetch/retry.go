package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"archivist/internal/logging"
)

// Backoff defaults for transient HTTP failures.
const (
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// ErrStatus reports a non-2xx HTTP response.
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the details of a non-2xx response.
type StatusError struct {
	Code       int
	Status     string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %s", e.Status)
	}
	return fmt.Sprintf("http %s: %s", e.Status, e.Body)
}

// Is matches ErrStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// CheckResponse returns a *StatusError for non-2xx responses. It reads up to
// 4 KiB of the body for diagnostics.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{
		Code:       resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, server errors, timeouts,
// connection errors).
func IsRetriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"connection reset",
		"connection refused",
		"temporary failure",
		"awaiting headers",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// RetryPolicy controls retries of transient failures.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Backoff returns the delay before retry attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	maxBackoff := p.maxBackoff()
	if attempt < 1 {
		attempt = 1
	}
	backoff := initial << uint(min(attempt-1, 16))
	if backoff <= 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

func (p RetryPolicy) maxBackoff() time.Duration {
	if p.MaxBackoff <= 0 {
		return DefaultMaxBackoff
	}
	return p.MaxBackoff
}

// Do runs op, retrying transient failures up to MaxRetries times. It stops
// as soon as ctx is done.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, what string, op func(context.Context) error) error {
	attempt := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetriable(err) || attempt >= p.MaxRetries {
			return err
		}
		attempt++
		backoff := p.Backoff(attempt)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > backoff {
			backoff = min(statusErr.RetryAfter, p.maxBackoff())
		}
		if logger != nil {
			logger.Warn(what+" failed, retrying",
				logging.Duration("backoff", backoff),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", p.MaxRetries),
				logging.Error(err),
				logging.Event("http_retry"),
				logging.Hint("transient network or server error"),
			)
		}
		if err := SleepWithContext(ctx, backoff); err != nil {
			return err
		}
	}
}
