package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"archivist/internal/config"
	"archivist/internal/outcome"
)

// RunSummary is the information sent when a run finishes.
type RunSummary struct {
	RunID     string
	Source    string
	Status    outcome.Status
	Requested int
	Archived  int
	Failed    int
	Duration  time.Duration
	Cancelled bool
	IndexErr  string
}

// Service defines the notification surface used by the archive pipeline.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config, userAgent string) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     strings.TrimSpace(cfg.Notifications.NtfyTopic),
		userAgent:    userAgent,
		onlyFailures: cfg.Notifications.OnlyFailures,
		client:       &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	userAgent    string
	onlyFailures bool
	client       *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, s RunSummary) error {
	if n.onlyFailures && s.Status == outcome.StatusSuccess {
		return nil
	}
	return n.send(ctx, runPayload(s))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "archivist - Test",
		message:  "Notification system test",
		tags:     []string{"archivist", "test"},
		priority: "low",
	})
}

func runPayload(s RunSummary) payload {
	duration := s.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	source := s.Source
	if source == "" {
		source = "archive"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d files archived in %s", source, s.Archived, s.Requested, duration)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "\n%d failed", s.Failed)
	}
	if s.IndexErr != "" {
		fmt.Fprintf(&b, "\nIndex not updated: %s", s.IndexErr)
	}
	if s.Cancelled {
		b.WriteString("\nRun was interrupted")
	}
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nRun %s", s.RunID)
	}

	data := payload{
		title:   "archivist - Run Complete",
		message: b.String(),
		tags:    []string{"archivist", s.Status.String()},
	}
	switch s.Status {
	case outcome.StatusSuccess:
	case outcome.StatusQueryError, outcome.StatusFetchError:
		data.title = "archivist - Run Complete (with errors)"
	default:
		data.title = "archivist - Run Failed"
		data.priority = "high"
	}
	return data
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
