package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Gate bounds concurrent requests with a global cap and a per-host cap.
type Gate struct {
	global  *semaphore.Weighted
	perHost int64

	mu    sync.Mutex
	hosts map[string]*semaphore.Weighted
}

// NewGate returns a gate allowing global requests in total and perHost
// requests to any single host. Non-positive values are treated as 1.
func NewGate(global, perHost int) *Gate {
	if global <= 0 {
		global = 1
	}
	if perHost <= 0 {
		perHost = 1
	}
	return &Gate{
		global:  semaphore.NewWeighted(int64(global)),
		perHost: int64(perHost),
		hosts:   make(map[string]*semaphore.Weighted),
	}
}

// Acquire blocks until a slot for host and a global slot are both held. The
// host slot is taken first so a request waiting on a busy host never pins a
// global slot. The returned release must be called exactly once.
func (g *Gate) Acquire(ctx context.Context, host string) (func(), error) {
	hostSem := g.hostSemaphore(host)
	if err := hostSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := g.global.Acquire(ctx, 1); err != nil {
		hostSem.Release(1)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.global.Release(1)
			hostSem.Release(1)
		})
	}, nil
}

func (g *Gate) hostSemaphore(host string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.hosts[host]
	if !ok {
		sem = semaphore.NewWeighted(g.perHost)
		g.hosts[host] = sem
	}
	return sem
}

// HostOf returns the lower-cased host (with port) of an absolute http(s) URL.
func HostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return strings.ToLower(u.Host), nil
}
