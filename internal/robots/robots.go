package robots

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Gate answers allow/deny for URLs against the target site's published
// crawling policy. Rules are fetched once per session; after Initialize
// the gate is read-only.
//
// When robots.txt cannot be fetched the gate fails open and allows
// everything. Availability over strictness; the warning log is the only
// trace of the degraded mode.
type Gate struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu   sync.RWMutex
	data *robotstxt.RobotsData
}

func NewGate(baseURL string, client *http.Client) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gate{
		baseURL: baseURL,
		client:  client,
		logger:  slog.Default().With("component", "robots_gate"),
	}
}

// Initialize fetches and parses {baseURL}/robots.txt. Fetch or parse
// failure leaves the gate in allow-all mode and is not returned as an
// error to the caller.
func (g *Gate) Initialize(ctx context.Context) error {
	robotsURL := g.baseURL + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build robots request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("robots.txt fetch failed, allowing all URLs", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.Warn("robots.txt read failed, allowing all URLs", "url", robotsURL, "error", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		g.logger.Warn("robots.txt parse failed, allowing all URLs", "url", robotsURL, "error", err)
		return nil
	}

	g.mu.Lock()
	g.data = data
	g.mu.Unlock()

	g.logger.Info("robots.txt loaded", "url", robotsURL, "status", resp.StatusCode)
	return nil
}

// IsAllowed reports whether the given URL may be fetched by the given
// user agent. Pure lookup; returns true when no rules were loaded.
func (g *Gate) IsAllowed(rawURL, userAgent string) bool {
	g.mu.RLock()
	data := g.data
	g.mu.RUnlock()

	if data == nil {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return data.FindGroup(userAgent).Test(path)
}
