package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kartify/catalog-scraper/internal/models"
	"github.com/kartify/catalog-scraper/internal/ratelimit"
)

var (
	ErrNavigationTimeout = errors.New("page navigation timed out")
	ErrContentNotReady   = errors.New("no content ready marker appeared")
	ErrSessionClosed     = errors.New("browser session is closed")
)

type State int

const (
	StateUninitialized State = iota
	StateLaunching
	StateReady
	StateClosed
)

// contentReadySelectors are generic markers that a product page has
// rendered enough to extract from. Any one of them is sufficient.
var contentReadySelectors = []string{
	"h1",
	".product-title",
	".product-name",
	"[itemprop='name']",
	"#product-title",
}

type Options struct {
	Headless          bool
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	RequestDelay      time.Duration
	ExtraHeaders      map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:          true,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 30 * time.Second,
		ReadyTimeout:      10 * time.Second,
		RequestDelay:      2000 * time.Millisecond,
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":    "1",
		},
	}
}

// Session owns the single shared browser process. One page context is
// open at a time; FetchRenderedPage serializes callers through fetchMu
// while mu guards only the lifecycle fields, so Status and Close stay
// responsive during a long navigation.
type Session struct {
	opts    *Options
	limiter ratelimit.Limiter
	logger  *slog.Logger

	fetchMu sync.Mutex

	mu      sync.Mutex
	state   State
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

func NewSession(opts *Options) *Session {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Session{
		opts:    opts,
		limiter: ratelimit.NewFixedDelayLimiter(opts.RequestDelay),
		logger:  slog.Default().With("component", "browser"),
	}
}

// Initialize launches the browser process. Idempotent when already
// Ready; a closed session cannot be relaunched.
func (s *Session) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady:
		return nil
	case StateClosed:
		return ErrSessionClosed
	}

	s.state = StateLaunching

	pw, err := playwright.Run()
	if err != nil {
		s.state = StateUninitialized
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", s.opts.ViewportWidth, s.opts.ViewportHeight),
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		s.state = StateUninitialized
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:       playwright.String(s.opts.UserAgent),
		AcceptDownloads: playwright.Bool(false),
		Viewport: &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		},
		ExtraHttpHeaders: s.opts.ExtraHeaders,
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		s.state = StateUninitialized
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	s.pw = pw
	s.browser = browser
	s.context = browserCtx
	s.state = StateReady

	s.logger.Info("browser session ready",
		"headless", s.opts.Headless,
		"viewport", fmt.Sprintf("%dx%d", s.opts.ViewportWidth, s.opts.ViewportHeight),
	)
	return nil
}

// FetchRenderedPage navigates to url and returns the rendered HTML. The
// page context is closed on every exit path. A ContentNotReady failure
// abandons only this URL; the session stays usable. The politeness
// delay is applied before returning control.
func (s *Session) FetchRenderedPage(ctx context.Context, url string) (string, error) {
	if err := s.Initialize(); err != nil {
		return "", err
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	browserCtx := s.context
	s.mu.Unlock()

	page, err := browserCtx.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	s.logger.Info("navigating", "url", url)

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.opts.NavigationTimeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
	}

	readySelector := strings.Join(contentReadySelectors, ", ")
	if _, err := page.WaitForSelector(readySelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(s.opts.ReadyTimeout.Milliseconds())),
		State:   playwright.WaitForSelectorStateAttached,
	}); err != nil {
		return "", fmt.Errorf("%w: %s", ErrContentNotReady, url)
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	return html, nil
}

// Status reports session state for operational tooling.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SessionStatus{
		Initialized:   s.state == StateReady,
		BrowserActive: s.state == StateReady && s.browser != nil && s.browser.IsConnected(),
	}
}

// Close terminates the browser process. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed || s.state == StateUninitialized {
		s.state = StateClosed
		return nil
	}

	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	s.state = StateClosed

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
