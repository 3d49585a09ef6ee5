package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/kartify/catalog-scraper/internal/extractor"
	"github.com/kartify/catalog-scraper/internal/models"
	"github.com/kartify/catalog-scraper/internal/sanitizer"
)

// ComplianceGate answers allow/deny against the site's crawling policy.
type ComplianceGate interface {
	Initialize(ctx context.Context) error
	IsAllowed(rawURL, userAgent string) bool
}

// PageFetcher owns the browser session and returns rendered HTML. The
// production implementation is browser.Session.
type PageFetcher interface {
	FetchRenderedPage(ctx context.Context, url string) (string, error)
	Status() models.SessionStatus
	Close() error
}

type Options struct {
	TargetDomain string
	UserAgent    string
	MaxBatchSize int
}

// Service runs the single-URL pipeline and the sequential batch
// orchestration on top of it. One shared browser session, one page at a
// time, batch URLs strictly in input order.
type Service struct {
	gate      ComplianceGate
	fetcher   PageFetcher
	engine    *extractor.Engine
	sanitizer *sanitizer.Sanitizer
	opts      Options
	logger    *slog.Logger

	gateInit sync.Once
}

func NewService(gate ComplianceGate, fetcher PageFetcher, engine *extractor.Engine, san *sanitizer.Sanitizer, opts Options) *Service {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 10
	}
	return &Service{
		gate:      gate,
		fetcher:   fetcher,
		engine:    engine,
		sanitizer: san,
		opts:      opts,
		logger:    slog.Default().With("component", "scraper"),
	}
}

// ScrapeSingle runs the full pipeline for one URL: domain gate, robots
// gate, rendered fetch, extraction, sanitization. Errors are classified
// but never retried here; retry policy belongs to the caller. Every
// failure comes back as a *ScrapeError carrying the URL.
func (s *Service) ScrapeSingle(ctx context.Context, rawURL string) (*models.SanitizedProduct, error) {
	record, err := s.scrape(ctx, rawURL)
	if err != nil {
		return nil, &ScrapeError{URL: rawURL, Err: err}
	}
	return record, nil
}

func (s *Service) scrape(ctx context.Context, rawURL string) (*models.SanitizedProduct, error) {
	if err := s.checkDomain(rawURL); err != nil {
		return nil, err
	}

	s.gateInit.Do(func() {
		if err := s.gate.Initialize(ctx); err != nil {
			s.logger.Warn("compliance gate initialization failed", "error", err)
		}
	})

	if !s.gate.IsAllowed(rawURL, s.opts.UserAgent) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}

	html, err := s.fetcher.FetchRenderedPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	raw, err := s.extract(html, rawURL)
	if err != nil {
		return nil, err
	}

	record := s.sanitizer.Normalize(raw)

	s.logger.Info("scraped product",
		"url", rawURL,
		"name", record.Name,
		"category", record.Category,
		"images", len(record.Images),
	)
	return record, nil
}

// extract parses the HTML and runs the engine. Individual strategy
// misses are not errors; only a catastrophic failure of the whole stage
// (malformed DOM, panicking strategy) becomes ErrExtraction.
func (s *Service) extract(html, sourceURL string) (raw *models.RawExtraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = fmt.Errorf("%w: %v", ErrExtraction, r)
		}
	}()

	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, parseErr)
	}

	return s.engine.Extract(doc, sourceURL), nil
}

// ScrapeBatch processes URLs sequentially in input order. Per-URL
// failures land in the error ledger and never abort the batch; only
// malformed batch input is an error.
func (s *Service) ScrapeBatch(ctx context.Context, urls []string) (*models.BatchResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: empty url list", ErrBatchInput)
	}
	if len(urls) > s.opts.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d urls exceeds maximum of %d", ErrBatchInput, len(urls), s.opts.MaxBatchSize)
	}

	result := &models.BatchResult{
		Results: make([]models.BatchItem, 0, len(urls)),
		Errors:  make([]models.BatchError, 0),
	}

	for _, u := range urls {
		record, err := s.ScrapeSingle(ctx, u)
		if err != nil {
			s.logger.Warn("batch url failed", "url", u, "code", Code(err), "error", err)
			result.Errors = append(result.Errors, models.BatchError{
				URL:   u,
				Error: fmt.Sprintf("%s: %v", Code(err), err),
			})
			continue
		}
		result.Results = append(result.Results, models.BatchItem{URL: u, Record: record})
	}

	result.Summary = models.BatchSummary{
		Total:      len(urls),
		Successful: len(result.Results),
		Failed:     len(result.Errors),
	}

	s.logger.Info("batch finished",
		"total", result.Summary.Total,
		"successful", result.Summary.Successful,
		"failed", result.Summary.Failed,
	)
	return result, nil
}

// SessionStatus exposes read-only session state for operational tooling.
func (s *Service) SessionStatus() models.SessionStatus {
	return s.fetcher.Status()
}

func (s *Service) checkDomain(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: unparseable url %q", ErrInvalidDomain, rawURL)
	}
	if !strings.EqualFold(u.Hostname(), s.opts.TargetDomain) {
		return fmt.Errorf("%w: %s", ErrInvalidDomain, u.Hostname())
	}
	return nil
}
