package scraper

import (
	"errors"
	"fmt"

	"github.com/kartify/catalog-scraper/internal/browser"
)

// Sentinel errors for the pipeline stages. Callers classify with
// errors.Is; ScrapeSingle never retries internally. The browser-stage
// sentinels are owned by the browser package and surfaced here so
// callers only need this package for classification.
var (
	ErrInvalidDomain     = errors.New("url host does not match target domain")
	ErrRobotsDisallowed  = errors.New("url disallowed by robots.txt")
	ErrNavigationTimeout = browser.ErrNavigationTimeout
	ErrContentNotReady   = browser.ErrContentNotReady
	ErrExtraction        = errors.New("extraction stage failed")
	ErrBatchInput        = errors.New("invalid batch input")
)

// ScrapeError ties a classified error to the URL it occurred on. It is
// what the batch ledger records.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Code maps a pipeline error to a stable identifier for API responses
// and log fields.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDomain):
		return "INVALID_DOMAIN"
	case errors.Is(err, ErrRobotsDisallowed):
		return "ROBOTS_DISALLOWED"
	case errors.Is(err, ErrNavigationTimeout):
		return "NAVIGATION_TIMEOUT"
	case errors.Is(err, ErrContentNotReady):
		return "CONTENT_NOT_READY"
	case errors.Is(err, ErrExtraction):
		return "EXTRACTION_ERROR"
	case errors.Is(err, ErrBatchInput):
		return "BATCH_INPUT_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
