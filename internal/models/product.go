package models

import (
	"time"
)

// RawExtraction is the ungoverned output of the extraction engine. Every
// field is best-effort; absence is expected and handled by the sanitizer.
type RawExtraction struct {
	Name              string          `json:"name,omitempty"`
	Description       string          `json:"description,omitempty"`
	ShortDescription  string          `json:"short_description,omitempty"`
	PricingCandidates []float64       `json:"pricing_candidates,omitempty"`
	Images            []RawImage      `json:"images,omitempty"`
	Specifications    []Specification `json:"specifications,omitempty"`
	Features          []string        `json:"features,omitempty"`
	Brand             string          `json:"brand,omitempty"`
	SKU               string          `json:"sku,omitempty"`
	CategoryText      string          `json:"category_text,omitempty"`
	SourceURL         string          `json:"source_url"`
	ScrapedAt         time.Time       `json:"scraped_at"`
}

// RawImage carries an image candidate before sanitization. Width and
// height hints come from markup attributes and may be zero when absent.
type RawImage struct {
	URL        string `json:"url"`
	Alt        string `json:"alt,omitempty"`
	IsPrimary  bool   `json:"is_primary"`
	WidthHint  int    `json:"width_hint,omitempty"`
	HeightHint int    `json:"height_hint,omitempty"`
}

type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Image struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

type GST struct {
	Rate float64 `json:"rate"`
}

type SEO struct {
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

// SanitizedProduct is the schema-safe catalog record. All caps are
// enforced by the sanitizer, never by callers.
type SanitizedProduct struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	ShortDescription string          `json:"short_description"`
	Price            float64         `json:"price"`
	OriginalPrice    float64         `json:"original_price"`
	NeedsPriceEntry  bool            `json:"needs_price_entry"`
	GST              GST             `json:"gst"`
	Category         string          `json:"category"`
	Brand            string          `json:"brand"`
	SKU              string          `json:"sku"`
	Images           []Image         `json:"images"`
	Specifications   []Specification `json:"specifications"`
	Features         []string        `json:"features"`
	Tags             []string        `json:"tags"`
	SEO              SEO             `json:"seo"`
	SourceURL        string          `json:"source_url"`
	ScrapedAt        time.Time       `json:"scraped_at"`
}

type BatchItem struct {
	URL    string            `json:"url"`
	Record *SanitizedProduct `json:"record"`
}

type BatchError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type BatchResult struct {
	Results []BatchItem  `json:"results"`
	Errors  []BatchError `json:"errors"`
	Summary BatchSummary `json:"summary"`
}

type SessionStatus struct {
	Initialized   bool `json:"initialized"`
	BrowserActive bool `json:"browser_active"`
}
