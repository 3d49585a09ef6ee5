package extractor

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kartify/catalog-scraper/internal/models"
)

// Engine recovers product fields from a rendered page. Every field has
// an ordered chain of strategies tried most-specific first; the first
// non-empty trimmed result wins. Strategies never fail — an empty
// result just moves the chain along, and a fully exhausted chain leaves
// the field absent so the sanitizer can apply its own defaults.
type Engine struct {
	logger *slog.Logger
}

func NewEngine() *Engine {
	return &Engine{
		logger: slog.Default().With("component", "extractor"),
	}
}

// textStrategy is one candidate rule for recovering a field's value.
type textStrategy func(doc *goquery.Document) string

func selectorText(selector string) textStrategy {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

func firstMatch(doc *goquery.Document, strategies ...textStrategy) string {
	for _, strategy := range strategies {
		if text := strategy(doc); text != "" {
			return text
		}
	}
	return ""
}

// Extract runs every field chain against the document. It never returns
// an error for missing fields; partial records are the normal outcome.
func (e *Engine) Extract(doc *goquery.Document, sourceURL string) *models.RawExtraction {
	raw := &models.RawExtraction{
		SourceURL: sourceURL,
		ScrapedAt: time.Now(),
	}

	raw.Name = e.extractName(doc)
	raw.Description = e.extractDescription(doc)
	raw.ShortDescription = firstMatch(doc,
		selectorText(".short-description"),
		selectorText(".product-summary"),
		selectorText("[itemprop='description'] p"),
	)
	raw.PricingCandidates = ExtractPriceCandidates(doc)
	raw.Images = e.extractImages(doc, sourceURL)
	raw.Specifications = e.extractSpecifications(doc)
	raw.Features = e.extractFeatures(doc)
	raw.Brand = firstMatch(doc,
		selectorText(".product-brand"),
		selectorText("[itemprop='brand']"),
		selectorText(".brand-name"),
		selectorText("a.brand"),
	)
	raw.SKU = firstMatch(doc,
		selectorText("[itemprop='sku']"),
		selectorText(".product-sku"),
		attrValue("[data-sku]", "data-sku"),
	)
	raw.CategoryText = e.extractCategory(doc)

	e.logger.Debug("extraction finished",
		"url", sourceURL,
		"hasName", raw.Name != "",
		"priceCandidates", len(raw.PricingCandidates),
		"images", len(raw.Images),
		"specs", len(raw.Specifications),
		"features", len(raw.Features),
	)

	return raw
}

func attrValue(selector, attr string) textStrategy {
	return func(doc *goquery.Document) string {
		val, _ := doc.Find(selector).First().Attr(attr)
		return strings.TrimSpace(val)
	}
}

func (e *Engine) extractName(doc *goquery.Document) string {
	return firstMatch(doc,
		selectorText("h1.product-title"),
		selectorText("h1.product-name"),
		selectorText("h1[itemprop='name']"),
		selectorText("#product-title"),
		selectorText(".product-detail h1"),
		selectorText("h1"),
		titleWithoutSiteName,
	)
}

// titleWithoutSiteName falls back to the page title, stripping the
// trailing "| SiteName" suffix sites append for SEO.
func titleWithoutSiteName(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if idx := strings.LastIndex(title, "|"); idx > 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

var currencyMarkerPattern = regexp.MustCompile(`₹|\bRs\.?\s*\d|\$\s*\d|\bINR\b`)

func (e *Engine) extractDescription(doc *goquery.Document) string {
	if text := firstMatch(doc,
		selectorText(".product-description"),
		selectorText("#description"),
		selectorText("[itemprop='description']"),
		selectorText(".description"),
	); text != "" {
		return text
	}

	// Fallback: the first substantial paragraph that is not a price
	// widget. Currency markers filter out promo banners.
	var found string
	doc.Find(".product-detail p, .product-info p, .product-detail div, main p, article p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) > 50 && !currencyMarkerPattern.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

func (e *Engine) extractCategory(doc *goquery.Document) string {
	if text := firstMatch(doc,
		selectorText("[itemprop='category']"),
		selectorText(".product-category"),
	); text != "" {
		return text
	}

	// Last breadcrumb link is usually the leaf category.
	var category string
	doc.Find(".breadcrumb a, .breadcrumbs a, nav[aria-label='breadcrumb'] a").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			category = text
		}
	})
	return category
}

func (e *Engine) extractFeatures(doc *goquery.Document) []string {
	var features []string
	doc.Find(".product-features li, .features li, .highlights li, ul.key-features li, #features li").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			features = append(features, text)
		}
	})
	return features
}

// extractSpecifications pairs the first and second cell of generic spec
// table rows. Rows missing either side are discarded.
func (e *Engine) extractSpecifications(doc *goquery.Document) []models.Specification {
	var specs []models.Specification
	doc.Find(".specifications tr, .product-specs tr, table.specs tr, .spec-table tr, #specifications tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		name := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		if name == "" || value == "" {
			return
		}
		specs = append(specs, models.Specification{Name: name, Value: value})
	})
	return specs
}
