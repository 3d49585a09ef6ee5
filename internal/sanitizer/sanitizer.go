package sanitizer

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/kartify/catalog-scraper/internal/models"
)

// Field caps required by the catalog schema. Enforced here and nowhere
// else; callers hand in whatever the extractor produced.
const (
	MaxNameLength             = 100
	MaxDescriptionLength      = 2000
	MaxShortDescriptionLength = 200
	MaxBrandLength            = 50
	MaxSKULength              = 50
	MaxImages                 = 10
	MaxSpecifications         = 20
	MaxFeatures               = 15
	MaxTags                   = 10
	MetaTitleLength           = 50
	MetaDescriptionLength     = 150
	MinTagLength              = 3
	DefaultGSTRate            = 18
)

// CategoryRule maps a keyword to a taxonomy bucket. Rules are checked
// in order against the raw category text; first match wins.
type CategoryRule struct {
	Keyword  string
	Category string
}

// Options is immutable configuration injected at construction so tests
// can substitute taxonomy and stop-word data.
type Options struct {
	CategoryRules   []CategoryRule
	DefaultCategory string
	StopWords       []string
	SKUPrefix       string
	SiteSuffix      string
	GSTRate         float64
}

func DefaultOptions() Options {
	return Options{
		CategoryRules: []CategoryRule{
			{Keyword: "saree", Category: "apparel"},
			{Keyword: "kurta", Category: "apparel"},
			{Keyword: "shirt", Category: "apparel"},
			{Keyword: "dress", Category: "apparel"},
			{Keyword: "cloth", Category: "apparel"},
			{Keyword: "apparel", Category: "apparel"},
			{Keyword: "jewel", Category: "jewellery"},
			{Keyword: "necklace", Category: "jewellery"},
			{Keyword: "earring", Category: "jewellery"},
			{Keyword: "shoe", Category: "footwear"},
			{Keyword: "footwear", Category: "footwear"},
			{Keyword: "sandal", Category: "footwear"},
			{Keyword: "kitchen", Category: "kitchen"},
			{Keyword: "cookware", Category: "kitchen"},
			{Keyword: "decor", Category: "home-decor"},
			{Keyword: "furnish", Category: "home-decor"},
			{Keyword: "lamp", Category: "home-decor"},
			{Keyword: "handicraft", Category: "handicrafts"},
			{Keyword: "handmade", Category: "handicrafts"},
			{Keyword: "craft", Category: "handicrafts"},
			{Keyword: "bag", Category: "accessories"},
			{Keyword: "wallet", Category: "accessories"},
			{Keyword: "belt", Category: "accessories"},
			{Keyword: "toy", Category: "toys"},
			{Keyword: "game", Category: "toys"},
			{Keyword: "beauty", Category: "beauty"},
			{Keyword: "skincare", Category: "beauty"},
		},
		DefaultCategory: "general",
		StopWords: []string{
			"the", "and", "for", "with", "from", "this", "that", "are",
			"was", "has", "have", "its", "can", "will", "you", "your",
			"our", "all", "any", "per", "not", "but", "out", "into",
		},
		SKUPrefix:  "SCR",
		SiteSuffix: " | CraftKart",
		GSTRate:    DefaultGSTRate,
	}
}

// Sanitizer converts best-effort raw extractions into records that
// satisfy every downstream schema invariant. Normalize is pure apart
// from SKU synthesis for records that arrived without one.
type Sanitizer struct {
	opts      Options
	stopWords map[string]bool
}

func New(opts Options) *Sanitizer {
	stopWords := make(map[string]bool, len(opts.StopWords))
	for _, w := range opts.StopWords {
		stopWords[strings.ToLower(w)] = true
	}
	return &Sanitizer{opts: opts, stopWords: stopWords}
}

func (s *Sanitizer) Normalize(raw *models.RawExtraction) *models.SanitizedProduct {
	name := cleanString(raw.Name, MaxNameLength)
	description := cleanString(raw.Description, MaxDescriptionLength)
	shortDescription := cleanString(raw.ShortDescription, MaxShortDescriptionLength)

	record := &models.SanitizedProduct{
		Name:             name,
		Description:      description,
		ShortDescription: shortDescription,
		// Scraped prices are never trusted for auto-publish; an
		// operator confirms pricing before the record goes live.
		Price:           0,
		OriginalPrice:   0,
		NeedsPriceEntry: true,
		GST:             models.GST{Rate: s.gstRate()},
		Category:        s.mapCategory(raw.CategoryText),
		Brand:           cleanString(raw.Brand, MaxBrandLength),
		SKU:             s.normalizeSKU(raw.SKU),
		Images:          sanitizeImages(raw.Images),
		Specifications:  sanitizeSpecifications(raw.Specifications),
		Features:        sanitizeFeatures(raw.Features),
		Tags:            s.deriveTags(name, description),
		SEO:             s.deriveSEO(name, description, shortDescription),
		SourceURL:       raw.SourceURL,
		ScrapedAt:       raw.ScrapedAt,
	}

	return record
}

func (s *Sanitizer) gstRate() float64 {
	if s.opts.GSTRate <= 0 {
		return DefaultGSTRate
	}
	return s.opts.GSTRate
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func cleanString(value string, maxLen int) string {
	value = whitespacePattern.ReplaceAllString(strings.TrimSpace(value), " ")
	return truncate(value, maxLen)
}

func truncate(value string, maxLen int) string {
	runes := []rune(value)
	if len(runes) <= maxLen {
		return value
	}
	return string(runes[:maxLen])
}

// mapCategory reduces free-text category labels to the fixed taxonomy.
// Case-insensitive substring match, first rule wins, unmatched text
// lands in the default bucket.
func (s *Sanitizer) mapCategory(text string) string {
	lowered := strings.ToLower(text)
	for _, rule := range s.opts.CategoryRules {
		if strings.Contains(lowered, strings.ToLower(rule.Keyword)) {
			return rule.Category
		}
	}
	return s.opts.DefaultCategory
}

const skuCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// normalizeSKU caps an extracted SKU or synthesizes one. Synthesized
// SKUs are non-colliding in practice but not guaranteed unique; the
// persistence layer still enforces uniqueness at insert time.
func (s *Sanitizer) normalizeSKU(sku string) string {
	if cleaned := cleanString(sku, MaxSKULength); cleaned != "" {
		return cleaned
	}

	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = skuCharset[rand.Intn(len(skuCharset))]
	}
	generated := fmt.Sprintf("%s-%d-%s", s.opts.SKUPrefix, time.Now().UnixMilli(), suffix)
	return truncate(generated, MaxSKULength)
}

// sanitizeImages drops URL-less entries, caps the list, and forces
// exactly one primary image. First entry wins when none or several are
// flagged.
func sanitizeImages(raw []models.RawImage) []models.Image {
	images := make([]models.Image, 0, len(raw))
	seen := make(map[string]bool)
	primaryIdx := -1

	for _, img := range raw {
		if img.URL == "" || seen[img.URL] {
			continue
		}
		if len(images) >= MaxImages {
			break
		}
		seen[img.URL] = true
		if img.IsPrimary && primaryIdx < 0 {
			primaryIdx = len(images)
		}
		images = append(images, models.Image{URL: img.URL, Alt: img.Alt})
	}

	if len(images) > 0 {
		if primaryIdx < 0 {
			primaryIdx = 0
		}
		images[primaryIdx].IsPrimary = true
	}

	return images
}

func sanitizeSpecifications(raw []models.Specification) []models.Specification {
	specs := make([]models.Specification, 0, len(raw))
	for _, spec := range raw {
		name := cleanString(spec.Name, MaxNameLength)
		value := cleanString(spec.Value, MaxDescriptionLength)
		if name == "" || value == "" {
			continue
		}
		if len(specs) >= MaxSpecifications {
			break
		}
		specs = append(specs, models.Specification{Name: name, Value: value})
	}
	return specs
}

func sanitizeFeatures(raw []string) []string {
	features := make([]string, 0, len(raw))
	for _, feature := range raw {
		cleaned := cleanString(feature, MaxShortDescriptionLength)
		if cleaned == "" {
			continue
		}
		if len(features) >= MaxFeatures {
			break
		}
		features = append(features, cleaned)
	}
	return features
}

var tagTokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// deriveTags tokenizes name and description into search tags: word
// tokens of three characters or more, lower-cased, stop words removed,
// de-duplicated in order of first appearance.
func (s *Sanitizer) deriveTags(name, description string) []string {
	tokens := tagTokenPattern.FindAllString(name+" "+description, -1)

	tags := make([]string, 0, MaxTags)
	seen := make(map[string]bool)
	for _, token := range tokens {
		tag := strings.ToLower(token)
		if len(tag) < MinTagLength || s.stopWords[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) >= MaxTags {
			break
		}
	}
	return tags
}

func (s *Sanitizer) deriveSEO(name, description, shortDescription string) models.SEO {
	source := description
	if source == "" {
		source = shortDescription
	}

	metaDescription := source
	if len([]rune(source)) > MetaDescriptionLength {
		metaDescription = truncate(source, MetaDescriptionLength) + "..."
	}

	return models.SEO{
		MetaTitle:       truncate(name, MetaTitleLength) + s.opts.SiteSuffix,
		MetaDescription: metaDescription,
	}
}
