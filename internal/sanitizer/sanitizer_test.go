package sanitizer

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartify/catalog-scraper/internal/models"
)

func newTestSanitizer() *Sanitizer {
	return New(DefaultOptions())
}

func rawFixture() *models.RawExtraction {
	return &models.RawExtraction{
		Name:              "  Handwoven   Silk Saree  ",
		Description:       "A beautiful handwoven silk saree from Kanchipuram with traditional zari work.",
		ShortDescription:  "Handwoven Kanchipuram saree.",
		PricingCandidates: []float64{499, 999},
		Images: []models.RawImage{
			{URL: "https://cdn.example.com/a.jpg", Alt: "front"},
			{URL: "https://cdn.example.com/b.jpg", Alt: "back"},
		},
		Specifications: []models.Specification{
			{Name: "Material", Value: "Silk"},
		},
		Features:     []string{"Zari border", "Handwoven"},
		Brand:        "CraftLoom",
		SKU:          "CL-SAREE-01",
		CategoryText: "Sarees & Ethnic Wear",
		SourceURL:    "https://www.craftkart.in/p/saree",
		ScrapedAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNormalizeBasicRecord(t *testing.T) {
	record := newTestSanitizer().Normalize(rawFixture())

	assert.Equal(t, "Handwoven Silk Saree", record.Name)
	assert.Equal(t, "CraftLoom", record.Brand)
	assert.Equal(t, "CL-SAREE-01", record.SKU)
	assert.Equal(t, "apparel", record.Category)
	assert.Equal(t, "https://www.craftkart.in/p/saree", record.SourceURL)
}

// Scraped prices are never trusted: the record always carries zero
// pricing and the manual-entry flag.
func TestNormalizeForcesZeroPricing(t *testing.T) {
	record := newTestSanitizer().Normalize(rawFixture())

	assert.Zero(t, record.Price)
	assert.Zero(t, record.OriginalPrice)
	assert.True(t, record.NeedsPriceEntry)
}

func TestNormalizeGSTDefault(t *testing.T) {
	record := newTestSanitizer().Normalize(rawFixture())
	assert.Equal(t, 18.0, record.GST.Rate)

	opts := DefaultOptions()
	opts.GSTRate = 5
	record = New(opts).Normalize(rawFixture())
	assert.Equal(t, 5.0, record.GST.Rate)
}

func TestNormalizeCapInvariants(t *testing.T) {
	raw := rawFixture()
	raw.Name = strings.Repeat("n", 500)
	raw.Description = strings.Repeat("d", 5000)
	raw.ShortDescription = strings.Repeat("s", 500)
	raw.Brand = strings.Repeat("b", 200)
	raw.SKU = strings.Repeat("k", 200)
	for i := 0; i < 30; i++ {
		raw.Images = append(raw.Images, models.RawImage{URL: fmt.Sprintf("https://cdn.example.com/%d.jpg", i)})
		raw.Specifications = append(raw.Specifications, models.Specification{
			Name: fmt.Sprintf("spec-%d", i), Value: "v",
		})
		raw.Features = append(raw.Features, fmt.Sprintf("feature-%d", i))
	}

	record := newTestSanitizer().Normalize(raw)

	assert.LessOrEqual(t, len(record.Name), MaxNameLength)
	assert.LessOrEqual(t, len(record.Description), MaxDescriptionLength)
	assert.LessOrEqual(t, len(record.ShortDescription), MaxShortDescriptionLength)
	assert.LessOrEqual(t, len(record.Brand), MaxBrandLength)
	assert.LessOrEqual(t, len(record.SKU), MaxSKULength)
	assert.LessOrEqual(t, len(record.Images), MaxImages)
	assert.LessOrEqual(t, len(record.Specifications), MaxSpecifications)
	assert.LessOrEqual(t, len(record.Features), MaxFeatures)
	assert.LessOrEqual(t, len(record.Tags), MaxTags)
}

// Normalizing an already-normalized record changes nothing.
func TestNormalizeIdempotent(t *testing.T) {
	s := newTestSanitizer()
	first := s.Normalize(rawFixture())

	roundTrip := &models.RawExtraction{
		Name:             first.Name,
		Description:      first.Description,
		ShortDescription: first.ShortDescription,
		Brand:            first.Brand,
		SKU:              first.SKU,
		CategoryText:     rawFixture().CategoryText,
		Features:         first.Features,
		Specifications:   first.Specifications,
		SourceURL:        first.SourceURL,
		ScrapedAt:        first.ScrapedAt,
	}
	for _, img := range first.Images {
		roundTrip.Images = append(roundTrip.Images, models.RawImage{
			URL: img.URL, Alt: img.Alt, IsPrimary: img.IsPrimary,
		})
	}

	second := s.Normalize(roundTrip)
	assert.Equal(t, first, second)
}

func TestSanitizeImagesPrimaryRules(t *testing.T) {
	tests := []struct {
		name        string
		raw         []models.RawImage
		wantPrimary int
	}{
		{
			name: "none flagged, first wins",
			raw: []models.RawImage{
				{URL: "https://x/a.jpg"},
				{URL: "https://x/b.jpg"},
			},
			wantPrimary: 0,
		},
		{
			name: "multiple flagged, first flagged wins",
			raw: []models.RawImage{
				{URL: "https://x/a.jpg"},
				{URL: "https://x/b.jpg", IsPrimary: true},
				{URL: "https://x/c.jpg", IsPrimary: true},
			},
			wantPrimary: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := sanitizeImages(tt.raw)

			primaries := 0
			for i, img := range images {
				if img.IsPrimary {
					primaries++
					assert.Equal(t, tt.wantPrimary, i)
				}
			}
			assert.Equal(t, 1, primaries)
		})
	}
}

func TestSanitizeImagesDropsEmptyAndDuplicateURLs(t *testing.T) {
	images := sanitizeImages([]models.RawImage{
		{URL: ""},
		{URL: "https://x/a.jpg"},
		{URL: "https://x/a.jpg"},
	})

	require.Len(t, images, 1)
	assert.Equal(t, "https://x/a.jpg", images[0].URL)
}

func TestDeriveTags(t *testing.T) {
	s := newTestSanitizer()

	tags := s.deriveTags("The Brass Lamp", "A brass lamp for your home and office, not an ordinary lamp")

	assert.NotContains(t, tags, "the")
	assert.NotContains(t, tags, "and")
	assert.NotContains(t, tags, "for")
	assert.NotContains(t, tags, "an") // below minimum token length
	assert.Contains(t, tags, "brass")
	assert.Contains(t, tags, "lamp")

	// De-duplicated in order of first appearance.
	assert.Equal(t, "brass", tags[0])
	assert.Equal(t, "lamp", tags[1])
	assert.LessOrEqual(t, len(tags), MaxTags)
}

func TestMapCategory(t *testing.T) {
	s := newTestSanitizer()

	tests := []struct {
		text     string
		expected string
	}{
		{"Sarees & Ethnic Wear", "apparel"},
		{"KITCHEN Essentials", "kitchen"},
		{"Wall Decor", "home-decor"},
		{"Unknown Widget Stuff", "general"},
		{"", "general"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, s.mapCategory(tt.text), "category text %q", tt.text)
	}
}

func TestMapCategoryFirstRuleWins(t *testing.T) {
	s := New(Options{
		CategoryRules: []CategoryRule{
			{Keyword: "lamp", Category: "lighting"},
			{Keyword: "brass lamp", Category: "metalware"},
		},
		DefaultCategory: "other",
	})

	assert.Equal(t, "lighting", s.mapCategory("brass lamp"))
}

var skuPattern = regexp.MustCompile(`^SCR-\d+-[A-Z0-9]{5}$`)

func TestSKUSynthesis(t *testing.T) {
	s := newTestSanitizer()

	raw := rawFixture()
	raw.SKU = ""
	record := s.Normalize(raw)

	assert.Regexp(t, skuPattern, record.SKU)
	assert.LessOrEqual(t, len(record.SKU), MaxSKULength)

	raw2 := rawFixture()
	raw2.SKU = ""
	assert.NotEqual(t, record.SKU, s.Normalize(raw2).SKU)
}

func TestDeriveSEO(t *testing.T) {
	s := newTestSanitizer()

	longName := strings.Repeat("N", 80)
	longDescription := strings.Repeat("D", 300)

	seo := s.deriveSEO(longName, longDescription, "")
	assert.Equal(t, strings.Repeat("N", MetaTitleLength)+" | CraftKart", seo.MetaTitle)
	assert.Equal(t, strings.Repeat("D", MetaDescriptionLength)+"...", seo.MetaDescription)

	seo = s.deriveSEO("Short Name", "", "fallback summary")
	assert.Equal(t, "Short Name | CraftKart", seo.MetaTitle)
	assert.Equal(t, "fallback summary", seo.MetaDescription)
}

func TestSpecificationsRequireBothSides(t *testing.T) {
	specs := sanitizeSpecifications([]models.Specification{
		{Name: "Material", Value: "Silk"},
		{Name: "", Value: "orphan"},
		{Name: "orphan", Value: ""},
	})

	require.Len(t, specs, 1)
	assert.Equal(t, "Material", specs[0].Name)
}
