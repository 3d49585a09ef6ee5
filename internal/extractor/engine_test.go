package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractName(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "specific selector wins over generic h1",
			html:     `<html><body><h1>Welcome</h1><h1 class="product-title">Blue Cotton Kurta</h1></body></html>`,
			expected: "Blue Cotton Kurta",
		},
		{
			name:     "itemprop selector",
			html:     `<html><body><h1 itemprop="name">Handwoven Silk Saree</h1></body></html>`,
			expected: "Handwoven Silk Saree",
		},
		{
			name:     "generic h1 fallback",
			html:     `<html><body><h1>  Brass   Table Lamp </h1></body></html>`,
			expected: "Brass   Table Lamp",
		},
		{
			name:     "title fallback strips site suffix",
			html:     `<html><head><title>Wooden Elephant Figurine | CraftKart</title></head><body></body></html>`,
			expected: "Wooden Elephant Figurine",
		},
		{
			name:     "nothing found leaves name absent",
			html:     `<html><body><div>no headings here</div></body></html>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := e.Extract(mustDoc(t, tt.html), "https://www.craftkart.in/p/1")
			assert.Equal(t, strings.TrimSpace(tt.expected), strings.TrimSpace(raw.Name))
		})
	}
}

func TestExtractDescriptionFallback(t *testing.T) {
	e := NewEngine()

	html := `<html><body><div class="product-detail">
		<p>Short blurb.</p>
		<p>Now at ₹499 only, was ₹999 — grab this limited time festival discount before the offer expires!</p>
		<p>This handcrafted piece is made by artisans in Jaipur using traditional block-printing techniques passed down generations.</p>
	</div></body></html>`

	raw := e.Extract(mustDoc(t, html), "https://www.craftkart.in/p/1")

	// The short paragraph and the price banner are both skipped.
	assert.Contains(t, raw.Description, "handcrafted piece")
	assert.NotContains(t, raw.Description, "₹")
}

func TestExtractDescriptionSelectorBeatsFallback(t *testing.T) {
	e := NewEngine()

	html := `<html><body>
		<div class="product-description">Elegant brass lamp for living rooms.</div>
		<div class="product-detail"><p>This much longer paragraph would win the fallback scan if the selector chain had not already matched first.</p></div>
	</body></html>`

	raw := e.Extract(mustDoc(t, html), "https://www.craftkart.in/p/1")
	assert.Equal(t, "Elegant brass lamp for living rooms.", raw.Description)
}

func TestExtractSpecifications(t *testing.T) {
	e := NewEngine()

	html := `<html><body><table class="specs">
		<tr><td>Material</td><td>Brass</td></tr>
		<tr><td>Weight</td><td>1.2 kg</td></tr>
		<tr><td>Incomplete</td></tr>
		<tr><td></td><td>orphan value</td></tr>
	</table></body></html>`

	raw := e.Extract(mustDoc(t, html), "https://www.craftkart.in/p/1")

	require.Len(t, raw.Specifications, 2)
	assert.Equal(t, "Material", raw.Specifications[0].Name)
	assert.Equal(t, "Brass", raw.Specifications[0].Value)
	assert.Equal(t, "Weight", raw.Specifications[1].Name)
	assert.Equal(t, "1.2 kg", raw.Specifications[1].Value)
}

func TestExtractFeatures(t *testing.T) {
	e := NewEngine()

	html := `<html><body><ul class="key-features">
		<li>Hand painted</li>
		<li>  </li>
		<li>Eco friendly dyes</li>
	</ul></body></html>`

	raw := e.Extract(mustDoc(t, html), "https://www.craftkart.in/p/1")

	assert.Equal(t, []string{"Hand painted", "Eco friendly dyes"}, raw.Features)
}

func TestExtractBrandAndSKU(t *testing.T) {
	e := NewEngine()

	html := `<html><body>
		<span class="brand-name">Fabindia</span>
		<span itemprop="sku">FK-1021</span>
	</body></html>`

	raw := e.Extract(mustDoc(t, html), "https://www.craftkart.in/p/1")

	assert.Equal(t, "Fabindia", raw.Brand)
	assert.Equal(t, "FK-1021", raw.SKU)
}

func TestExtractCategoryFromBreadcrumb(t *testing.T) {
	e := NewEngine()

	html := `<html><body><nav class="breadcrumb">
		<a href="/">Home</a>
		<a href="/c/decor">Home Decor</a>
		<a href="/c/decor/lamps">Lamps</a>
	</nav></body></html>`

	raw := e.Extract(mustDoc(t, html), "https://www.craftkart.in/p/1")
	assert.Equal(t, "Lamps", raw.CategoryText)
}

func TestExtractMissingFieldsStayAbsent(t *testing.T) {
	e := NewEngine()

	raw := e.Extract(mustDoc(t, `<html><body></body></html>`), "https://www.craftkart.in/p/1")

	assert.Empty(t, raw.Name)
	assert.Empty(t, raw.Description)
	assert.Empty(t, raw.Brand)
	assert.Empty(t, raw.SKU)
	assert.Empty(t, raw.CategoryText)
	assert.Empty(t, raw.PricingCandidates)
	assert.Empty(t, raw.Images)
	assert.Equal(t, "https://www.craftkart.in/p/1", raw.SourceURL)
	assert.False(t, raw.ScrapedAt.IsZero())
}
