package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Plausible price bounds. Values outside are promo codes, pincodes,
// review counts and similar noise.
const (
	minPlausiblePrice = 0
	maxPlausiblePrice = 100000
)

// pricePattern matches currency-prefixed amounts (₹, Rs, INR) and bare
// decimal figures. Markup for prices is wildly inconsistent across
// strikethrough widgets and promo badges, so the scan is deliberately
// broad and filtered by the plausibility bound afterwards.
var pricePattern = regexp.MustCompile(`(?:₹|Rs\.?|INR)\s*[0-9][0-9,]*(?:\.[0-9]+)?|\b[0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]+)?\b|\b[0-9]+\.[0-9]{1,2}\b`)

var nonNumericPattern = regexp.MustCompile(`[^0-9.,]`)

// ExtractPriceCandidates scans the page text for price-like tokens and
// returns every plausible numeric value, sorted ascending. The minimum
// is the sale-price candidate and the maximum the original-price
// candidate: the true sale price is typically the smallest plausible
// figure on the page, the pre-discount price the largest.
func ExtractPriceCandidates(doc *goquery.Document) []float64 {
	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	var candidates []float64
	for _, token := range pricePattern.FindAllString(text, -1) {
		value, ok := parsePriceToken(token)
		if !ok {
			continue
		}
		if value > minPlausiblePrice && value < maxPlausiblePrice {
			candidates = append(candidates, value)
		}
	}

	sort.Float64s(candidates)
	return candidates
}

func parsePriceToken(token string) (float64, bool) {
	cleaned := nonNumericPattern.ReplaceAllString(token, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// PriceBracket returns the sale and original price candidates from a
// sorted candidate list. Equal when only one value was found; zero when
// none were.
func PriceBracket(candidates []float64) (sale, original float64) {
	if len(candidates) == 0 {
		return 0, 0
	}
	return candidates[0], candidates[len(candidates)-1]
}
