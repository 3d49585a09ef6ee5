package extractor

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kartify/catalog-scraper/internal/models"
)

const maxImageCandidates = 10

// minImageDimension filters out icons and UI chrome. Images that
// declare a width or height below this are rejected; undeclared
// dimensions pass.
const minImageDimension = 100

var gallerySelectors = []string{
	".product-gallery img",
	".product-images img",
	"#product-image img",
	".gallery img",
	"[data-gallery] img",
	".swiper-slide img",
	".carousel img",
	"[itemprop='image']",
}

// extractImages collects gallery images, resolving relative URLs and
// de-duplicating by resolved URL. The first unique image is primary.
// When no gallery selector matches anything, a full-page scan filtered
// by "product" signals takes over.
func (e *Engine) extractImages(doc *goquery.Document, sourceURL string) []models.RawImage {
	base, _ := url.Parse(sourceURL)

	var images []models.RawImage
	seen := make(map[string]bool)

	appendImage := func(s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			src, _ = s.Attr("data-src")
		}
		if src == "" {
			return
		}

		resolved := resolveImageURL(base, src)
		if resolved == "" || seen[resolved] {
			return
		}

		width := attrInt(s, "width")
		height := attrInt(s, "height")
		if (width > 0 && width < minImageDimension) || (height > 0 && height < minImageDimension) {
			return
		}

		alt, _ := s.Attr("alt")
		seen[resolved] = true
		images = append(images, models.RawImage{
			URL:        resolved,
			Alt:        strings.TrimSpace(alt),
			IsPrimary:  len(images) == 0,
			WidthHint:  width,
			HeightHint: height,
		})
	}

	doc.Find(strings.Join(gallerySelectors, ", ")).Each(func(i int, s *goquery.Selection) {
		if len(images) < maxImageCandidates {
			appendImage(s)
		}
	})

	if len(images) == 0 {
		doc.Find("img").Each(func(i int, s *goquery.Selection) {
			if len(images) < maxImageCandidates && looksLikeProductImage(s) {
				appendImage(s)
			}
		})
	}

	return images
}

// looksLikeProductImage is the fallback heuristic: the filename or alt
// text mentions "product", or the image sits inside a container whose
// class or id does.
func looksLikeProductImage(s *goquery.Selection) bool {
	src, _ := s.Attr("src")
	alt, _ := s.Attr("alt")
	if strings.Contains(strings.ToLower(src), "product") ||
		strings.Contains(strings.ToLower(alt), "product") {
		return true
	}
	return s.ParentsFiltered("[class*='product'], [id*='product']").Length() > 0
}

func resolveImageURL(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	if strings.HasPrefix(src, "//") {
		scheme := "https"
		if base != nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		return scheme + ":" + src
	}

	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func attrInt(s *goquery.Selection, attr string) int {
	val, ok := s.Attr(attr)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(val), "px"))
	if err != nil {
		return 0
	}
	return n
}
