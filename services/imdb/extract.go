package imdb

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bannerforge/models"
)

var (
	titleIDRe = regexp.MustCompile(`/title/(tt\d+)`)
	yearRe    = regexp.MustCompile(`\((\d{4})\)`)
)

// maxSearchResults caps how many matches one search page contributes.
const maxSearchResults = 10

// extractSearchResults parses a find-results page into title matches.
// It is a pure document transform so it can be tested against fixed HTML.
func extractSearchResults(doc *goquery.Document) []models.SearchResult {
	var results []models.SearchResult
	seen := make(map[string]bool)

	doc.Find("li.find-result-item, li.ipc-metadata-list-summary-item").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(results) >= maxSearchResults {
			return false
		}

		link := sel.Find(`a[href*="/title/tt"]`).First()
		href, _ := link.Attr("href")
		m := titleIDRe.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		id := m[1]
		if seen[id] {
			return true
		}
		seen[id] = true

		title := strings.TrimSpace(link.Text())
		if title == "" {
			title = "Unknown"
		}

		year := ""
		if ym := yearRe.FindStringSubmatch(sel.Text()); ym != nil {
			year = ym[1]
		}

		kind := models.KindMovie
		meta := strings.ToLower(sel.Find(".ipc-metadata-list-summary-item__li, .result_meta").Text())
		switch {
		case strings.Contains(meta, "tv") || strings.Contains(meta, "series"):
			kind = models.KindSeries
		case strings.Contains(meta, "video game"):
			kind = models.KindOther
		}

		poster := ""
		if img := sel.Find("img").First(); img.Length() > 0 {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				src, _ = img.Attr("data-src")
			}
			poster = midSizePoster(src)
		}

		results = append(results, models.SearchResult{
			TitleID: id,
			Title:   title,
			Year:    year,
			Kind:    kind,
			Poster:  poster,
		})
		return true
	})

	return results
}

// extractImageURLs collects candidate image addresses from a title's media
// index page, rewritten to their full-size variants and deduplicated in
// discovery order.
func extractImageURLs(doc *goquery.Document, titleID string) []string {
	var urls []string
	seen := make(map[string]bool)

	add := func(src string) {
		full, ok := fullSizeURL(src)
		if !ok || seen[full] {
			return
		}
		seen[full] = true
		urls = append(urls, full)
	}

	doc.Find(`img[src*="media-amazon.com"]`).Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			add(src)
		}
	})

	// Media viewer links carry thumbnails the grid selector can miss.
	doc.Find(`a[href*="/title/` + titleID + `/mediaviewer/"] img`).Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			add(src)
		}
	})

	return urls
}

// fullSizeURL rewrites a scaled thumbnail address to the provider's
// full-size rendition by replacing the scaling directive.
func fullSizeURL(src string) (string, bool) {
	base, _, found := strings.Cut(src, "._V1_")
	if !found || base == "" {
		return "", false
	}
	return base + "._V1_FMjpg_UX2000_.jpg", true
}

// midSizePoster rewrites a result-list poster thumbnail to a medium size
// suitable for display.
func midSizePoster(src string) string {
	base, _, found := strings.Cut(src, "._V1_")
	if !found {
		return src
	}
	return base + "._V1_UX300_.jpg"
}
