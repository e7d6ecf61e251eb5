// Package imdb discovers title matches and candidate banner addresses by
// scraping a movie database site's search and media index pages.
package imdb

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"

	"bannerforge/models"
)

const (
	defaultBaseURL = "https://www.imdb.com"
	pageTimeout    = 15 * time.Second
	fetchAttempts  = 2

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client scrapes one or more mirror sites of the movie database. The first
// source is used for searches; image discovery walks all of them.
type Client struct {
	sources    []string
	httpClient *http.Client
}

// NewClient constructs a scraping client over the given source base URLs.
// An empty list falls back to the canonical site. A nil http client gets a
// default with the page timeout.
func NewClient(sources []string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: pageTimeout}
	}
	cleaned := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimRight(strings.TrimSpace(s), "/")
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{defaultBaseURL}
	}
	return &Client{sources: cleaned, httpClient: client}
}

// Name identifies this provider for cache scoping and result labels.
func (c *Client) Name() string { return "imdb" }

// SupportsIncrementalLoad reports that the media index paginates, so more
// candidates can be revealed on demand.
func (c *Client) SupportsIncrementalLoad() bool { return true }

// Search queries the primary source's find page and returns title matches.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	base := c.sources[0]
	searchURL := fmt.Sprintf("%s/find?q=%s&s=tt", base, url.QueryEscape(query))

	doc, err := c.fetchDocument(ctx, searchURL, base+"/")
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := extractSearchResults(doc)
	log.Printf("imdb: search %q returned %d results", query, len(results))
	return results, nil
}

// ListCandidates walks every source's media index page for the title and
// returns the discovered candidate addresses. Scraped pages expose no
// dimension metadata, so candidates carry only addresses. A source that
// fails is skipped; discovery only errors when every source failed.
func (c *Client) ListCandidates(ctx context.Context, titleID string, opts models.ListOptions) ([]models.ImageCandidate, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}

	var candidates []models.ImageCandidate
	seen := make(map[string]bool)
	var lastErr error
	failures := 0

	for _, base := range c.sources {
		mediaURL := fmt.Sprintf("%s/title/%s/mediaindex", base, titleID)
		if page > 1 {
			mediaURL = fmt.Sprintf("%s?page=%d", mediaURL, page)
		}

		doc, err := c.fetchDocument(ctx, mediaURL, fmt.Sprintf("%s/title/%s/", base, titleID))
		if err != nil {
			log.Printf("imdb: media index %s failed: %v", mediaURL, err)
			lastErr = err
			failures++
			continue
		}

		urls := extractImageURLs(doc, titleID)
		log.Printf("imdb: %s page %d yielded %d candidates", sourceDomain(base), page, len(urls))
		for _, u := range urls {
			if seen[u] {
				continue
			}
			seen[u] = true
			candidates = append(candidates, models.ImageCandidate{URL: u})
		}
	}

	if failures == len(c.sources) && lastErr != nil {
		return nil, fmt.Errorf("media index for %s: %w", titleID, lastErr)
	}
	return candidates, nil
}

// Domain returns the display domain of the primary source.
func (c *Client) Domain() string {
	return sourceDomain(c.sources[0])
}

func sourceDomain(base string) string {
	base = strings.TrimPrefix(base, "https://")
	base = strings.TrimPrefix(base, "http://")
	return strings.TrimSuffix(base, "/")
}

// fetchDocument retrieves a page with browser-like headers and parses it.
// One retry absorbs transient hiccups without hammering the site.
func (c *Client) fetchDocument(ctx context.Context, pageURL, referer string) (*goquery.Document, error) {
	return retry.DoWithData(
		func() (*goquery.Document, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", userAgent)
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
			req.Header.Set("Accept-Language", "en-US,en;q=0.5")
			req.Header.Set("Referer", referer)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return goquery.NewDocumentFromReader(resp.Body)
		},
		retry.Context(ctx),
		retry.Attempts(fetchAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
