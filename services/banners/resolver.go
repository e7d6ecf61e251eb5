// Package banners orchestrates the search / discover / verify / cache
// pipeline between the image providers and the HTTP API.
package banners

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"bannerforge/models"
	"bannerforge/services/cache"
	"bannerforge/services/sizes"
)

// Provider enumerates titles and candidate image addresses for one upstream
// source. The two implementations are the scraped site and the structured
// metadata API.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	ListCandidates(ctx context.Context, titleID string, opts models.ListOptions) ([]models.ImageCandidate, error)
	SupportsIncrementalLoad() bool
}

// Verifier confirms a candidate and measures its true dimensions; nil means
// not accepted.
type Verifier interface {
	Verify(ctx context.Context, candidate models.ImageCandidate, title, domain string, rng sizes.Range) *models.BannerImage
}

const (
	// DefaultBatchSize bounds how many candidates are verified concurrently.
	// It is a politeness throttle toward the upstream image host, not a
	// correctness parameter.
	DefaultBatchSize = 3
	// DefaultBatchPause separates consecutive verification batches.
	DefaultBatchPause = 200 * time.Millisecond
	// DefaultMaxSearchResults bounds a search response.
	DefaultMaxSearchResults = 10
)

// Options tunes a Resolver.
type Options struct {
	BatchSize        int
	BatchPause       time.Duration
	MaxSearchResults int
	// Domain labels accepted images when the provider address itself is not
	// meaningful to show (the structured API case).
	Domain string
}

// Resolver answers search and image requests for one provider, serving from
// the shared cache when possible.
type Resolver struct {
	provider   Provider
	verifier   Verifier
	cache      *cache.Cache
	domain     string
	batchSize  int
	batchPause time.Duration
	maxResults int
}

// NewResolver wires a provider, verifier, and shared cache into a resolver.
func NewResolver(p Provider, v Verifier, c *cache.Cache, opts Options) *Resolver {
	r := &Resolver{
		provider:   p,
		verifier:   v,
		cache:      c,
		domain:     opts.Domain,
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
		maxResults: opts.MaxSearchResults,
	}
	if r.batchSize <= 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.batchPause <= 0 {
		r.batchPause = DefaultBatchPause
	}
	if r.maxResults <= 0 {
		r.maxResults = DefaultMaxSearchResults
	}
	return r
}

// SearchOutcome is a resolved search response.
type SearchOutcome struct {
	Query     string
	Results   []models.SearchResult
	FromCache bool
}

// ImagesRequest identifies one title-image resolution.
type ImagesRequest struct {
	TitleID   string
	Title     string
	Preset    string
	MediaType string
}

// ImagesOutcome is a resolved image response. Images is the preset-filtered
// view; TotalImages is its length.
type ImagesOutcome struct {
	Images      []models.BannerImage
	TotalImages int
	FromCache   bool
	Message     string
}

// Search resolves a title query, serving cached results when present.
// Results are ordered exact-title-match first, then by descending year,
// stable for ties, and truncated to the configured maximum. Empty result
// sets are not cached so a later retry can succeed.
func (r *Resolver) Search(ctx context.Context, query string) (SearchOutcome, error) {
	if cached, ok := r.cache.GetSearch(r.provider.Name(), query); ok {
		return SearchOutcome{Query: query, Results: cached, FromCache: true}, nil
	}

	results, err := r.provider.Search(ctx, query)
	if err != nil {
		return SearchOutcome{}, fmt.Errorf("provider search: %w", err)
	}

	sortSearchResults(results, query)
	if len(results) > r.maxResults {
		results = results[:r.maxResults]
	}

	if len(results) > 0 {
		r.cache.PutSearch(r.provider.Name(), query, results)
	}
	return SearchOutcome{Query: query, Results: results, FromCache: false}, nil
}

// Images resolves the banner set for a title. On a cache hit the stored
// unfiltered set is filtered by the requested preset; on a miss candidates
// are discovered, verified in bounded batches, and the raw accepted set is
// cached before filtering. Zero accepted images is a success, not an error,
// and is never cached.
func (r *Resolver) Images(ctx context.Context, req ImagesRequest) (ImagesOutcome, error) {
	rng := sizes.Resolve(req.Preset)

	if raw, ok := r.cache.GetImageSet(r.provider.Name(), req.TitleID); ok {
		filtered := filterBySize(raw, rng)
		log.Printf("banners: %s/%s served from cache (%d of %d pass %q)",
			r.provider.Name(), req.TitleID, len(filtered), len(raw), req.Preset)
		return ImagesOutcome{
			Images:      filtered,
			TotalImages: len(filtered),
			FromCache:   true,
			Message:     fmt.Sprintf("%d banners found (cached)", len(filtered)),
		}, nil
	}

	candidates, err := r.provider.ListCandidates(ctx, req.TitleID, models.ListOptions{MediaType: req.MediaType})
	if err != nil {
		return ImagesOutcome{}, fmt.Errorf("list candidates: %w", err)
	}

	accepted := r.verifyAll(ctx, candidates, req.Title)
	if len(accepted) > 0 {
		r.cache.PutImageSet(r.provider.Name(), req.TitleID, accepted)
	}

	filtered := filterBySize(accepted, rng)
	return ImagesOutcome{
		Images:      filtered,
		TotalImages: len(filtered),
		FromCache:   false,
		Message:     fmt.Sprintf("%d banners found", len(filtered)),
	}, nil
}

// LoadMore reveals additional candidates for providers with paginated
// discovery and verifies them through the same pipeline. It does not touch
// the title's cached set, so previously returned results never shrink.
// Providers that return everything in one shot report a zero-result no-op.
func (r *Resolver) LoadMore(ctx context.Context, req ImagesRequest) (ImagesOutcome, error) {
	if !r.provider.SupportsIncrementalLoad() {
		return ImagesOutcome{
			Message: "this provider returns all images on the first load",
		}, nil
	}

	candidates, err := r.provider.ListCandidates(ctx, req.TitleID, models.ListOptions{Page: 2, MediaType: req.MediaType})
	if err != nil {
		return ImagesOutcome{}, fmt.Errorf("list candidates: %w", err)
	}

	accepted := r.verifyAll(ctx, candidates, req.Title)
	filtered := filterBySize(accepted, sizes.Resolve(req.Preset))

	msg := "no additional banners found"
	if len(filtered) > 0 {
		msg = fmt.Sprintf("%d additional banners found", len(filtered))
	}
	return ImagesOutcome{Images: filtered, TotalImages: len(filtered), Message: msg}, nil
}

// verifyAll runs candidates through the verifier in fixed-size batches.
// Members of a batch are verified concurrently; batches run strictly one
// after another with a pause between them so the upstream host is never hit
// with an unbounded fan-out. A failed candidate only costs itself.
// Verification always measures against the unrestricted range: the raw
// accepted set is cached unfiltered and preset filtering happens on read.
// Under that range the verifier's URL-hint fast-reject passes everything,
// so every candidate here costs a download; no hint-based pruning can
// apply without making the cached set unservable for some preset (the
// "custom" preset accepts any dimensions, so even the union of all preset
// windows prunes nothing).
func (r *Resolver) verifyAll(ctx context.Context, candidates []models.ImageCandidate, title string) []models.BannerImage {
	full := sizes.Full()
	var accepted []models.BannerImage

	for start := 0; start < len(candidates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		p := pool.NewWithResults[*models.BannerImage]().WithMaxGoroutines(r.batchSize)
		for _, candidate := range candidates[start:end] {
			candidate := candidate
			p.Go(func() *models.BannerImage {
				return r.verifier.Verify(ctx, candidate, title, r.candidateDomain(candidate), full)
			})
		}
		for _, img := range p.Wait() {
			if img != nil {
				accepted = append(accepted, *img)
			}
		}

		if end < len(candidates) {
			select {
			case <-ctx.Done():
				return accepted
			case <-time.After(r.batchPause):
			}
		}
	}
	return accepted
}

// candidateDomain labels a banner with its source site.
func (r *Resolver) candidateDomain(candidate models.ImageCandidate) string {
	if r.domain != "" {
		return r.domain
	}
	u := strings.TrimPrefix(strings.TrimPrefix(candidate.URL, "https://"), "http://")
	if i := strings.IndexByte(u, '/'); i > 0 {
		return u[:i]
	}
	return u
}

// sortSearchResults orders exact title matches first, then newer releases,
// keeping the provider's order for ties.
func sortSearchResults(results []models.SearchResult, query string) {
	q := strings.ToLower(strings.TrimSpace(query))
	sort.SliceStable(results, func(i, j int) bool {
		iExact := strings.ToLower(results[i].Title) == q
		jExact := strings.ToLower(results[j].Title) == q
		if iExact != jExact {
			return iExact
		}
		if results[i].Year != results[j].Year {
			return results[i].Year > results[j].Year
		}
		return false
	})
}

// filterBySize returns the subset of images inside the range. The input is
// never mutated; cached sets stay intact across reads.
func filterBySize(images []models.BannerImage, rng sizes.Range) []models.BannerImage {
	filtered := make([]models.BannerImage, 0, len(images))
	for _, img := range images {
		if rng.Contains(img.Width, img.Height) {
			filtered = append(filtered, img)
		}
	}
	return filtered
}
