// Package verify confirms that candidate image addresses are fetchable and
// measures their true pixel dimensions before they are accepted as banners.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"bannerforge/models"
	"bannerforge/services/sizes"
)

const (
	// Byte-size plausibility band for a photographic banner. Files outside
	// it are skipped before the full download.
	minByteSize = 50_000
	maxByteSize = 10_000_000

	probeTimeout = 5 * time.Second
	fetchTimeout = 10 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options tunes a Verifier.
type Options struct {
	// TrustDeclared accepts candidates whose provider already declared true
	// pixel dimensions without re-downloading them. Only enable for
	// providers whose metadata is authoritative.
	TrustDeclared bool
	// MinBytes/MaxBytes override the byte-size plausibility band.
	MinBytes int64
	MaxBytes int64
}

// Verifier checks candidates against a size range, downloading and decoding
// image headers when the provider did not declare dimensions.
type Verifier struct {
	client        *http.Client
	trustDeclared bool
	minBytes      int64
	maxBytes      int64
}

// New creates a Verifier. A nil client gets a default with the fetch timeout.
func New(client *http.Client, opts Options) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	v := &Verifier{
		client:        client,
		trustDeclared: opts.TrustDeclared,
		minBytes:      opts.MinBytes,
		maxBytes:      opts.MaxBytes,
	}
	if v.minBytes <= 0 {
		v.minBytes = minByteSize
	}
	if v.maxBytes <= 0 {
		v.maxBytes = maxByteSize
	}
	return v
}

// Verify returns a BannerImage when the candidate is fetchable and its true
// dimensions fall inside rng, and nil otherwise. Network failures, timeouts
// and undecodable bodies are all reported as "not accepted": scanning many
// candidates makes partial upstream failure the common case, so it never
// surfaces as an error.
func (v *Verifier) Verify(ctx context.Context, candidate models.ImageCandidate, title, domain string, rng sizes.Range) *models.BannerImage {
	if candidate.URL == "" {
		return nil
	}

	// Trusted metadata fast path: no download needed.
	if v.trustDeclared && candidate.Declared() {
		if !rng.Contains(candidate.Width, candidate.Height) {
			return nil
		}
		return buildBanner(candidate.URL, candidate.Width, candidate.Height, title, domain)
	}

	if !sizes.MightMatch(candidate.URL, rng) {
		return nil
	}

	if skip := v.probe(ctx, candidate.URL); skip {
		return nil
	}

	width, height, ok := v.measure(ctx, candidate.URL)
	if !ok {
		return nil
	}

	if !rng.Contains(width, height) {
		return nil
	}
	return buildBanner(candidate.URL, width, height, title, domain)
}

// probe issues a HEAD request and reports whether the candidate should be
// skipped based on its declared byte size. A failed or inconclusive probe
// does not skip: absence of metadata is not a rejection.
func (v *Verifier) probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	length, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || length <= 0 {
		return false
	}
	return length < v.minBytes || length > v.maxBytes
}

// measure downloads the resource and decodes just the image header for its
// pixel dimensions.
func (v *Verifier) measure(ctx context.Context, url string) (width, height int, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		log.Printf("verify: fetch %s failed: %v", url, err)
		return 0, 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, v.maxBytes+1))
	if err != nil {
		log.Printf("verify: read %s failed: %v", url, err)
		return 0, 0, false
	}
	if int64(len(body)) > v.maxBytes {
		return 0, 0, false
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

func buildBanner(url string, width, height int, title, domain string) *models.BannerImage {
	return &models.BannerImage{
		URL:      url,
		Width:    width,
		Height:   height,
		Title:    title,
		Domain:   domain,
		Kind:     "image/jpeg",
		Filename: fmt.Sprintf("%s_%dx%d.jpg", strings.ReplaceAll(strings.TrimSpace(title), " ", "_"), width, height),
	}
}
