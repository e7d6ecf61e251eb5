// Package tmdb adapts The Movie Database API as a banner provider. The API
// already reports true pixel dimensions for every backdrop, so candidates
// from this provider are trusted without re-downloading.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	tmdb "github.com/ryanbradynd05/go-tmdb"

	"bannerforge/models"
)

const (
	imageBaseURL  = "https://image.tmdb.org/t/p/original"
	posterBaseURL = "https://image.tmdb.org/t/p/w300"

	// Domain is the display domain attached to results from this provider.
	Domain = "tmdb.org"

	maxSearchResults  = 8
	defaultPopularCap = 8
)

// ErrAPIKeyMissing is returned on first use when no API key is configured.
// Construction succeeds without a key so the rest of the application stays
// usable; the failure is deferred to the first TMDB call.
var ErrAPIKeyMissing = errors.New("tmdb: API key not configured")

// apiClient is the slice of the TMDB SDK this provider uses; *tmdb.TMDb
// satisfies it directly and tests substitute a fake.
type apiClient interface {
	SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
	GetMovieImages(id int, options map[string]string) (*tmdb.MovieImages, error)
	GetTvImages(id int, options map[string]string) (*tmdb.TvImages, error)
	GetMoviePopular(options map[string]string) (*tmdb.MoviePagedResults, error)
	GetTvPopular(options map[string]string) (*tmdb.TvPagedResults, error)
}

// Client is the structured-API provider.
type Client struct {
	api      apiClient
	language string
}

// NewClient constructs a TMDB provider. An empty API key is tolerated here
// and rejected on first use.
func NewClient(apiKey string) *Client {
	c := &Client{language: "en-US"}
	if strings.TrimSpace(apiKey) != "" {
		c.api = tmdb.Init(tmdb.Config{APIKey: apiKey})
	}
	return c
}

// Name identifies this provider for cache scoping and result labels.
func (c *Client) Name() string { return "tmdb" }

// SupportsIncrementalLoad reports false: the images endpoint returns every
// backdrop in one response, so there is nothing more to load.
func (c *Client) SupportsIncrementalLoad() bool { return false }

func (c *Client) options() map[string]string {
	return map[string]string{"language": c.language}
}

// Search runs movie and TV searches, merges them, and returns the most
// popular matches first.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if c.api == nil {
		return nil, ErrAPIKeyMissing
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []models.SearchResult

	movies, err := c.api.SearchMovie(query, c.options())
	if err != nil {
		return nil, fmt.Errorf("tmdb movie search: %w", err)
	}
	for _, m := range movies.Results {
		results = append(results, models.SearchResult{
			TitleID:    strconv.Itoa(m.ID),
			Title:      m.Title,
			Year:       yearOf(m.ReleaseDate),
			Kind:       models.KindMovie,
			Poster:     posterURL(m.PosterPath),
			Overview:   m.Overview,
			VoteAvg:    float64(m.VoteAverage),
			Popularity: float64(m.Popularity),
			MediaType:  "movie",
		})
	}

	shows, err := c.api.SearchTv(query, c.options())
	if err != nil {
		return nil, fmt.Errorf("tmdb tv search: %w", err)
	}
	for _, s := range shows.Results {
		results = append(results, models.SearchResult{
			TitleID:    strconv.Itoa(s.ID),
			Title:      s.Name,
			Year:       yearOf(s.FirstAirDate),
			Kind:       models.KindSeries,
			Poster:     posterURL(s.PosterPath),
			VoteAvg:    float64(s.VoteAverage),
			Popularity: float64(s.Popularity),
			MediaType:  "tv",
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Popularity > results[j].Popularity
	})
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	log.Printf("tmdb: search %q returned %d results", query, len(results))
	return results, nil
}

// ListCandidates fetches every backdrop for the title. Dimensions come from
// the API response, so the verifier's trusted fast path applies.
func (c *Client) ListCandidates(ctx context.Context, titleID string, opts models.ListOptions) ([]models.ImageCandidate, error) {
	if c.api == nil {
		return nil, ErrAPIKeyMissing
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := strconv.Atoi(titleID)
	if err != nil {
		return nil, fmt.Errorf("tmdb: invalid title id %q", titleID)
	}

	var candidates []models.ImageCandidate
	if opts.MediaType == "tv" {
		images, err := c.api.GetTvImages(id, nil)
		if err != nil {
			return nil, fmt.Errorf("tmdb tv images: %w", err)
		}
		for _, b := range images.Backdrops {
			candidates = append(candidates, models.ImageCandidate{
				URL:    imageBaseURL + b.FilePath,
				Width:  b.Width,
				Height: b.Height,
			})
		}
	} else {
		images, err := c.api.GetMovieImages(id, nil)
		if err != nil {
			return nil, fmt.Errorf("tmdb movie images: %w", err)
		}
		for _, b := range images.Backdrops {
			candidates = append(candidates, models.ImageCandidate{
				URL:    imageBaseURL + b.FilePath,
				Width:  b.Width,
				Height: b.Height,
			})
		}
	}

	log.Printf("tmdb: title %s has %d backdrops", titleID, len(candidates))
	return candidates, nil
}

// PopularMovies returns the currently popular movies, capped at limit.
func (c *Client) PopularMovies(ctx context.Context, limit int) ([]models.SearchResult, error) {
	if c.api == nil {
		return nil, ErrAPIKeyMissing
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPopularCap
	}

	paged, err := c.api.GetMoviePopular(c.options())
	if err != nil {
		return nil, fmt.Errorf("tmdb popular movies: %w", err)
	}

	var results []models.SearchResult
	for _, m := range paged.Results {
		if len(results) >= limit {
			break
		}
		results = append(results, models.SearchResult{
			TitleID:    strconv.Itoa(m.ID),
			Title:      m.Title,
			Year:       yearOf(m.ReleaseDate),
			Kind:       models.KindMovie,
			Poster:     posterURL(m.PosterPath),
			Overview:   m.Overview,
			VoteAvg:    float64(m.VoteAverage),
			Popularity: float64(m.Popularity),
			MediaType:  "movie",
		})
	}
	return results, nil
}

// PopularTV returns the currently popular TV series, capped at limit.
func (c *Client) PopularTV(ctx context.Context, limit int) ([]models.SearchResult, error) {
	if c.api == nil {
		return nil, ErrAPIKeyMissing
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPopularCap
	}

	paged, err := c.api.GetTvPopular(c.options())
	if err != nil {
		return nil, fmt.Errorf("tmdb popular tv: %w", err)
	}

	var results []models.SearchResult
	for _, s := range paged.Results {
		if len(results) >= limit {
			break
		}
		results = append(results, models.SearchResult{
			TitleID:    strconv.Itoa(s.ID),
			Title:      s.Name,
			Year:       yearOf(s.FirstAirDate),
			Kind:       models.KindSeries,
			Poster:     posterURL(s.PosterPath),
			VoteAvg:    float64(s.VoteAverage),
			Popularity: float64(s.Popularity),
			MediaType:  "tv",
		})
	}
	return results, nil
}

func yearOf(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}
