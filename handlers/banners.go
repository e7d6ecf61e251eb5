package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bannerforge/models"
	"bannerforge/services/banners"
	"bannerforge/services/cache"
)

// bannerResolver is the slice of banners.Resolver the handler consumes.
type bannerResolver interface {
	Search(ctx context.Context, query string) (banners.SearchOutcome, error)
	Images(ctx context.Context, req banners.ImagesRequest) (banners.ImagesOutcome, error)
	LoadMore(ctx context.Context, req banners.ImagesRequest) (banners.ImagesOutcome, error)
}

// popularLister serves the TMDB popular carousels.
type popularLister interface {
	PopularMovies(ctx context.Context, limit int) ([]models.SearchResult, error)
	PopularTV(ctx context.Context, limit int) ([]models.SearchResult, error)
}

// resultCache is the slice of the shared cache the handler consumes.
type resultCache interface {
	Stats() cache.Stats
	Flush()
}

// BannersHandler serves the banner search and download endpoints for both
// the scraped and the TMDB provider.
type BannersHandler struct {
	scraped bannerResolver
	tmdb    bannerResolver
	popular popularLister
	cache   resultCache
}

// NewBannersHandler creates the banners handler.
func NewBannersHandler(scraped, tmdb bannerResolver, popular popularLister, c resultCache) *BannersHandler {
	return &BannersHandler{
		scraped: scraped,
		tmdb:    tmdb,
		popular: popular,
		cache:   c,
	}
}

// searchRequest is the body of the search endpoints.
type searchRequest struct {
	Query string `json:"query"`
}

// imagesRequest is the body of the download and load-more endpoints.
type imagesRequest struct {
	MovieID    string `json:"movieId"`
	MovieTitle string `json:"movieTitle"`
	SizeFilter string `json:"sizeFilter"`
	MediaType  string `json:"mediaType"`
}

// imageDTO is the wire shape of one downloadable image.
type imageDTO struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Movie  string `json:"movie"`
	Domain string `json:"domain"`
}

// searchResponse is the search endpoint envelope.
type searchResponse struct {
	Success   bool                  `json:"success"`
	Query     string                `json:"query"`
	Count     int                   `json:"count"`
	Results   []models.SearchResult `json:"results"`
	FromCache bool                  `json:"fromCache"`
	Source    string                `json:"source,omitempty"`
}

// imagesResponse is the download and load-more envelope.
type imagesResponse struct {
	Success     bool       `json:"success"`
	TotalImages int        `json:"totalImages"`
	Images      []imageDTO `json:"images"`
	Message     string     `json:"message,omitempty"`
	FromCache   bool       `json:"fromCache"`
	Source      string     `json:"source,omitempty"`
}

// SearchMovies handles POST /api/search-movies against the scraped provider.
func (h *BannersHandler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.scraped, "")
}

// TMDBSearch handles POST /api/tmdb-search.
func (h *BannersHandler) TMDBSearch(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.tmdb, "tmdb")
}

func (h *BannersHandler) search(w http.ResponseWriter, r *http.Request, resolver bannerResolver, source string) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	outcome, err := resolver.Search(r.Context(), req.Query)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "search failed", err)
		return
	}

	results := outcome.Results
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Success:   true,
		Query:     outcome.Query,
		Count:     len(results),
		Results:   results,
		FromCache: outcome.FromCache,
		Source:    source,
	})
}

// DownloadByID handles POST /api/download-by-id against the scraped provider.
func (h *BannersHandler) DownloadByID(w http.ResponseWriter, r *http.Request) {
	h.images(w, r, h.scraped, "", false)
}

// LoadMoreImages handles POST /api/load-more-images.
func (h *BannersHandler) LoadMoreImages(w http.ResponseWriter, r *http.Request) {
	h.images(w, r, h.scraped, "", true)
}

// TMDBDownloadByID handles POST /api/tmdb-download-by-id.
func (h *BannersHandler) TMDBDownloadByID(w http.ResponseWriter, r *http.Request) {
	h.images(w, r, h.tmdb, "tmdb", false)
}

// TMDBLoadMore handles POST /api/tmdb-load-more.
func (h *BannersHandler) TMDBLoadMore(w http.ResponseWriter, r *http.Request) {
	h.images(w, r, h.tmdb, "tmdb", true)
}

func (h *BannersHandler) images(w http.ResponseWriter, r *http.Request, resolver bannerResolver, source string, loadMore bool) {
	var req imagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.MovieID) == "" {
		writeError(w, http.StatusBadRequest, "missing movieId")
		return
	}
	if strings.TrimSpace(req.MovieTitle) == "" {
		writeError(w, http.StatusBadRequest, "missing movieTitle")
		return
	}

	resolve := resolver.Images
	if loadMore {
		resolve = resolver.LoadMore
	}

	outcome, err := resolve(r.Context(), banners.ImagesRequest{
		TitleID:   req.MovieID,
		Title:     req.MovieTitle,
		Preset:    req.SizeFilter,
		MediaType: req.MediaType,
	})
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to collect images", err)
		return
	}

	writeJSON(w, http.StatusOK, imagesResponse{
		Success:     true,
		TotalImages: outcome.TotalImages,
		Images:      toImageDTOs(outcome.Images),
		Message:     outcome.Message,
		FromCache:   outcome.FromCache,
		Source:      source,
	})
}

// popularResponse is the /api/tmdb-popular envelope.
type popularResponse struct {
	Success bool                  `json:"success"`
	Movies  []models.SearchResult `json:"movies"`
	TV      []models.SearchResult `json:"tv"`
}

// TMDBPopular handles GET /api/tmdb-popular, returning popular movies and
// shows for the landing page.
func (h *BannersHandler) TMDBPopular(w http.ResponseWriter, r *http.Request) {
	movies, err := h.popular.PopularMovies(r.Context(), 0)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to fetch popular titles", err)
		return
	}
	tv, err := h.popular.PopularTV(r.Context(), 0)
	if err != nil {
		writeErrorDetails(w, http.StatusInternalServerError, "failed to fetch popular titles", err)
		return
	}

	if movies == nil {
		movies = []models.SearchResult{}
	}
	if tv == nil {
		tv = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, popularResponse{Success: true, Movies: movies, TV: tv})
}

// CacheStats handles GET /api/cache/stats.
func (h *BannersHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cache":   h.cache.Stats(),
	})
}

// CacheClear handles POST /api/cache/clear.
func (h *BannersHandler) CacheClear(w http.ResponseWriter, r *http.Request) {
	h.cache.Flush()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "cache cleared",
	})
}

func toImageDTOs(images []models.BannerImage) []imageDTO {
	dtos := make([]imageDTO, 0, len(images))
	for i, img := range images {
		dtos = append(dtos, imageDTO{
			ID:     i + 1,
			Name:   img.Filename,
			URL:    img.URL,
			Width:  img.Width,
			Height: img.Height,
			Movie:  img.Title,
			Domain: img.Domain,
		})
	}
	return dtos
}
