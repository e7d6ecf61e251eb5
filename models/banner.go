package models

// Title kinds reported by search results.
const (
	KindMovie  = "Movie"
	KindSeries = "TV Series"
	KindOther  = "Other"
)

// SearchResult is a single title match returned by a provider search.
type SearchResult struct {
	TitleID    string  `json:"movieId"`
	Title      string  `json:"movieTitle"`
	Year       string  `json:"year,omitempty"`
	Kind       string  `json:"type"`
	Poster     string  `json:"poster,omitempty"`
	Overview   string  `json:"overview,omitempty"`
	VoteAvg    float64 `json:"voteAverage,omitempty"`
	Popularity float64 `json:"popularity,omitempty"`
	MediaType  string  `json:"mediaType,omitempty"` // "movie" or "tv", set by the structured provider
}

// ListOptions controls candidate discovery for one title.
type ListOptions struct {
	Page      int    // 1-based media index page; providers without pagination ignore it
	MediaType string // "movie" or "tv" for providers that distinguish the two
}

// ImageCandidate is a raw image address discovered by a provider, before
// verification. Width/Height are zero unless the provider's metadata
// already declares the true pixel size.
type ImageCandidate struct {
	URL    string
	Width  int
	Height int
}

// Declared reports whether the provider supplied pixel dimensions for
// this candidate.
func (c ImageCandidate) Declared() bool {
	return c.Width > 0 && c.Height > 0
}

// BannerImage is an image whose fetchability and true pixel dimensions
// have been confirmed. Immutable once built.
type BannerImage struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Title    string `json:"film"`
	Domain   string `json:"domain"`
	Kind     string `json:"contentType"`
	Filename string `json:"filename"`
}
