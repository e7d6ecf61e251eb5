// Package config manages the persisted application settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Port       int    `json:"port"`
	StorageDir string `json:"storageDir"`
}

// ProviderSettings configures the upstream image providers.
type ProviderSettings struct {
	// ScrapeSources are base URLs of the scraped site (mirrors allowed);
	// the first entry serves searches.
	ScrapeSources []string `json:"scrapeSources"`
	TMDBAPIKey    string   `json:"tmdbApiKey"`
}

// CacheSettings configures the result cache.
type CacheSettings struct {
	TTLMinutes   int `json:"ttlMinutes"`
	SweepMinutes int `json:"sweepMinutes"`
}

// ResolverSettings tunes the verification pipeline.
type ResolverSettings struct {
	BatchSize        int `json:"batchSize"`
	BatchPauseMs     int `json:"batchPauseMs"`
	MaxSearchResults int `json:"maxSearchResults"`
}

// AuthSettings configures sessions.
type AuthSettings struct {
	SessionHours int `json:"sessionHours"`
}

// Settings is the full persisted configuration.
type Settings struct {
	Server    ServerSettings   `json:"server"`
	Providers ProviderSettings `json:"providers"`
	Cache     CacheSettings    `json:"cache"`
	Resolver  ResolverSettings `json:"resolver"`
	Auth      AuthSettings     `json:"auth"`
}

// Defaults returns the settings used when no file exists yet.
func Defaults() Settings {
	return Settings{
		Server:    ServerSettings{Port: 3000, StorageDir: "data"},
		Providers: ProviderSettings{ScrapeSources: []string{"https://www.imdb.com"}},
		Cache:     CacheSettings{TTLMinutes: 60, SweepMinutes: 2},
		Resolver:  ResolverSettings{BatchSize: 3, BatchPauseMs: 200, MaxSearchResults: 10},
		Auth:      AuthSettings{SessionHours: 24},
	}
}

// Manager loads and persists Settings with environment overrides applied on
// every read. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// NewManager creates a manager backed by the given settings file. A missing
// file yields defaults; it is written on the first Save.
func NewManager(path string) *Manager {
	m := &Manager{path: path, settings: Defaults()}
	m.load()
	return m
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return
	}
	m.settings = s
}

// Get returns the current settings with environment overrides applied.
// TMDB_API_KEY and BANNERFORGE_PORT take precedence over the file so
// deployments can keep credentials out of it.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	s := m.settings
	m.mu.RUnlock()

	if key := os.Getenv("TMDB_API_KEY"); key != "" {
		s.Providers.TMDBAPIKey = key
	}
	if port := os.Getenv("BANNERFORGE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			s.Server.Port = p
		}
	}
	return s
}

// Save persists new settings atomically and makes them current.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}

	m.settings = s
	return nil
}
