package main

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"bannerforge/api"
	"bannerforge/config"
	"bannerforge/handlers"
	"bannerforge/services/accounts"
	"bannerforge/services/banners"
	"bannerforge/services/cache"
	"bannerforge/services/imdb"
	"bannerforge/services/sessions"
	"bannerforge/services/tmdb"
	"bannerforge/services/verify"
	"bannerforge/utils"
)

func main() {
	cfg := config.NewManager(filepath.Join("data", "settings.json"))
	settings := cfg.Get()

	accountsSvc, err := accounts.NewService(settings.Server.StorageDir)
	if err != nil {
		log.Fatalf("accounts: %v", err)
	}
	if accountsSvc.HasDefaultPassword() {
		log.Printf("WARNING: master account still uses the default password, change it after login")
	}

	sessionsSvc, err := sessions.NewService(settings.Server.StorageDir,
		time.Duration(settings.Auth.SessionHours)*time.Hour)
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}

	resultCache := cache.New(
		time.Duration(settings.Cache.TTLMinutes)*time.Minute,
		time.Duration(settings.Cache.SweepMinutes)*time.Minute,
	)

	resolverOpts := banners.Options{
		BatchSize:        settings.Resolver.BatchSize,
		BatchPause:       time.Duration(settings.Resolver.BatchPauseMs) * time.Millisecond,
		MaxSearchResults: settings.Resolver.MaxSearchResults,
	}

	scrapedProvider := imdb.NewClient(settings.Providers.ScrapeSources, nil)
	scrapedResolver := banners.NewResolver(
		scrapedProvider,
		verify.New(nil, verify.Options{}),
		resultCache,
		resolverOpts,
	)

	tmdbClient := tmdb.NewClient(settings.Providers.TMDBAPIKey)
	if settings.Providers.TMDBAPIKey == "" {
		log.Printf("TMDB API key not configured, tmdb endpoints will report an error")
	}
	tmdbOpts := resolverOpts
	tmdbOpts.Domain = tmdb.Domain
	tmdbResolver := banners.NewResolver(
		tmdbClient,
		verify.New(nil, verify.Options{TrustDeclared: true}),
		resultCache,
		tmdbOpts,
	)

	authHandler := handlers.NewAuthHandler(accountsSvc, sessionsSvc)
	bannersHandler := handlers.NewBannersHandler(scrapedResolver, tmdbResolver, tmdbClient, resultCache)

	router := utils.NewRouter()

	loginLimiter := api.LoginRateLimiter()
	authRouter := router.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/login", api.RateLimitHandlerFunc(loginLimiter, authHandler.Login)).Methods(http.MethodPost, http.MethodOptions)
	authRouter.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost, http.MethodOptions)
	authRouter.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet, http.MethodOptions)
	authRouter.HandleFunc("/refresh", authHandler.Refresh).Methods(http.MethodPost, http.MethodOptions)
	authRouter.HandleFunc("/change-password", authHandler.ChangePassword).Methods(http.MethodPost, http.MethodOptions)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.SessionAuthMiddleware(sessionsSvc))
	apiRouter.HandleFunc("/search-movies", bannersHandler.SearchMovies).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/download-by-id", bannersHandler.DownloadByID).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/load-more-images", bannersHandler.LoadMoreImages).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/tmdb-search", bannersHandler.TMDBSearch).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/tmdb-download-by-id", bannersHandler.TMDBDownloadByID).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/tmdb-load-more", bannersHandler.TMDBLoadMore).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/tmdb-popular", bannersHandler.TMDBPopular).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/cache/stats", bannersHandler.CacheStats).Methods(http.MethodGet, http.MethodOptions)

	adminRouter := apiRouter.NewRoute().Subrouter()
	adminRouter.Use(api.MasterOnlyMiddleware())
	adminRouter.HandleFunc("/cache/clear", bannersHandler.CacheClear).Methods(http.MethodPost, http.MethodOptions)

	addr := fmt.Sprintf(":%d", settings.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("bannerforge listening on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
