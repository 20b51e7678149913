// Package api exposes the lookup engine and canonical store over HTTP.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"tonearm/internal/api/middleware"
	"tonearm/internal/artist"
	"tonearm/internal/cache"
	"tonearm/internal/lookup"
	"tonearm/internal/metadata"
	"tonearm/internal/release"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	ArtistService    *artist.Service
	ReleaseService   *release.Service
	ArtistEngine     *lookup.ArtistEngine
	ReleaseEngine    *lookup.ReleaseEngine
	ProviderSettings *metadata.SettingsService
	ProviderRegistry *metadata.Registry
	SearchCache      *cache.Cache
	DB               *sql.DB
	Logger           *slog.Logger
}

// Router sets up all HTTP routes for the application.
type Router struct {
	artistService    *artist.Service
	releaseService   *release.Service
	artistEngine     *lookup.ArtistEngine
	releaseEngine    *lookup.ReleaseEngine
	providerSettings *metadata.SettingsService
	providerRegistry *metadata.Registry
	searchCache      *cache.Cache
	db               *sql.DB
	logger           *slog.Logger
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		artistService:    deps.ArtistService,
		releaseService:   deps.ReleaseService,
		artistEngine:     deps.ArtistEngine,
		releaseEngine:    deps.ReleaseEngine,
		providerSettings: deps.ProviderSettings,
		providerRegistry: deps.ProviderRegistry,
		searchCache:      deps.SearchCache,
		db:               deps.DB,
		logger:           deps.Logger,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", r.handleHealth)

	// Lookup endpoints fan out to external providers; they carry their own
	// per-IP rate limit on top of the per-provider limiters.
	lookupMw := middleware.NewLookupRateLimiter(5, 10).Middleware
	mux.Handle("POST /api/v1/lookup/artist", lookupMw(http.HandlerFunc(r.handleLookupArtist)))
	mux.Handle("POST /api/v1/lookup/release", lookupMw(http.HandlerFunc(r.handleLookupRelease)))
	mux.Handle("POST /api/v1/lookup/batch", lookupMw(http.HandlerFunc(r.handleLookupBatch)))
	mux.Handle("GET /api/v1/search/preview", lookupMw(http.HandlerFunc(r.handleSearchPreview)))

	mux.HandleFunc("GET /api/v1/artists", r.handleListArtists)
	mux.HandleFunc("GET /api/v1/artists/{id}", r.handleGetArtist)
	mux.HandleFunc("GET /api/v1/artists/{id}/releases", r.handleListArtistReleases)
	mux.HandleFunc("DELETE /api/v1/artists/{id}", r.handleDeleteArtist)
	mux.HandleFunc("POST /api/v1/artists/{id}/refresh", r.handleRefreshArtist)
	mux.HandleFunc("GET /api/v1/search/artists", r.handleSearchArtists)

	mux.HandleFunc("GET /api/v1/releases/{id}", r.handleGetRelease)
	mux.HandleFunc("DELETE /api/v1/releases/{id}", r.handleDeleteRelease)
	mux.HandleFunc("POST /api/v1/releases/{id}/refresh", r.handleRefreshRelease)

	mux.HandleFunc("GET /api/v1/providers", r.handleListProviders)
	mux.HandleFunc("PUT /api/v1/providers/priorities", r.handleSetPriorities)
	mux.HandleFunc("PUT /api/v1/providers/policy", r.handleSetPolicy)
	mux.HandleFunc("PUT /api/v1/providers/{name}/key", r.handleSetProviderKey)
	mux.HandleFunc("DELETE /api/v1/providers/{name}/key", r.handleDeleteProviderKey)
	mux.HandleFunc("PUT /api/v1/providers/{name}/enabled", r.handleSetProviderEnabled)
	mux.HandleFunc("POST /api/v1/providers/{name}/test", r.handleTestProvider)

	var handler http.Handler = mux
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.Logging(r.logger)(handler)
	return handler
}
