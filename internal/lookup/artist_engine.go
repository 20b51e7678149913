// Package lookup resolves artist and release names against the local store
// and the configured metadata providers. Lookups follow a fixed sequence:
// local match, run-context check, provider fan-out, merge, persist. A miss
// is a normal negative result, never an error.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tonearm/internal/artist"
	"tonearm/internal/config"
	"tonearm/internal/database"
	"tonearm/internal/metadata"
	"tonearm/internal/normalize"
)

// Status classifies a lookup outcome.
type Status string

const (
	// StatusFound means an existing record matched locally.
	StatusFound Status = "found"
	// StatusAdded means provider results were merged and a new record inserted.
	StatusAdded Status = "added"
	// StatusNotFound means neither the store nor any provider resolved the name.
	StatusNotFound Status = "not_found"
)

// ArtistOutcome is the result of one artist lookup.
type ArtistOutcome struct {
	Status  Status         `json:"status"`
	Artist  *artist.Artist `json:"artist,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ArtistStore is the subset of the artist service used by the engine.
type ArtistStore interface {
	FindByNormalizedName(ctx context.Context, normalized string) (*artist.Artist, error)
	GetByID(ctx context.Context, id string) (*artist.Artist, error)
	Create(ctx context.Context, a *artist.Artist) error
	Update(ctx context.Context, a *artist.Artist) error
}

// ArtistEngine resolves artist names.
type ArtistEngine struct {
	store    ArtistStore
	registry *metadata.Registry
	settings *metadata.SettingsService
	cfg      config.LookupConfig
	logger   *slog.Logger
}

// NewArtistEngine creates an artist lookup engine.
func NewArtistEngine(store ArtistStore, registry *metadata.Registry, settings *metadata.SettingsService, cfg config.LookupConfig, logger *slog.Logger) *ArtistEngine {
	return &ArtistEngine{
		store:    store,
		registry: registry,
		settings: settings,
		cfg:      cfg,
		logger:   logger.With(slog.String("engine", "artist")),
	}
}

// GetByName resolves an artist by name. When queryProviders is false only
// the local store is consulted. runCtx carries in-batch duplicate
// suppression; callers performing a batch share one RunContext across all
// calls in that batch.
func (e *ArtistEngine) GetByName(ctx context.Context, rawName string, queryProviders bool, runCtx *RunContext) (ArtistOutcome, error) {
	query := metadata.NewQuery(rawName, e.cfg.ResultCount)
	key := normalize.Name(query.Name)
	if key == "" {
		return ArtistOutcome{Status: StatusNotFound, Message: "empty name after normalization"}, nil
	}

	existing, err := e.store.FindByNormalizedName(ctx, key)
	if err != nil {
		return ArtistOutcome{}, fmt.Errorf("local artist lookup: %w", err)
	}
	if existing != nil {
		return ArtistOutcome{Status: StatusFound, Artist: existing}, nil
	}

	if !queryProviders {
		return ArtistOutcome{Status: StatusNotFound, Message: fmt.Sprintf("artist %q not in library", query.Name)}, nil
	}

	unlock := runCtx.LockKey("artist:" + key)
	defer unlock()

	if id, ok := runCtx.Get("artist:" + key); ok {
		a, err := e.store.GetByID(ctx, id)
		if err != nil {
			return ArtistOutcome{}, fmt.Errorf("rereading run-context artist: %w", err)
		}
		return ArtistOutcome{Status: StatusFound, Artist: a}, nil
	}

	accepted, err := e.queryProviders(ctx, query)
	if err != nil {
		return ArtistOutcome{}, err
	}
	if len(accepted) == 0 {
		return ArtistOutcome{Status: StatusNotFound, Message: fmt.Sprintf("no provider resolved artist %q", query.Name)}, nil
	}

	merged := metadata.MergeArtists(accepted)
	record := artistFromResult(merged)
	if err := e.store.Create(ctx, record); err != nil {
		if database.IsUniqueViolation(err) {
			// Lost an insert race outside this run context; the record
			// now exists, so hand it back as a local match.
			existing, rerr := e.store.FindByNormalizedName(ctx, key)
			if rerr != nil || existing == nil {
				return ArtistOutcome{}, fmt.Errorf("rereading after duplicate insert: %w", err)
			}
			runCtx.Put("artist:"+key, existing.ID)
			return ArtistOutcome{Status: StatusFound, Artist: existing}, nil
		}
		return ArtistOutcome{}, fmt.Errorf("persisting artist: %w", err)
	}

	runCtx.Put("artist:"+key, record.ID)
	e.logger.Info("artist added",
		slog.String("name", record.Name),
		slog.String("id", record.ID),
		slog.Int("sources", len(accepted)))
	return ArtistOutcome{Status: StatusAdded, Artist: record}, nil
}

// Refresh re-queries providers for an existing artist and applies the merged
// result onto the stored record. Without overwrite only gaps are filled;
// with overwrite provider values replace stored scalars.
func (e *ArtistEngine) Refresh(ctx context.Context, id string, overwrite bool) (ArtistOutcome, error) {
	a, err := e.store.GetByID(ctx, id)
	if err != nil {
		return ArtistOutcome{}, fmt.Errorf("loading artist for refresh: %w", err)
	}

	query := metadata.NewQuery(a.Name, e.cfg.ResultCount)
	accepted, err := e.queryProviders(ctx, query)
	if err != nil {
		return ArtistOutcome{}, err
	}
	if len(accepted) == 0 {
		return ArtistOutcome{Status: StatusNotFound, Artist: a, Message: fmt.Sprintf("no provider resolved artist %q", a.Name)}, nil
	}

	merged := metadata.MergeArtists(accepted)
	if !FillArtist(a, merged, overwrite) {
		return ArtistOutcome{Status: StatusFound, Artist: a, Message: "no new data"}, nil
	}
	if err := e.store.Update(ctx, a); err != nil {
		return ArtistOutcome{}, fmt.Errorf("updating artist: %w", err)
	}
	e.logger.Info("artist refreshed",
		slog.String("name", a.Name),
		slog.String("id", a.ID),
		slog.Int("sources", len(accepted)),
		slog.Bool("overwrite", overwrite))
	return ArtistOutcome{Status: StatusFound, Artist: a}, nil
}

// queryProviders runs the provider fan-out. Fallback policy queries in
// priority order and stops at the first provider with an accepted result;
// fan-out policy queries every provider concurrently and merges all
// accepted results in priority order.
func (e *ArtistEngine) queryProviders(ctx context.Context, query metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	names, err := e.settings.EnabledProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving enabled providers: %w", err)
	}
	providers := e.registry.InOrder(names)
	if len(providers) == 0 {
		return nil, nil
	}

	policy, err := e.settings.Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving lookup policy: %w", err)
	}

	if policy == config.PolicyFanOut {
		return e.fanOutAll(ctx, providers, query), nil
	}
	return e.fallback(ctx, providers, query), nil
}

func (e *ArtistEngine) fallback(ctx context.Context, providers []metadata.Provider, query metadata.SearchQuery) []metadata.ArtistResult {
	for _, p := range providers {
		accepted := e.searchOne(ctx, p, query)
		if len(accepted) > 0 {
			return accepted
		}
	}
	return nil
}

func (e *ArtistEngine) fanOutAll(ctx context.Context, providers []metadata.Provider, query metadata.SearchQuery) []metadata.ArtistResult {
	perProvider := make([][]metadata.ArtistResult, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p metadata.Provider) {
			defer wg.Done()
			perProvider[i] = e.searchOne(ctx, p, query)
		}(i, p)
	}
	wg.Wait()

	// Flatten in priority order so the merge stays deterministic.
	var accepted []metadata.ArtistResult
	for _, results := range perProvider {
		accepted = append(accepted, results...)
	}
	return accepted
}

// searchOne queries a single provider and applies the name accept filter.
// Provider failures are logged and absorbed; they never cross the engine
// boundary.
func (e *ArtistEngine) searchOne(ctx context.Context, p metadata.Provider, query metadata.SearchQuery) []metadata.ArtistResult {
	results, err := p.SearchArtist(ctx, query)
	if err != nil {
		e.logger.Warn("provider search failed",
			slog.String("provider", string(p.Name())),
			slog.String("query", query.Name),
			slog.String("error", err.Error()))
		return nil
	}

	var accepted []metadata.ArtistResult
	for _, r := range results {
		if artistMatches(query, r) {
			accepted = append(accepted, r)
		}
	}
	return accepted
}

// artistMatches applies the accept filter against the primary name and
// every alternate name.
func artistMatches(query metadata.SearchQuery, r metadata.ArtistResult) bool {
	if !r.HasName() {
		return false
	}
	if normalize.Accept(query.Name, r.Name, query.Exact) {
		return true
	}
	for _, alt := range r.AlternateNames {
		if normalize.Accept(query.Name, alt, query.Exact) {
			return true
		}
	}
	return false
}

// artistFromResult converts a merged provider result into a store record.
func artistFromResult(r metadata.ArtistResult) *artist.Artist {
	return &artist.Artist{
		Name:           r.Name,
		SortName:       r.SortName,
		Profile:        r.Profile,
		MusicBrainzID:  r.MusicBrainzID,
		DiscogsID:      r.DiscogsID,
		ITunesID:       r.ITunesID,
		SpotifyID:      r.SpotifyID,
		ThumbnailURL:   r.ThumbnailURL,
		ImageURLs:      r.ImageURLs,
		Tags:           r.Tags,
		URLs:           r.URLs,
		AlternateNames: r.AlternateNames,
		BirthDate:      r.BirthDate,
	}
}
