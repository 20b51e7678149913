package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tonearm/internal/config"
	"tonearm/internal/database"
	"tonearm/internal/metadata"
	"tonearm/internal/normalize"
	"tonearm/internal/release"
)

// ReleaseOutcome is the result of one release lookup.
type ReleaseOutcome struct {
	Status  Status           `json:"status"`
	Release *release.Release `json:"release,omitempty"`
	Message string           `json:"message,omitempty"`
}

// ReleaseStore is the subset of the release service used by the engine.
type ReleaseStore interface {
	FindByNormalizedTitle(ctx context.Context, artistID, normalized string) (*release.Release, error)
	GetByID(ctx context.Context, id string) (*release.Release, error)
	Create(ctx context.Context, r *release.Release) error
	Update(ctx context.Context, r *release.Release) error
}

// ReleaseEngine resolves release titles scoped to an artist.
type ReleaseEngine struct {
	store    ReleaseStore
	registry *metadata.Registry
	settings *metadata.SettingsService
	cfg      config.LookupConfig
	logger   *slog.Logger
}

// NewReleaseEngine creates a release lookup engine.
func NewReleaseEngine(store ReleaseStore, registry *metadata.Registry, settings *metadata.SettingsService, cfg config.LookupConfig, logger *slog.Logger) *ReleaseEngine {
	return &ReleaseEngine{
		store:    store,
		registry: registry,
		settings: settings,
		cfg:      cfg,
		logger:   logger.With(slog.String("engine", "release")),
	}
}

// GetByTitle resolves a release by title under the given artist. The artist
// name is passed to providers as a search hint. Behavior mirrors
// ArtistEngine.GetByName.
func (e *ReleaseEngine) GetByTitle(ctx context.Context, artistID, artistName, rawTitle string, queryProviders bool, runCtx *RunContext) (ReleaseOutcome, error) {
	query := metadata.NewQuery(rawTitle, e.cfg.ResultCount).WithArtist(artistName)
	key := normalize.Name(query.Name)
	if key == "" {
		return ReleaseOutcome{Status: StatusNotFound, Message: "empty title after normalization"}, nil
	}
	runKey := "release:" + artistID + ":" + key

	existing, err := e.store.FindByNormalizedTitle(ctx, artistID, key)
	if err != nil {
		return ReleaseOutcome{}, fmt.Errorf("local release lookup: %w", err)
	}
	if existing != nil {
		return ReleaseOutcome{Status: StatusFound, Release: existing}, nil
	}

	if !queryProviders {
		return ReleaseOutcome{Status: StatusNotFound, Message: fmt.Sprintf("release %q not in library", query.Name)}, nil
	}

	unlock := runCtx.LockKey(runKey)
	defer unlock()

	if id, ok := runCtx.Get(runKey); ok {
		r, err := e.store.GetByID(ctx, id)
		if err != nil {
			return ReleaseOutcome{}, fmt.Errorf("rereading run-context release: %w", err)
		}
		return ReleaseOutcome{Status: StatusFound, Release: r}, nil
	}

	accepted, err := e.queryProviders(ctx, query)
	if err != nil {
		return ReleaseOutcome{}, err
	}
	if len(accepted) == 0 {
		return ReleaseOutcome{Status: StatusNotFound, Message: fmt.Sprintf("no provider resolved release %q", query.Name)}, nil
	}

	merged := metadata.MergeReleases(accepted)
	record := releaseFromResult(artistID, merged)
	if err := e.store.Create(ctx, record); err != nil {
		if database.IsUniqueViolation(err) {
			existing, rerr := e.store.FindByNormalizedTitle(ctx, artistID, key)
			if rerr != nil || existing == nil {
				return ReleaseOutcome{}, fmt.Errorf("rereading after duplicate insert: %w", err)
			}
			runCtx.Put(runKey, existing.ID)
			return ReleaseOutcome{Status: StatusFound, Release: existing}, nil
		}
		return ReleaseOutcome{}, fmt.Errorf("persisting release: %w", err)
	}

	runCtx.Put(runKey, record.ID)
	e.logger.Info("release added",
		slog.String("title", record.Title),
		slog.String("artist_id", artistID),
		slog.String("id", record.ID),
		slog.Int("sources", len(accepted)))
	return ReleaseOutcome{Status: StatusAdded, Release: record}, nil
}

// Refresh re-queries providers for an existing release and applies the
// merged result onto the stored record. The artist name hint comes from the
// caller so the engine does not depend on the artist store.
func (e *ReleaseEngine) Refresh(ctx context.Context, id, artistName string, overwrite bool) (ReleaseOutcome, error) {
	r, err := e.store.GetByID(ctx, id)
	if err != nil {
		return ReleaseOutcome{}, fmt.Errorf("loading release for refresh: %w", err)
	}

	query := metadata.NewQuery(r.Title, e.cfg.ResultCount).WithArtist(artistName)
	accepted, err := e.queryProviders(ctx, query)
	if err != nil {
		return ReleaseOutcome{}, err
	}
	if len(accepted) == 0 {
		return ReleaseOutcome{Status: StatusNotFound, Release: r, Message: fmt.Sprintf("no provider resolved release %q", r.Title)}, nil
	}

	merged := metadata.MergeReleases(accepted)
	if !FillRelease(r, merged, overwrite) {
		return ReleaseOutcome{Status: StatusFound, Release: r, Message: "no new data"}, nil
	}
	if err := e.store.Update(ctx, r); err != nil {
		return ReleaseOutcome{}, fmt.Errorf("updating release: %w", err)
	}
	e.logger.Info("release refreshed",
		slog.String("title", r.Title),
		slog.String("id", r.ID),
		slog.Int("sources", len(accepted)),
		slog.Bool("overwrite", overwrite))
	return ReleaseOutcome{Status: StatusFound, Release: r}, nil
}

func (e *ReleaseEngine) queryProviders(ctx context.Context, query metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
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

func (e *ReleaseEngine) fallback(ctx context.Context, providers []metadata.Provider, query metadata.SearchQuery) []metadata.ReleaseResult {
	for _, p := range providers {
		accepted := e.searchOne(ctx, p, query)
		if len(accepted) > 0 {
			return accepted
		}
	}
	return nil
}

func (e *ReleaseEngine) fanOutAll(ctx context.Context, providers []metadata.Provider, query metadata.SearchQuery) []metadata.ReleaseResult {
	perProvider := make([][]metadata.ReleaseResult, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p metadata.Provider) {
			defer wg.Done()
			perProvider[i] = e.searchOne(ctx, p, query)
		}(i, p)
	}
	wg.Wait()

	var accepted []metadata.ReleaseResult
	for _, results := range perProvider {
		accepted = append(accepted, results...)
	}
	return accepted
}

func (e *ReleaseEngine) searchOne(ctx context.Context, p metadata.Provider, query metadata.SearchQuery) []metadata.ReleaseResult {
	results, err := p.SearchRelease(ctx, query)
	if err != nil {
		e.logger.Warn("provider search failed",
			slog.String("provider", string(p.Name())),
			slog.String("query", query.Name),
			slog.String("error", err.Error()))
		return nil
	}

	var accepted []metadata.ReleaseResult
	for _, r := range results {
		if releaseMatches(query, r) {
			accepted = append(accepted, r)
		}
	}
	return accepted
}

func releaseMatches(query metadata.SearchQuery, r metadata.ReleaseResult) bool {
	if !r.HasTitle() {
		return false
	}
	if normalize.Accept(query.Name, r.Title, query.Exact) {
		return true
	}
	for _, alt := range r.AlternateNames {
		if normalize.Accept(query.Name, alt, query.Exact) {
			return true
		}
	}
	return false
}

func releaseFromResult(artistID string, r metadata.ReleaseResult) *release.Release {
	return &release.Release{
		ArtistID:       artistID,
		Title:          r.Title,
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
		ReleaseDate:    r.ReleaseDate,
		ReleaseType:    r.ReleaseType,
		TrackCount:     r.TrackCount,
	}
}
