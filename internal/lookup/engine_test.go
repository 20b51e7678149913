package lookup

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"tonearm/internal/artist"
	"tonearm/internal/config"
	"tonearm/internal/database"
	"tonearm/internal/encryption"
	"tonearm/internal/metadata"
	"tonearm/internal/release"
)

type fakeProvider struct {
	name     metadata.ProviderName
	artists  []metadata.ArtistResult
	releases []metadata.ReleaseResult
	err      error
	calls    atomic.Int32
}

func (f *fakeProvider) Name() metadata.ProviderName { return f.name }
func (f *fakeProvider) RequiresAuth() bool          { return false }

func (f *fakeProvider) SearchArtist(_ context.Context, _ metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	f.calls.Add(1)
	return f.artists, f.err
}

func (f *fakeProvider) SearchRelease(_ context.Context, _ metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
	f.calls.Add(1)
	return f.releases, f.err
}

type testEnv struct {
	db       *sql.DB
	cfg      *config.Config
	settings *metadata.SettingsService
	registry *metadata.Registry
	artists  *artist.Service
	releases *release.Service
	logger   *slog.Logger
}

func setupEnv(t *testing.T, policy string) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.Lookup.Policy = policy
	enc, _, _ := encryption.NewEncryptor("")
	return &testEnv{
		db:       db,
		cfg:      cfg,
		settings: metadata.NewSettingsService(db, enc, cfg),
		registry: metadata.NewRegistry(),
		artists:  artist.NewService(db),
		releases: release.NewService(db),
		logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func (env *testEnv) artistEngine() *ArtistEngine {
	return NewArtistEngine(env.artists, env.registry, env.settings, env.cfg.Lookup, env.logger)
}

func (env *testEnv) releaseEngine() *ReleaseEngine {
	return NewReleaseEngine(env.releases, env.registry, env.settings, env.cfg.Lookup, env.logger)
}

func TestArtistLocalHitSkipsProviders(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	if err := env.artists.Create(ctx, &artist.Artist{Name: "Radiohead"}); err != nil {
		t.Fatalf("seeding artist: %v", err)
	}
	mb := &fakeProvider{name: metadata.NameMusicBrainz}
	env.registry.Register(mb)

	out, err := env.artistEngine().GetByName(ctx, "radiohead", true, NewRunContext())
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if out.Status != StatusFound || out.Artist == nil || out.Artist.Name != "Radiohead" {
		t.Fatalf("expected local hit, got %+v", out)
	}
	if mb.calls.Load() != 0 {
		t.Errorf("providers must not be queried on local hit, got %d calls", mb.calls.Load())
	}
}

func TestArtistNotFoundWhenProvidersNotRequested(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	mb := &fakeProvider{name: metadata.NameMusicBrainz, artists: []metadata.ArtistResult{
		{Source: metadata.NameMusicBrainz, Name: "Radiohead"},
	}}
	env.registry.Register(mb)

	out, err := env.artistEngine().GetByName(context.Background(), "Radiohead", false, NewRunContext())
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if out.Status != StatusNotFound {
		t.Fatalf("expected not found without provider fallback, got %+v", out)
	}
	if mb.calls.Load() != 0 {
		t.Errorf("providers must not be queried, got %d calls", mb.calls.Load())
	}
}

func TestArtistFallbackStopsAtFirstAcceptance(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	mb := &fakeProvider{name: metadata.NameMusicBrainz, artists: []metadata.ArtistResult{
		{Source: metadata.NameMusicBrainz, Name: "Radiohead", MusicBrainzID: "mbid-1"},
	}}
	it := &fakeProvider{name: metadata.NameITunes, artists: []metadata.ArtistResult{
		{Source: metadata.NameITunes, Name: "Radiohead", ITunesID: "657515"},
	}}
	env.registry.Register(mb)
	env.registry.Register(it)

	out, err := env.artistEngine().GetByName(ctx, "Radiohead", true, NewRunContext())
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if out.Status != StatusAdded {
		t.Fatalf("expected added, got %+v", out)
	}
	if out.Artist.MusicBrainzID != "mbid-1" {
		t.Errorf("expected MusicBrainz data, got %+v", out.Artist)
	}
	if it.calls.Load() != 0 {
		t.Errorf("fallback must stop at first acceptance, iTunes got %d calls", it.calls.Load())
	}
}

func TestArtistFanOutMergesAllProviders(t *testing.T) {
	env := setupEnv(t, config.PolicyFanOut)
	ctx := context.Background()

	// Default priority runs musicbrainz before itunes before wikipedia.
	mb := &fakeProvider{name: metadata.NameMusicBrainz}
	it := &fakeProvider{name: metadata.NameITunes, artists: []metadata.ArtistResult{
		{Source: metadata.NameITunes, Name: "Radiohead", Profile: "bio", ImageURLs: []string{"a.jpg"}},
	}}
	wiki := &fakeProvider{name: metadata.NameWikipedia, artists: []metadata.ArtistResult{
		{Source: metadata.NameWikipedia, Name: "Radiohead", Tags: []string{"rock"}},
	}}
	env.registry.Register(mb)
	env.registry.Register(it)
	env.registry.Register(wiki)

	out, err := env.artistEngine().GetByName(ctx, "Radiohead", true, NewRunContext())
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if out.Status != StatusAdded {
		t.Fatalf("expected added, got %+v", out)
	}
	a := out.Artist
	if a.Name != "Radiohead" || a.Profile != "bio" {
		t.Errorf("unexpected merge: %+v", a)
	}
	if len(a.ImageURLs) != 1 || a.ImageURLs[0] != "a.jpg" {
		t.Errorf("expected images [a.jpg], got %v", a.ImageURLs)
	}
	if len(a.Tags) != 1 || a.Tags[0] != "rock" {
		t.Errorf("expected tags [rock], got %v", a.Tags)
	}
	if mb.calls.Load() != 1 || it.calls.Load() != 1 || wiki.calls.Load() != 1 {
		t.Errorf("fan-out must query every provider once: %d/%d/%d",
			mb.calls.Load(), it.calls.Load(), wiki.calls.Load())
	}

	// Exactly one row persisted.
	var count int
	if err := env.db.QueryRow("SELECT COUNT(*) FROM artists").Scan(&count); err != nil {
		t.Fatalf("counting artists: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 artist row, got %d", count)
	}
}

func TestArtistFailureIsolation(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	mb := &fakeProvider{name: metadata.NameMusicBrainz, err: &metadata.ErrProviderUnavailable{
		Provider: metadata.NameMusicBrainz, Cause: errors.New("connection refused"),
	}}
	it := &fakeProvider{name: metadata.NameITunes, artists: []metadata.ArtistResult{
		{Source: metadata.NameITunes, Name: "Radiohead", ITunesID: "657515"},
	}}
	env.registry.Register(mb)
	env.registry.Register(it)

	out, err := env.artistEngine().GetByName(ctx, "Radiohead", true, NewRunContext())
	if err != nil {
		t.Fatalf("provider failure must not cross the engine boundary: %v", err)
	}
	if out.Status != StatusAdded || out.Artist.ITunesID != "657515" {
		t.Fatalf("expected added from fallback provider, got %+v", out)
	}
}

func TestArtistExactMatchFilter(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	mb := &fakeProvider{name: metadata.NameMusicBrainz, artists: []metadata.ArtistResult{
		{Source: metadata.NameMusicBrainz, Name: "Diana Ross & The Supremes"},
		{Source: metadata.NameMusicBrainz, Name: "Diana Ross", MusicBrainzID: "mbid-dr"},
	}}
	env.registry.Register(mb)

	out, err := env.artistEngine().GetByName(ctx, `"Diana Ross"`, true, NewRunContext())
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if out.Status != StatusAdded {
		t.Fatalf("expected added, got %+v", out)
	}
	if out.Artist.Name != "Diana Ross" {
		t.Errorf("quoted query must reject near-matches, got %q", out.Artist.Name)
	}
}

func TestArtistLooseMatchAcceptsPrefix(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	mb := &fakeProvider{name: metadata.NameMusicBrainz, artists: []metadata.ArtistResult{
		{Source: metadata.NameMusicBrainz, Name: "Diana Ross & The Supremes"},
	}}
	env.registry.Register(mb)

	out, err := env.artistEngine().GetByName(ctx, "Diana Ross", true, NewRunContext())
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if out.Status != StatusAdded {
		t.Fatalf("loose query must accept word-boundary prefix, got %+v", out)
	}
}

func TestArtistNotFoundIsNotAnError(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	env.registry.Register(&fakeProvider{name: metadata.NameMusicBrainz})

	out, err := env.artistEngine().GetByName(context.Background(), "Nonexistent Band", true, NewRunContext())
	if err != nil {
		t.Fatalf("miss must not be an error: %v", err)
	}
	if out.Status != StatusNotFound || out.Message == "" {
		t.Fatalf("expected not found with message, got %+v", out)
	}
}

func TestArtistIdempotentWithinRun(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	mb := &fakeProvider{name: metadata.NameMusicBrainz, artists: []metadata.ArtistResult{
		{Source: metadata.NameMusicBrainz, Name: "Radiohead"},
	}}
	env.registry.Register(mb)
	engine := env.artistEngine()
	runCtx := NewRunContext()

	first, err := engine.GetByName(ctx, "Radiohead", true, runCtx)
	if err != nil {
		t.Fatalf("first GetByName: %v", err)
	}
	second, err := engine.GetByName(ctx, "Radiohead", true, runCtx)
	if err != nil {
		t.Fatalf("second GetByName: %v", err)
	}
	if first.Status != StatusAdded || second.Status != StatusFound {
		t.Fatalf("expected added then found, got %s then %s", first.Status, second.Status)
	}
	if first.Artist.ID != second.Artist.ID {
		t.Errorf("identity changed between calls: %s vs %s", first.Artist.ID, second.Artist.ID)
	}
	if mb.calls.Load() != 1 {
		t.Errorf("expected a single provider call, got %d", mb.calls.Load())
	}
}

// invisibleStore hides inserted records from FindByNormalizedName, modeling
// a store where the first insert is not yet visible to local lookup.
type invisibleStore struct {
	records map[string]*artist.Artist
}

func (s *invisibleStore) FindByNormalizedName(_ context.Context, _ string) (*artist.Artist, error) {
	return nil, nil
}

func (s *invisibleStore) GetByID(_ context.Context, id string) (*artist.Artist, error) {
	a, ok := s.records[id]
	if !ok {
		return nil, errors.New("artist not found")
	}
	return a, nil
}

func (s *invisibleStore) Create(_ context.Context, a *artist.Artist) error {
	a.ID = "fixed-id"
	s.records[a.ID] = a
	return nil
}

func (s *invisibleStore) Update(_ context.Context, a *artist.Artist) error {
	s.records[a.ID] = a
	return nil
}

func TestArtistRunContextSuppressesDuplicateInsert(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	mb := &fakeProvider{name: metadata.NameMusicBrainz, artists: []metadata.ArtistResult{
		{Source: metadata.NameMusicBrainz, Name: "Radiohead"},
	}}
	env.registry.Register(mb)

	store := &invisibleStore{records: make(map[string]*artist.Artist)}
	engine := NewArtistEngine(store, env.registry, env.settings, env.cfg.Lookup, env.logger)
	runCtx := NewRunContext()

	first, err := engine.GetByName(ctx, "Radiohead", true, runCtx)
	if err != nil {
		t.Fatalf("first GetByName: %v", err)
	}
	second, err := engine.GetByName(ctx, "Radiohead", true, runCtx)
	if err != nil {
		t.Fatalf("second GetByName: %v", err)
	}
	if first.Status != StatusAdded || second.Status != StatusFound {
		t.Fatalf("expected added then found, got %s then %s", first.Status, second.Status)
	}
	if mb.calls.Load() != 1 {
		t.Errorf("second call must make zero provider calls, total %d", mb.calls.Load())
	}
	if len(store.records) != 1 {
		t.Errorf("expected a single insert, got %d", len(store.records))
	}
}

// racingStore reports a unique violation on insert, modeling a concurrent
// writer outside this run context.
type racingStore struct {
	existing *artist.Artist
	reads    int
}

func (s *racingStore) FindByNormalizedName(_ context.Context, _ string) (*artist.Artist, error) {
	s.reads++
	if s.reads == 1 {
		return nil, nil
	}
	return s.existing, nil
}

func (s *racingStore) GetByID(_ context.Context, _ string) (*artist.Artist, error) {
	return s.existing, nil
}

func (s *racingStore) Create(_ context.Context, _ *artist.Artist) error {
	return errors.New("constraint failed: UNIQUE constraint failed: artists.normalized_name")
}

func (s *racingStore) Update(_ context.Context, _ *artist.Artist) error { return nil }

func TestArtistDuplicateInsertRaceReturnsExisting(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	mb := &fakeProvider{name: metadata.NameMusicBrainz, artists: []metadata.ArtistResult{
		{Source: metadata.NameMusicBrainz, Name: "Radiohead"},
	}}
	env.registry.Register(mb)

	store := &racingStore{existing: &artist.Artist{ID: "winner-id", Name: "Radiohead"}}
	engine := NewArtistEngine(store, env.registry, env.settings, env.cfg.Lookup, env.logger)

	out, err := engine.GetByName(ctx, "Radiohead", true, NewRunContext())
	if err != nil {
		t.Fatalf("unique violation must resolve to the existing record: %v", err)
	}
	if out.Status != StatusFound || out.Artist.ID != "winner-id" {
		t.Fatalf("expected existing record, got %+v", out)
	}
}

func TestReleaseLookupScopedToArtist(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)
	ctx := context.Background()

	owner := &artist.Artist{Name: "Radiohead"}
	if err := env.artists.Create(ctx, owner); err != nil {
		t.Fatalf("seeding artist: %v", err)
	}

	mb := &fakeProvider{name: metadata.NameMusicBrainz, releases: []metadata.ReleaseResult{
		{Source: metadata.NameMusicBrainz, Title: "OK Computer", ReleaseDate: "1997-06-16", TrackCount: 12},
	}}
	env.registry.Register(mb)
	engine := env.releaseEngine()
	runCtx := NewRunContext()

	out, err := engine.GetByTitle(ctx, owner.ID, owner.Name, "OK Computer", true, runCtx)
	if err != nil {
		t.Fatalf("GetByTitle: %v", err)
	}
	if out.Status != StatusAdded {
		t.Fatalf("expected added, got %+v", out)
	}
	if out.Release.ArtistID != owner.ID || out.Release.TrackCount != 12 {
		t.Errorf("unexpected release: %+v", out.Release)
	}

	// Second lookup hits the store.
	out, err = engine.GetByTitle(ctx, owner.ID, owner.Name, "ok computer", true, runCtx)
	if err != nil {
		t.Fatalf("second GetByTitle: %v", err)
	}
	if out.Status != StatusFound {
		t.Fatalf("expected found, got %+v", out)
	}
	if mb.calls.Load() != 1 {
		t.Errorf("expected a single provider call, got %d", mb.calls.Load())
	}
}

func TestReleaseNotFoundWithoutProviders(t *testing.T) {
	env := setupEnv(t, config.PolicyFallback)

	out, err := env.releaseEngine().GetByTitle(context.Background(), "artist-1", "Radiohead", "OK Computer", false, NewRunContext())
	if err != nil {
		t.Fatalf("GetByTitle: %v", err)
	}
	if out.Status != StatusNotFound {
		t.Fatalf("expected not found, got %+v", out)
	}
}
