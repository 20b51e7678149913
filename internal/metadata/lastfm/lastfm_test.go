package lastfm

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/encryption"
	"tonearm/internal/metadata"

	_ "modernc.org/sqlite"
)

func setupTest(t *testing.T, withKey bool) (*metadata.RateLimiterMap, *metadata.SettingsService) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL DEFAULT (datetime('now')))`)
	if err != nil {
		t.Fatalf("creating settings table: %v", err)
	}
	enc, _, _ := encryption.NewEncryptor("")
	settings := metadata.NewSettingsService(db, enc, config.Default())
	if withKey {
		if err := settings.SetAPIKey(context.Background(), metadata.NameLastFM, "test-key", ""); err != nil {
			t.Fatalf("setting test key: %v", err)
		}
	}
	return metadata.NewRateLimiterMap(), settings
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("method") {
		case "artist.search":
			w.Write(loadFixture(t, "artist_search.json"))
		case "artist.getinfo":
			w.Write(loadFixture(t, "artist_info.json"))
		case "album.search":
			w.Write(loadFixture(t, "album_search.json"))
		case "album.getinfo":
			w.Write(loadFixture(t, "album_info.json"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string, withKey bool) *Adapter {
	t.Helper()
	limiter, settings := setupTest(t, withKey)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(config.ProviderConfig{}, limiter, settings, logger, baseURL)
}

func TestSearchArtist(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, true)

	results, err := a.SearchArtist(context.Background(), metadata.NewQuery("Radiohead", 0))
	if err != nil {
		t.Fatalf("SearchArtist: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	r := results[0]
	if r.Name != "Radiohead" {
		t.Errorf("expected name Radiohead, got %s", r.Name)
	}
	if r.MusicBrainzID != "a74b1b7f-71a5-4011-9441-d0b5e4122711" {
		t.Errorf("unexpected MBID: %s", r.MusicBrainzID)
	}
	if strings.Contains(r.Profile, "Read more on Last.fm") {
		t.Errorf("attribution link not stripped from bio: %q", r.Profile)
	}
	if !strings.Contains(r.Profile, "Abingdon") {
		t.Errorf("expected bio from getinfo, got %q", r.Profile)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "alternative" {
		t.Errorf("unexpected tags: %v", r.Tags)
	}
	if r.ThumbnailURL != "https://lastfm.freetls.fastly.net/i/u/300x300/rh.png" {
		t.Errorf("expected largest image as thumbnail, got %s", r.ThumbnailURL)
	}
}

func TestSearchRelease(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, true)

	results, err := a.SearchRelease(context.Background(), metadata.NewQuery("OK Computer", 0).WithArtist("Radiohead"))
	if err != nil {
		t.Fatalf("SearchRelease: %v", err)
	}
	// Hit by the cover band is filtered out by the artist hint.
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Title != "OK Computer" {
		t.Errorf("expected title OK Computer, got %s", r.Title)
	}
	if r.TrackCount != 12 {
		t.Errorf("expected 12 tracks from getinfo, got %d", r.TrackCount)
	}
	if strings.Contains(r.Profile, "Read more on Last.fm") {
		t.Errorf("attribution link not stripped from wiki: %q", r.Profile)
	}
}

func TestSearchArtistNoKey(t *testing.T) {
	a := newTestAdapter(t, "http://localhost", false)

	_, err := a.SearchArtist(context.Background(), metadata.NewQuery("Radiohead", 0))
	if err == nil {
		t.Fatal("expected auth error without key")
	}
	if _, ok := err.(*metadata.ErrAuthRequired); !ok {
		t.Errorf("expected ErrAuthRequired, got %T: %v", err, err)
	}
}

func TestCleanBio(t *testing.T) {
	bio := `Some text. <a href="https://www.last.fm/music/X">Read more on Last.fm</a>`
	if got := cleanBio(bio); got != "Some text." {
		t.Errorf("cleanBio = %q", got)
	}
	if got := cleanBio("plain"); got != "plain" {
		t.Errorf("cleanBio(plain) = %q", got)
	}
}

func TestLargestImage(t *testing.T) {
	images := []ImageEntry{
		{URL: "s.png", Size: "small"},
		{URL: "", Size: "mega"},
		{URL: "xl.png", Size: "extralarge"},
	}
	if got := largestImage(images); got != "xl.png" {
		t.Errorf("largestImage = %q", got)
	}
	if got := largestImage(nil); got != "" {
		t.Errorf("largestImage(nil) = %q", got)
	}
}
