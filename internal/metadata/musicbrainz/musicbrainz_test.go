package musicbrainz

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/metadata"
)

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
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/artist" && r.URL.Query().Get("query") != "":
			query := r.URL.Query().Get("query")
			if strings.Contains(query, "nonexistent-artist-xyz") {
				w.Write([]byte(`{"created":"","count":0,"offset":0,"artists":[]}`))
				return
			}
			w.Write(loadFixture(t, "search_radiohead.json"))

		case strings.HasPrefix(r.URL.Path, "/artist/"):
			mbid := strings.TrimPrefix(r.URL.Path, "/artist/")
			if mbid == "server-error-id" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write(loadFixture(t, "artist_radiohead.json"))

		case r.URL.Path == "/release":
			w.Write(loadFixture(t, "release_search_okcomputer.json"))

		case strings.HasPrefix(r.URL.Path, "/release/"):
			w.Write(loadFixture(t, "release_okcomputer.json"))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := metadata.NewRateLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(config.ProviderConfig{}, limiter, logger, baseURL)
}

func TestName(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.Name() != metadata.NameMusicBrainz {
		t.Errorf("expected %s, got %s", metadata.NameMusicBrainz, a.Name())
	}
}

func TestRequiresAuth(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.RequiresAuth() {
		t.Error("MusicBrainz should not require auth")
	}
}

func TestSearchArtist(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	results, err := a.SearchArtist(context.Background(), metadata.NewQuery("Radiohead", 0))
	if err != nil {
		t.Fatalf("SearchArtist: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Top hit comes from the detail endpoint.
	r := results[0]
	if r.Name != "Radiohead" {
		t.Errorf("expected name Radiohead, got %s", r.Name)
	}
	if r.MusicBrainzID != "a74b1b7f-71a5-4011-9441-d0b5e4122711" {
		t.Errorf("unexpected MBID: %s", r.MusicBrainzID)
	}
	if r.Source != metadata.NameMusicBrainz {
		t.Errorf("expected source musicbrainz, got %s", r.Source)
	}
	if r.BirthDate != "1991" {
		t.Errorf("expected begin date 1991, got %s", r.BirthDate)
	}
	if len(r.AlternateNames) != 1 || r.AlternateNames[0] != "On a Friday" {
		t.Errorf("expected alias On a Friday without self-alias, got %v", r.AlternateNames)
	}
	if len(r.Tags) != 3 || r.Tags[0] != "alternative rock" {
		t.Errorf("expected genres as tags, got %v", r.Tags)
	}
	if len(r.URLs) != 2 || r.URLs[0] != "https://www.radiohead.com/" {
		t.Errorf("unexpected URLs: %v", r.URLs)
	}

	// Second hit keeps the search summary shape.
	if results[1].Name != "Radiohead Tribute Band" {
		t.Errorf("unexpected second result: %s", results[1].Name)
	}
}

func TestSearchArtistEmpty(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	results, err := a.SearchArtist(context.Background(), metadata.NewQuery("nonexistent-artist-xyz", 0))
	if err != nil {
		t.Fatalf("SearchArtist: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestSearchRelease(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	results, err := a.SearchRelease(context.Background(), metadata.NewQuery("OK Computer", 0).WithArtist("Radiohead"))
	if err != nil {
		t.Fatalf("SearchRelease: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	r := results[0]
	if r.Title != "OK Computer" {
		t.Errorf("expected title OK Computer, got %s", r.Title)
	}
	if r.ReleaseDate != "1997-06-16" {
		t.Errorf("expected date 1997-06-16, got %s", r.ReleaseDate)
	}
	if r.ReleaseType != "album" {
		t.Errorf("expected type album, got %s", r.ReleaseType)
	}
	if r.TrackCount != 12 {
		t.Errorf("expected 12 tracks, got %d", r.TrackCount)
	}

	foundBarcode := false
	foundLabel := false
	for _, tag := range r.Tags {
		if tag == "barcode:724385522925" {
			foundBarcode = true
		}
		if tag == "label:Parlophone" {
			foundLabel = true
		}
	}
	if !foundBarcode || !foundLabel {
		t.Errorf("expected barcode and label tags, got %v", r.Tags)
	}
}

func TestSearchArtistServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.SearchArtist(context.Background(), metadata.NewQuery("Radiohead", 0))
	if err == nil {
		t.Fatal("expected error for server error")
	}
	if _, ok := err.(*metadata.ErrProviderUnavailable); !ok {
		t.Errorf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
}

func TestTestConnection(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	if err := a.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.SearchArtist(ctx, metadata.NewQuery("Radiohead", 0))
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created":"","count":0,"offset":0,"artists":[]}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, _ = a.SearchArtist(context.Background(), metadata.NewQuery("test", 0))

	if !strings.HasPrefix(gotUA, "Tonearm/") {
		t.Errorf("expected User-Agent starting with Tonearm/, got %s", gotUA)
	}
}
