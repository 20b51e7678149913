package wikipedia

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
		case r.URL.Path == "/w/rest.php/v1/search/page":
			if strings.Contains(r.URL.Query().Get("q"), "OK Computer") {
				w.Write(loadFixture(t, "search_okcomputer.json"))
				return
			}
			w.Write(loadFixture(t, "search_radiohead.json"))
		case r.URL.Path == "/api/rest_v1/page/summary/Radiohead":
			w.Write(loadFixture(t, "summary_radiohead.json"))
		case r.URL.Path == "/api/rest_v1/page/summary/OK_Computer":
			w.Write(loadFixture(t, "summary_okcomputer.json"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(config.ProviderConfig{}, metadata.NewRateLimiterMap(), logger, baseURL)
}

func TestName(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.Name() != metadata.NameWikipedia {
		t.Errorf("expected %s, got %s", metadata.NameWikipedia, a.Name())
	}
	if a.RequiresAuth() {
		t.Error("Wikipedia should not require auth")
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

	r := results[0]
	if r.Name != "Radiohead" {
		t.Errorf("expected name Radiohead, got %s", r.Name)
	}
	if !strings.Contains(r.Profile, "Abingdon") {
		t.Errorf("expected extract as profile, got %q", r.Profile)
	}
	if r.ThumbnailURL != "https://upload.wikimedia.org/wikipedia/commons/thumb/rh.jpg/320px-rh.jpg" {
		t.Errorf("expected summary thumbnail, got %s", r.ThumbnailURL)
	}
	if len(r.URLs) != 1 || r.URLs[0] != "https://en.wikipedia.org/wiki/Radiohead" {
		t.Errorf("unexpected URLs: %v", r.URLs)
	}

	// Later hits carry only the search summary, with the protocol-relative
	// thumbnail resolved.
	if results[1].Profile != "" {
		t.Errorf("expected no profile on secondary hit, got %q", results[1].Profile)
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
	if !strings.Contains(r.Profile, "third studio album") {
		t.Errorf("expected extract as profile, got %q", r.Profile)
	}

	// Disambiguation suffix stripped from page titles.
	if results[1].Title != "OK Computer OKNOTOK 1997 2017" {
		t.Errorf("expected disambiguation stripped, got %q", results[1].Title)
	}
}

func TestSearchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.SearchArtist(context.Background(), metadata.NewQuery("Radiohead", 0))
	if err == nil {
		t.Fatal("expected error for HTTP 503")
	}
	if _, ok := err.(*metadata.ErrProviderUnavailable); !ok {
		t.Errorf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
}

func TestAbsoluteURL(t *testing.T) {
	if got := absoluteURL("//host/img.jpg"); got != "https://host/img.jpg" {
		t.Errorf("absoluteURL = %q", got)
	}
	if got := absoluteURL("https://host/img.jpg"); got != "https://host/img.jpg" {
		t.Errorf("absoluteURL kept = %q", got)
	}
}

func TestStripDisambiguation(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"OK Computer (Radiohead album)", "OK Computer"},
		{"OK Computer", "OK Computer"},
		{"(Untitled)", "(Untitled)"},
	}
	for _, c := range cases {
		if got := stripDisambiguation(c.input); got != c.want {
			t.Errorf("stripDisambiguation(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}
