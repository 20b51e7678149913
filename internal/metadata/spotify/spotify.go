// Package spotify adapts the Spotify Web API to the common metadata
// provider contract. Authentication uses the client credentials flow with
// an application ID and secret.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	spotifyapi "github.com/zmb3/spotify"
	"golang.org/x/oauth2/clientcredentials"

	"tonearm/internal/metadata"
)

// catalogClient is the subset of the Spotify client used by this adapter.
// It allows the concrete client to be replaced in tests.
type catalogClient interface {
	Search(query string, t spotifyapi.SearchType) (*spotifyapi.SearchResult, error)
	GetAlbum(id spotifyapi.ID) (*spotifyapi.FullAlbum, error)
}

// Adapter implements the metadata.Provider interface for Spotify.
type Adapter struct {
	limiter  *metadata.RateLimiterMap
	settings *metadata.SettingsService
	logger   *slog.Logger

	mu     sync.Mutex
	client catalogClient
}

// New creates a Spotify adapter. The underlying client is built lazily on
// first use from the stored credentials.
func New(limiter *metadata.RateLimiterMap, settings *metadata.SettingsService, logger *slog.Logger) *Adapter {
	return &Adapter{
		limiter:  limiter,
		settings: settings,
		logger:   logger.With(slog.String("provider", "spotify")),
	}
}

// NewWithClient creates a Spotify adapter around an existing client (for testing).
func NewWithClient(limiter *metadata.RateLimiterMap, settings *metadata.SettingsService, logger *slog.Logger, client catalogClient) *Adapter {
	a := New(limiter, settings, logger)
	a.client = client
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() metadata.ProviderName { return metadata.NameSpotify }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// SearchArtist searches the Spotify catalog for artists.
func (a *Adapter) SearchArtist(ctx context.Context, query metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.limiter.Wait(ctx, metadata.NameSpotify); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameSpotify,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	res, err := client.Search(query.Name, spotifyapi.SearchTypeArtist)
	if err != nil {
		return nil, a.searchErr(err)
	}
	if res.Artists == nil {
		return nil, nil
	}

	hits := res.Artists.Artists
	if len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}
	results := make([]metadata.ArtistResult, 0, len(hits))
	for _, hit := range hits {
		r := metadata.ArtistResult{
			Source:    metadata.NameSpotify,
			Name:      hit.Name,
			SpotifyID: string(hit.ID),
			Tags:      append([]string{}, hit.Genres...),
		}
		for _, img := range hit.Images {
			if img.URL != "" {
				r.ImageURLs = append(r.ImageURLs, img.URL)
			}
		}
		if len(r.ImageURLs) > 0 {
			r.ThumbnailURL = r.ImageURLs[0]
		}
		if u := hit.ExternalURLs["spotify"]; u != "" {
			r.URLs = []string{u}
		}
		results = append(results, r)
	}
	return results, nil
}

// SearchRelease searches the Spotify catalog for albums, fetching full
// album detail for the best hit.
func (a *Adapter) SearchRelease(ctx context.Context, query metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.limiter.Wait(ctx, metadata.NameSpotify); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameSpotify,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	q := query.Name
	if query.ArtistName != "" {
		q = fmt.Sprintf("album:%s artist:%s", query.Name, query.ArtistName)
	}
	res, err := client.Search(q, spotifyapi.SearchTypeAlbum)
	if err != nil {
		return nil, a.searchErr(err)
	}
	if res.Albums == nil {
		return nil, nil
	}

	hits := res.Albums.Albums
	if len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}
	results := make([]metadata.ReleaseResult, 0, len(hits))
	for i, hit := range hits {
		if i == 0 && hit.ID != "" {
			if detail, err := a.getAlbum(ctx, client, hit.ID); err == nil {
				results = append(results, *detail)
				continue
			}
		}
		results = append(results, mapSimpleAlbum(&hit))
	}
	return results, nil
}

// TestConnection verifies the stored credentials by running a search.
func (a *Adapter) TestConnection(ctx context.Context) error {
	client, err := a.getClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.Search("test", spotifyapi.SearchTypeArtist)
	if err != nil {
		return a.searchErr(err)
	}
	return nil
}

// getAlbum fetches full album detail for a release hit.
func (a *Adapter) getAlbum(ctx context.Context, client catalogClient, id spotifyapi.ID) (*metadata.ReleaseResult, error) {
	if err := a.limiter.Wait(ctx, metadata.NameSpotify); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameSpotify,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}
	album, err := client.GetAlbum(id)
	if err != nil {
		return nil, &metadata.ErrProviderUnavailable{Provider: metadata.NameSpotify, Cause: err}
	}

	result := mapSimpleAlbum(&album.SimpleAlbum)
	result.Tags = append(result.Tags, album.Genres...)
	if upc := album.ExternalIDs["upc"]; upc != "" {
		result.Tags = append(result.Tags, "barcode:"+upc)
	}
	result.TrackCount = len(album.Tracks.Tracks)
	if album.Tracks.Total > result.TrackCount {
		result.TrackCount = album.Tracks.Total
	}
	return &result, nil
}

// getClient returns the cached client, building one from the stored
// credentials on first use.
func (a *Adapter) getClient(ctx context.Context) (catalogClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	clientID, err := a.settings.GetAPIKey(ctx, metadata.NameSpotify)
	if err != nil {
		return nil, fmt.Errorf("getting client ID: %w", err)
	}
	clientSecret, err := a.settings.GetAPISecret(ctx, metadata.NameSpotify)
	if err != nil {
		return nil, fmt.Errorf("getting client secret: %w", err)
	}
	if clientID == "" || clientSecret == "" {
		return nil, &metadata.ErrAuthRequired{Provider: metadata.NameSpotify}
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyapi.TokenURL,
	}
	// Fetch a token eagerly so bad credentials surface as an auth error
	// rather than failing the first search.
	if _, err := config.Token(ctx); err != nil {
		return nil, &metadata.ErrAuthRequired{Provider: metadata.NameSpotify}
	}

	// The cached client outlives this request, so its refreshing token
	// source must not be bound to the request context. Client-credentials
	// tokens expire after about an hour and the source renews them.
	c := spotifyapi.NewClient(config.Client(context.Background()))
	a.client = &c
	a.logger.Debug("spotify client initialized")
	return a.client, nil
}

// InvalidateClient drops the cached client so new credentials take effect.
func (a *Adapter) InvalidateClient() {
	a.mu.Lock()
	a.client = nil
	a.mu.Unlock()
}

// searchErr wraps a catalog error. An authorization failure also drops the
// cached client so the next call rebuilds it from current credentials.
func (a *Adapter) searchErr(err error) error {
	var serr spotifyapi.Error
	if errors.As(err, &serr) && (serr.Status == http.StatusUnauthorized || serr.Status == http.StatusForbidden) {
		a.InvalidateClient()
	}
	return &metadata.ErrProviderUnavailable{Provider: metadata.NameSpotify, Cause: err}
}

func mapSimpleAlbum(album *spotifyapi.SimpleAlbum) metadata.ReleaseResult {
	result := metadata.ReleaseResult{
		Source:      metadata.NameSpotify,
		Title:       album.Name,
		SpotifyID:   string(album.ID),
		ReleaseDate: album.ReleaseDate,
		ReleaseType: album.AlbumType,
	}
	for _, img := range album.Images {
		if img.URL != "" {
			result.ImageURLs = append(result.ImageURLs, img.URL)
		}
	}
	if len(result.ImageURLs) > 0 {
		result.ThumbnailURL = result.ImageURLs[0]
	}
	if u := album.ExternalURLs["spotify"]; u != "" {
		result.URLs = []string{u}
	}
	return result
}
