// Package lastfm adapts the Last.fm web service to the common metadata
// provider contract. An API key is required.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tonearm/internal/config"
	"tonearm/internal/metadata"
	"tonearm/internal/version"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Adapter implements the metadata.Provider interface for Last.fm.
type Adapter struct {
	client   *http.Client
	limiter  *metadata.RateLimiterMap
	settings *metadata.SettingsService
	logger   *slog.Logger
	baseURL  string
}

// New creates a Last.fm adapter with the default base URL.
func New(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, settings *metadata.SettingsService, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(cfg, limiter, settings, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, settings *metadata.SettingsService, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.ReadWriteTimeout(),
			},
		},
		limiter:  limiter,
		settings: settings,
		logger:   logger.With(slog.String("provider", "lastfm")),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() metadata.ProviderName { return metadata.NameLastFM }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// SearchArtist searches Last.fm and fetches getinfo detail for the best hit.
func (a *Adapter) SearchArtist(ctx context.Context, query metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	apiKey, err := a.getAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"method":  {"artist.search"},
		"artist":  {query.Name},
		"api_key": {apiKey},
		"format":  {"json"},
		"limit":   {strconv.Itoa(query.Limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	hits := resp.Results.ArtistMatches.Artist
	results := make([]metadata.ArtistResult, 0, len(hits))
	for i, hit := range hits {
		if i == 0 && hit.Name != "" {
			if detail, err := a.getArtistInfo(ctx, hit.Name, apiKey); err == nil {
				results = append(results, *detail)
				continue
			}
		}
		r := metadata.ArtistResult{
			Source:        metadata.NameLastFM,
			Name:          hit.Name,
			MusicBrainzID: hit.MBID,
		}
		if hit.URL != "" {
			r.URLs = []string{hit.URL}
		}
		results = append(results, r)
	}
	return results, nil
}

// SearchRelease searches Last.fm albums and fetches getinfo detail for the
// best hit.
func (a *Adapter) SearchRelease(ctx context.Context, query metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
	apiKey, err := a.getAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"method":  {"album.search"},
		"album":   {query.Name},
		"api_key": {apiKey},
		"format":  {"json"},
		"limit":   {strconv.Itoa(query.Limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp AlbumSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing album search response: %w", err)
	}

	hits := resp.Results.AlbumMatches.Album
	results := make([]metadata.ReleaseResult, 0, len(hits))
	for i, hit := range hits {
		// album.search has no artist filter; drop hits credited to a
		// different artist when the caller gave one.
		if query.ArtistName != "" && hit.Artist != "" && !strings.EqualFold(hit.Artist, query.ArtistName) {
			continue
		}
		if i == 0 && hit.Name != "" {
			if detail, err := a.getAlbumInfo(ctx, hit.Artist, hit.Name, apiKey); err == nil {
				results = append(results, *detail)
				continue
			}
		}
		r := metadata.ReleaseResult{
			Source:        metadata.NameLastFM,
			Title:         hit.Name,
			MusicBrainzID: hit.MBID,
			ThumbnailURL:  largestImage(hit.Image),
		}
		if hit.URL != "" {
			r.URLs = []string{hit.URL}
		}
		results = append(results, r)
	}
	return results, nil
}

// TestConnection verifies the API key is valid.
func (a *Adapter) TestConnection(ctx context.Context) error {
	apiKey, err := a.getAPIKey(ctx)
	if err != nil {
		return err
	}
	params := url.Values{
		"method":  {"artist.search"},
		"artist":  {"test"},
		"api_key": {apiKey},
		"format":  {"json"},
		"limit":   {"1"},
	}
	_, err = a.doRequest(ctx, a.baseURL+"/?"+params.Encode())
	return err
}

// getArtistInfo fetches the full artist.getinfo record by name.
func (a *Adapter) getArtistInfo(ctx context.Context, name, apiKey string) (*metadata.ArtistResult, error) {
	params := url.Values{
		"method":  {"artist.getinfo"},
		"artist":  {name},
		"api_key": {apiKey},
		"format":  {"json"},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp InfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing artist info: %w", err)
	}
	if resp.Artist.Name == "" {
		return nil, &metadata.ErrNotFound{Provider: metadata.NameLastFM, Query: name}
	}

	info := resp.Artist
	result := metadata.ArtistResult{
		Source:        metadata.NameLastFM,
		Name:          info.Name,
		MusicBrainzID: info.MBID,
		Profile:       cleanBio(info.Bio.Content),
		ThumbnailURL:  largestImage(info.Image),
	}
	for _, tag := range info.Tags.Tag {
		if tag.Name != "" {
			result.Tags = append(result.Tags, tag.Name)
		}
	}
	if info.URL != "" {
		result.URLs = []string{info.URL}
	}
	return &result, nil
}

// getAlbumInfo fetches the full album.getinfo record by artist and title.
func (a *Adapter) getAlbumInfo(ctx context.Context, artist, album, apiKey string) (*metadata.ReleaseResult, error) {
	params := url.Values{
		"method":  {"album.getinfo"},
		"artist":  {artist},
		"album":   {album},
		"api_key": {apiKey},
		"format":  {"json"},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp AlbumInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing album info: %w", err)
	}
	if resp.Album.Name == "" {
		return nil, &metadata.ErrNotFound{Provider: metadata.NameLastFM, Query: album}
	}

	info := resp.Album
	result := metadata.ReleaseResult{
		Source:        metadata.NameLastFM,
		Title:         info.Name,
		MusicBrainzID: info.MBID,
		Profile:       cleanBio(info.Wiki.Content),
		ThumbnailURL:  largestImage(info.Image),
		TrackCount:    len(info.Tracks.Track),
	}
	for _, tag := range info.Tags.Tag {
		if tag.Name != "" {
			result.Tags = append(result.Tags, tag.Name)
		}
	}
	if info.URL != "" {
		result.URLs = []string{info.URL}
	}
	return &result, nil
}

func (a *Adapter) getAPIKey(ctx context.Context) (string, error) {
	apiKey, err := a.settings.GetAPIKey(ctx, metadata.NameLastFM)
	if err != nil {
		return "", fmt.Errorf("getting API key: %w", err)
	}
	if apiKey == "" {
		return "", &metadata.ErrAuthRequired{Provider: metadata.NameLastFM}
	}
	return apiKey, nil
}

func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, metadata.NameLastFM); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameLastFM,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Tonearm/"+version.Version)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameLastFM,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrAuthRequired{Provider: metadata.NameLastFM}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameLastFM,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// largestImage picks the biggest sized entry with a non-empty URL.
func largestImage(images []ImageEntry) string {
	order := map[string]int{"small": 1, "medium": 2, "large": 3, "extralarge": 4, "mega": 5}
	best := ""
	bestRank := 0
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		if rank := order[img.Size]; rank > bestRank {
			best = img.URL
			bestRank = rank
		}
	}
	return best
}

// cleanBio removes the Last.fm attribution link appended to bios.
func cleanBio(bio string) string {
	if idx := strings.Index(bio, "<a href=\"https://www.last.fm"); idx > 0 {
		bio = strings.TrimSpace(bio[:idx])
	}
	return bio
}
