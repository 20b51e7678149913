// Package itunes adapts the iTunes Search API to the common metadata
// provider contract. No authentication is required.
package itunes

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

const defaultBaseURL = "https://itunes.apple.com"

// Adapter implements the metadata.Provider interface for the iTunes
// Search API.
type Adapter struct {
	client  *http.Client
	limiter *metadata.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates an iTunes adapter with the default base URL.
func New(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(cfg, limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates an iTunes adapter with a custom base URL (for testing).
func NewWithBaseURL(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.ReadWriteTimeout(),
			},
		},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "itunes")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() metadata.ProviderName { return metadata.NameITunes }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return false }

// SearchArtist searches the iTunes catalog for music artists.
func (a *Adapter) SearchArtist(ctx context.Context, query metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	params := url.Values{
		"term":   {query.Name},
		"entity": {"musicArtist"},
		"media":  {"music"},
		"limit":  {strconv.Itoa(query.Limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]metadata.ArtistResult, 0, len(resp.Results))
	for _, hit := range resp.Results {
		if hit.ArtistName == "" {
			continue
		}
		r := metadata.ArtistResult{
			Source:   metadata.NameITunes,
			Name:     hit.ArtistName,
			ITunesID: strconv.Itoa(hit.ArtistID),
		}
		if hit.PrimaryGenreName != "" {
			r.Tags = []string{hit.PrimaryGenreName}
		}
		if hit.ArtistLinkURL != "" {
			r.URLs = []string{hit.ArtistLinkURL}
		}
		results = append(results, r)
	}
	return results, nil
}

// SearchRelease searches the iTunes catalog for albums.
func (a *Adapter) SearchRelease(ctx context.Context, query metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
	term := query.Name
	if query.ArtistName != "" {
		term = query.ArtistName + " " + term
	}
	params := url.Values{
		"term":   {term},
		"entity": {"album"},
		"media":  {"music"},
		"limit":  {strconv.Itoa(query.Limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]metadata.ReleaseResult, 0, len(resp.Results))
	for _, hit := range resp.Results {
		if hit.CollectionName == "" {
			continue
		}
		if query.ArtistName != "" && hit.ArtistName != "" && !strings.EqualFold(hit.ArtistName, query.ArtistName) {
			continue
		}
		r := metadata.ReleaseResult{
			Source:       metadata.NameITunes,
			Title:        hit.CollectionName,
			ITunesID:     strconv.Itoa(hit.CollectionID),
			ReleaseDate:  trimISODate(hit.ReleaseDate),
			ReleaseType:  strings.ToLower(hit.CollectionType),
			TrackCount:   hit.TrackCount,
			ThumbnailURL: hit.ArtworkURL100,
		}
		if hit.ArtworkURL100 != "" {
			// iTunes artwork URLs scale by rewriting the size suffix.
			r.ImageURLs = []string{strings.Replace(hit.ArtworkURL100, "100x100", "600x600", 1)}
		}
		if hit.PrimaryGenreName != "" {
			r.Tags = []string{hit.PrimaryGenreName}
		}
		if hit.CollectionViewURL != "" {
			r.URLs = []string{hit.CollectionViewURL}
		}
		results = append(results, r)
	}
	return results, nil
}

// TestConnection verifies connectivity to the iTunes Search API.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.doRequest(ctx, a.baseURL+"/search?term=test&entity=musicArtist&limit=1")
	return err
}

func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, metadata.NameITunes); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameITunes,
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
			Provider: metadata.NameITunes,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameITunes,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameITunes,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// trimISODate cuts "2006-01-02T15:04:05Z" timestamps down to the date part.
func trimISODate(s string) string {
	if before, _, found := strings.Cut(s, "T"); found {
		return before
	}
	return s
}
