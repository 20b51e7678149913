// Package musicbrainz adapts the MusicBrainz web service to the common
// metadata provider contract.
package musicbrainz

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
	"time"

	"tonearm/internal/config"
	"tonearm/internal/metadata"
	"tonearm/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// Adapter implements the metadata.Provider interface for MusicBrainz.
type Adapter struct {
	client  *http.Client
	limiter *metadata.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(cfg, limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.ReadWriteTimeout(),
			},
		},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() metadata.ProviderName { return metadata.NameMusicBrainz }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return false }

// SearchArtist searches MusicBrainz and fetches detail for the best hit.
func (a *Adapter) SearchArtist(ctx context.Context, query metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	params := url.Values{
		"query": {luceneQuote(query.Name)},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(query.Limit)},
	}
	reqURL := a.baseURL + "/artist?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]metadata.ArtistResult, 0, len(resp.Artists))
	for i, hit := range resp.Artists {
		// Detail call only for the top hit; summary fields suffice for the rest.
		if i == 0 && hit.ID != "" {
			if detail, err := a.getArtist(ctx, hit.ID); err == nil {
				results = append(results, *detail)
				continue
			}
		}
		results = append(results, mapArtist(&hit))
	}
	return results, nil
}

// SearchRelease searches MusicBrainz releases, scoped by artist when hinted.
func (a *Adapter) SearchRelease(ctx context.Context, query metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
	q := "release:" + luceneQuote(query.Name)
	if query.ArtistName != "" {
		q += " AND artist:" + luceneQuote(query.ArtistName)
	}
	params := url.Values{
		"query": {q},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(query.Limit)},
	}
	reqURL := a.baseURL + "/release?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp ReleaseSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing release search response: %w", err)
	}

	results := make([]metadata.ReleaseResult, 0, len(resp.Releases))
	for i, hit := range resp.Releases {
		if i == 0 && hit.ID != "" {
			if detail, err := a.getRelease(ctx, hit.ID); err == nil {
				results = append(results, *detail)
				continue
			}
		}
		results = append(results, mapRelease(&hit))
	}
	return results, nil
}

// TestConnection verifies connectivity to the MusicBrainz API.
func (a *Adapter) TestConnection(ctx context.Context) error {
	params := url.Values{
		"query": {"test"},
		"fmt":   {"json"},
		"limit": {"1"},
	}
	_, err := a.doRequest(ctx, a.baseURL+"/artist?"+params.Encode())
	return err
}

// getArtist fetches full metadata for an artist by MBID.
func (a *Adapter) getArtist(ctx context.Context, mbid string) (*metadata.ArtistResult, error) {
	params := url.Values{
		"inc": {"aliases+genres+tags+url-rels"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/artist/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var artist MBArtist
	if err := json.Unmarshal(body, &artist); err != nil {
		return nil, fmt.Errorf("parsing artist response: %w", err)
	}

	result := mapArtist(&artist)
	return &result, nil
}

// getRelease fetches full metadata for a release by MBID.
func (a *Adapter) getRelease(ctx context.Context, mbid string) (*metadata.ReleaseResult, error) {
	params := url.Values{
		"inc": {"release-groups+labels+media+tags+url-rels"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/release/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var release MBRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}

	result := mapRelease(&release)
	return &result, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, metadata.NameMusicBrainz); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameMusicBrainz,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameMusicBrainz,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrNotFound{
			Provider: metadata.NameMusicBrainz,
			Query:    reqURL,
		}
	}

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrProviderUnavailable{
			Provider:   metadata.NameMusicBrainz,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: 2 * time.Second,
		}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameMusicBrainz,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// mapArtist converts a MusicBrainz artist to the common result shape.
func mapArtist(mb *MBArtist) metadata.ArtistResult {
	result := metadata.ArtistResult{
		Source:        metadata.NameMusicBrainz,
		Name:          mb.Name,
		SortName:      mb.SortName,
		MusicBrainzID: mb.ID,
		BirthDate:     mb.LifeSpan.Begin,
	}

	seen := make(map[string]bool)
	for _, alias := range mb.Aliases {
		lower := strings.ToLower(alias.Name)
		if alias.Name == "" || strings.EqualFold(alias.Name, mb.Name) || seen[lower] {
			continue
		}
		seen[lower] = true
		result.AlternateNames = append(result.AlternateNames, alias.Name)
	}

	for _, g := range mb.Genres {
		if g.Name != "" {
			result.Tags = append(result.Tags, g.Name)
		}
	}
	// Fall back to tags if no genres
	if len(result.Tags) == 0 {
		for _, t := range mb.Tags {
			if t.Name != "" && t.Count > 0 {
				result.Tags = append(result.Tags, t.Name)
			}
		}
	}

	for _, rel := range mb.Relations {
		if rel.URL != nil && rel.URL.Resource != "" {
			result.URLs = append(result.URLs, rel.URL.Resource)
		}
	}

	return result
}

// mapRelease converts a MusicBrainz release to the common result shape.
func mapRelease(mb *MBRelease) metadata.ReleaseResult {
	result := metadata.ReleaseResult{
		Source:        metadata.NameMusicBrainz,
		Title:         mb.Title,
		MusicBrainzID: mb.ID,
		ReleaseDate:   mb.Date,
		ReleaseType:   strings.ToLower(mb.ReleaseGroup.PrimaryType),
		TrackCount:    mb.TrackCount,
	}

	if result.TrackCount == 0 {
		for _, m := range mb.Media {
			result.TrackCount += m.TrackCount
		}
	}

	if mb.Barcode != "" {
		result.Tags = append(result.Tags, "barcode:"+mb.Barcode)
	}
	for _, li := range mb.LabelInfo {
		if li.Label.Name != "" {
			result.Tags = append(result.Tags, "label:"+li.Label.Name)
		}
	}
	for _, t := range mb.Tags {
		if t.Name != "" && t.Count > 0 {
			result.Tags = append(result.Tags, t.Name)
		}
	}

	for _, rel := range mb.Relations {
		if rel.URL != nil && rel.URL.Resource != "" {
			result.URLs = append(result.URLs, rel.URL.Resource)
		}
	}

	return result
}

// luceneQuote wraps a term for the MusicBrainz Lucene query syntax.
func luceneQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func userAgent() string {
	return fmt.Sprintf("Tonearm/%s (metadata lookup)", version.Version)
}
