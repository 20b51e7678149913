// Package discogs adapts the Discogs database API to the common metadata
// provider contract. A personal access token is required.
package discogs

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

const defaultBaseURL = "https://api.discogs.com"

// Adapter implements the metadata.Provider interface for Discogs.
type Adapter struct {
	client   *http.Client
	limiter  *metadata.RateLimiterMap
	settings *metadata.SettingsService
	logger   *slog.Logger
	baseURL  string
}

// New creates a Discogs adapter with the default base URL.
func New(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, settings *metadata.SettingsService, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(cfg, limiter, settings, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Discogs adapter with a custom base URL (for testing).
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
		logger:   logger.With(slog.String("provider", "discogs")),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() metadata.ProviderName { return metadata.NameDiscogs }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// SearchArtist searches Discogs and fetches full detail for the best hit.
func (a *Adapter) SearchArtist(ctx context.Context, query metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	token, err := a.getToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":        {query.Name},
		"type":     {"artist"},
		"per_page": {strconv.Itoa(query.Limit)},
	}
	reqURL := a.baseURL + "/database/search?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, token)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]metadata.ArtistResult, 0, len(resp.Results))
	for i, hit := range resp.Results {
		if i == 0 && hit.ID != 0 {
			if detail, err := a.getArtist(ctx, hit.ID, token); err == nil {
				results = append(results, *detail)
				continue
			}
		}
		results = append(results, metadata.ArtistResult{
			Source:       metadata.NameDiscogs,
			Name:         hit.Title,
			DiscogsID:    strconv.Itoa(hit.ID),
			ThumbnailURL: hit.Thumb,
		})
	}
	return results, nil
}

// SearchRelease searches Discogs releases, scoped by artist when hinted.
func (a *Adapter) SearchRelease(ctx context.Context, query metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
	token, err := a.getToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"release_title": {query.Name},
		"type":          {"release"},
		"per_page":      {strconv.Itoa(query.Limit)},
	}
	if query.ArtistName != "" {
		params.Set("artist", query.ArtistName)
	}
	reqURL := a.baseURL + "/database/search?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, token)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]metadata.ReleaseResult, 0, len(resp.Results))
	for i, hit := range resp.Results {
		if i == 0 && hit.ID != 0 {
			if detail, err := a.getRelease(ctx, hit.ID, token); err == nil {
				results = append(results, *detail)
				continue
			}
		}
		r := metadata.ReleaseResult{
			Source:       metadata.NameDiscogs,
			Title:        splitReleaseTitle(hit.Title),
			DiscogsID:    strconv.Itoa(hit.ID),
			ReleaseDate:  hit.Year,
			ThumbnailURL: hit.Thumb,
			Tags:         append([]string{}, hit.Genre...),
		}
		for _, bc := range hit.Barcode {
			if bc != "" {
				r.Tags = append(r.Tags, "barcode:"+bc)
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// TestConnection verifies the personal access token is valid.
func (a *Adapter) TestConnection(ctx context.Context) error {
	token, err := a.getToken(ctx)
	if err != nil {
		return err
	}
	reqURL := a.baseURL + "/database/search?q=test&type=artist&per_page=1"
	_, err = a.doRequest(ctx, reqURL, token)
	return err
}

// getArtist fetches full metadata for an artist by Discogs ID.
func (a *Adapter) getArtist(ctx context.Context, id int, token string) (*metadata.ArtistResult, error) {
	reqURL := fmt.Sprintf("%s/artists/%d", a.baseURL, id)
	body, err := a.doRequest(ctx, reqURL, token)
	if err != nil {
		return nil, err
	}

	var detail ArtistDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("parsing artist response: %w", err)
	}

	result := metadata.ArtistResult{
		Source:    metadata.NameDiscogs,
		Name:      detail.Name,
		DiscogsID: strconv.Itoa(detail.ID),
		Profile:   detail.Profile,
		URLs:      append([]string{}, detail.URLs...),
	}

	seen := map[string]bool{strings.ToLower(detail.Name): true}
	addName := func(name string) {
		lower := strings.ToLower(name)
		if name == "" || seen[lower] {
			return
		}
		seen[lower] = true
		result.AlternateNames = append(result.AlternateNames, name)
	}
	addName(detail.RealName)
	for _, v := range detail.NameVariations {
		addName(v)
	}
	for _, alias := range detail.Aliases {
		addName(alias.Name)
	}

	result.ThumbnailURL, result.ImageURLs = pickImages(detail.Images)
	return &result, nil
}

// getRelease fetches full metadata for a release by Discogs ID.
func (a *Adapter) getRelease(ctx context.Context, id int, token string) (*metadata.ReleaseResult, error) {
	reqURL := fmt.Sprintf("%s/releases/%d", a.baseURL, id)
	body, err := a.doRequest(ctx, reqURL, token)
	if err != nil {
		return nil, err
	}

	var detail ReleaseDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}

	result := metadata.ReleaseResult{
		Source:      metadata.NameDiscogs,
		Title:       detail.Title,
		DiscogsID:   strconv.Itoa(detail.ID),
		Profile:     detail.Notes,
		ReleaseDate: releaseDate(&detail),
		TrackCount:  len(detail.Tracklist),
	}

	result.Tags = append(result.Tags, detail.Genres...)
	result.Tags = append(result.Tags, detail.Styles...)
	for _, label := range detail.Labels {
		if label.Name != "" {
			result.Tags = append(result.Tags, "label:"+label.Name)
		}
	}
	for _, ident := range detail.Identifiers {
		if ident.Type == "Barcode" && ident.Value != "" {
			result.Tags = append(result.Tags, "barcode:"+ident.Value)
		}
	}

	result.ThumbnailURL, result.ImageURLs = pickImages(detail.Images)
	return &result, nil
}

func (a *Adapter) getToken(ctx context.Context) (string, error) {
	token, err := a.settings.GetAPIKey(ctx, metadata.NameDiscogs)
	if err != nil {
		return "", fmt.Errorf("getting API token: %w", err)
	}
	if token == "" {
		return "", &metadata.ErrAuthRequired{Provider: metadata.NameDiscogs}
	}
	return token, nil
}

func (a *Adapter) doRequest(ctx context.Context, reqURL, token string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, metadata.NameDiscogs); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameDiscogs,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Discogs token="+token)
	req.Header.Set("User-Agent", "Tonearm/"+version.Version)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameDiscogs,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, &metadata.ErrNotFound{Provider: metadata.NameDiscogs, Query: reqURL}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &metadata.ErrAuthRequired{Provider: metadata.NameDiscogs}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameDiscogs,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// pickImages returns the primary image as thumbnail, falling back to the
// first non-empty URI, plus the full image list.
func pickImages(images []Image) (thumbnail string, urls []string) {
	for _, img := range images {
		if img.URI == "" {
			continue
		}
		urls = append(urls, img.URI)
		if thumbnail == "" && img.Type == "primary" {
			thumbnail = img.URI
		}
	}
	if thumbnail == "" && len(urls) > 0 {
		thumbnail = urls[0]
	}
	return thumbnail, urls
}

// releaseDate prefers the full released date over the bare year.
func releaseDate(d *ReleaseDetail) string {
	if d.Released != "" {
		return d.Released
	}
	if d.Year > 0 {
		return strconv.Itoa(d.Year)
	}
	return ""
}

// splitReleaseTitle strips the "Artist - Title" prefix Discogs puts on
// release search hits.
func splitReleaseTitle(title string) string {
	if _, after, found := strings.Cut(title, " - "); found {
		return after
	}
	return title
}
