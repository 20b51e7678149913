// Package wikipedia adapts the Wikipedia REST API to the common metadata
// provider contract. It contributes prose profiles and page links rather
// than structured discography data. No authentication is required.
package wikipedia

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

const defaultBaseURL = "https://en.wikipedia.org"

// Adapter implements the metadata.Provider interface for Wikipedia.
type Adapter struct {
	client  *http.Client
	limiter *metadata.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Wikipedia adapter with the default base URL.
func New(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(cfg, limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Wikipedia adapter with a custom base URL (for testing).
func NewWithBaseURL(cfg config.ProviderConfig, limiter *metadata.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.ReadWriteTimeout(),
			},
		},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "wikipedia")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() metadata.ProviderName { return metadata.NameWikipedia }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return false }

// SearchArtist searches Wikipedia pages and builds results from the page
// summary of the best hit.
func (a *Adapter) SearchArtist(ctx context.Context, query metadata.SearchQuery) ([]metadata.ArtistResult, error) {
	pages, err := a.search(ctx, query.Name, query.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]metadata.ArtistResult, 0, len(pages))
	for i, page := range pages {
		r := metadata.ArtistResult{
			Source: metadata.NameWikipedia,
			Name:   page.Title,
		}
		if page.Thumbnail != nil {
			r.ThumbnailURL = absoluteURL(page.Thumbnail.URL)
		}
		if i == 0 && page.Key != "" {
			if summary, err := a.getSummary(ctx, page.Key); err == nil {
				r.Profile = summary.Extract
				if summary.Thumbnail.Source != "" {
					r.ThumbnailURL = summary.Thumbnail.Source
				}
				if summary.OriginalImage.Source != "" {
					r.ImageURLs = []string{summary.OriginalImage.Source}
				}
				if summary.ContentURLs.Desktop.Page != "" {
					r.URLs = []string{summary.ContentURLs.Desktop.Page}
				}
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// SearchRelease searches Wikipedia pages for an album article. The artist
// hint is folded into the search terms since page search has no filter.
func (a *Adapter) SearchRelease(ctx context.Context, query metadata.SearchQuery) ([]metadata.ReleaseResult, error) {
	term := query.Name
	if query.ArtistName != "" {
		term = query.Name + " " + query.ArtistName + " album"
	}
	pages, err := a.search(ctx, term, query.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]metadata.ReleaseResult, 0, len(pages))
	for i, page := range pages {
		r := metadata.ReleaseResult{
			Source: metadata.NameWikipedia,
			Title:  stripDisambiguation(page.Title),
		}
		if page.Thumbnail != nil {
			r.ThumbnailURL = absoluteURL(page.Thumbnail.URL)
		}
		if i == 0 && page.Key != "" {
			if summary, err := a.getSummary(ctx, page.Key); err == nil {
				r.Profile = summary.Extract
				if summary.Thumbnail.Source != "" {
					r.ThumbnailURL = summary.Thumbnail.Source
				}
				if summary.OriginalImage.Source != "" {
					r.ImageURLs = []string{summary.OriginalImage.Source}
				}
				if summary.ContentURLs.Desktop.Page != "" {
					r.URLs = []string{summary.ContentURLs.Desktop.Page}
				}
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// TestConnection verifies connectivity to the Wikipedia REST API.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.search(ctx, "test", 1)
	return err
}

func (a *Adapter) search(ctx context.Context, term string, limit int) ([]SearchPage, error) {
	params := url.Values{
		"q":     {term},
		"limit": {strconv.Itoa(limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/w/rest.php/v1/search/page?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return resp.Pages, nil
}

func (a *Adapter) getSummary(ctx context.Context, key string) (*PageSummary, error) {
	body, err := a.doRequest(ctx, a.baseURL+"/api/rest_v1/page/summary/"+url.PathEscape(key))
	if err != nil {
		return nil, err
	}

	var summary PageSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("parsing summary response: %w", err)
	}
	return &summary, nil
}

func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, metadata.NameWikipedia); err != nil {
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameWikipedia,
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
			Provider: metadata.NameWikipedia,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrNotFound{Provider: metadata.NameWikipedia, Query: reqURL}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &metadata.ErrProviderUnavailable{
			Provider: metadata.NameWikipedia,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// absoluteURL resolves the protocol-relative URLs the search endpoint
// returns for thumbnails.
func absoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// stripDisambiguation removes trailing parentheticals such as
// "(Radiohead album)" from page titles.
func stripDisambiguation(title string) string {
	if idx := strings.LastIndex(title, " ("); idx > 0 && strings.HasSuffix(title, ")") {
		return title[:idx]
	}
	return title
}
