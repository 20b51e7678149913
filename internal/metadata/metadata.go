// Package metadata defines the common contract between the lookup engines and
// the external metadata source adapters: the query and result shapes, the
// provider interface, and the typed errors adapters convert wire failures into.
package metadata

import (
	"context"
	"fmt"
	"time"
)

// ProviderName uniquely identifies a metadata provider.
type ProviderName string

// Known provider names.
const (
	NameMusicBrainz ProviderName = "musicbrainz"
	NameDiscogs     ProviderName = "discogs"
	NameLastFM      ProviderName = "lastfm"
	NameITunes      ProviderName = "itunes"
	NameSpotify     ProviderName = "spotify"
	NameWikipedia   ProviderName = "wikipedia"
)

// AllProviderNames returns all known provider names in default priority order.
func AllProviderNames() []ProviderName {
	return []ProviderName{
		NameMusicBrainz,
		NameITunes,
		NameLastFM,
		NameSpotify,
		NameWikipedia,
		NameDiscogs,
	}
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameDiscogs:
		return "Discogs"
	case NameLastFM:
		return "Last.fm"
	case NameITunes:
		return "iTunes"
	case NameSpotify:
		return "Spotify"
	case NameWikipedia:
		return "Wikipedia"
	default:
		return string(n)
	}
}

// AccessTier classifies a provider's access model.
type AccessTier string

// Access tier constants for classifying a provider's access model.
const (
	TierFree    AccessTier = "free"     // No key required
	TierFreeKey AccessTier = "free_key" // Free account/sign-up required
)

// RateLimitInfo documents the known rate limits for a provider.
type RateLimitInfo struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	RequestsPerDay    int     `json:"requests_per_day,omitempty"` // 0 = unknown/unlimited
}

// ProviderCapability describes a provider's access model and documented rate limits.
type ProviderCapability struct {
	Tier      AccessTier     `json:"tier"`
	HelpURL   string         `json:"help_url,omitempty"`
	RateLimit *RateLimitInfo `json:"rate_limit,omitempty"`
}

// ProviderCapabilities returns the known capability metadata for each provider.
func ProviderCapabilities() map[ProviderName]ProviderCapability {
	return map[ProviderName]ProviderCapability{
		NameMusicBrainz: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 1},
		},
		NameDiscogs: {
			Tier:      TierFreeKey,
			HelpURL:   "https://www.discogs.com/settings/developers",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 1, RequestsPerDay: 1000},
		},
		NameLastFM: {
			Tier:      TierFreeKey,
			HelpURL:   "https://www.last.fm/api/account/create",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
		NameITunes: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 3},
		},
		NameSpotify: {
			Tier:      TierFreeKey,
			HelpURL:   "https://developer.spotify.com/dashboard",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
		NameWikipedia: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
	}
}

// ArtistResult is the common shape an adapter maps one provider's artist
// answer into. Every field except Source is optional: a provider may return
// a partial record.
type ArtistResult struct {
	Source         ProviderName `json:"source"`
	Name           string       `json:"name,omitempty"`
	SortName       string       `json:"sort_name,omitempty"`
	MusicBrainzID  string       `json:"musicbrainz_id,omitempty"`
	DiscogsID      string       `json:"discogs_id,omitempty"`
	ITunesID       string       `json:"itunes_id,omitempty"`
	SpotifyID      string       `json:"spotify_id,omitempty"`
	Profile        string       `json:"profile,omitempty"`
	AlternateNames []string     `json:"alternate_names,omitempty"`
	ThumbnailURL   string       `json:"thumbnail_url,omitempty"`
	ImageURLs      []string     `json:"image_urls,omitempty"`
	URLs           []string     `json:"urls,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	BirthDate      string       `json:"birth_date,omitempty"`
}

// HasName reports whether the result carries the minimum required field.
func (r ArtistResult) HasName() bool { return r.Name != "" }

// ReleaseResult is the common shape an adapter maps one provider's release
// answer into.
type ReleaseResult struct {
	Source         ProviderName `json:"source"`
	Title          string       `json:"title,omitempty"`
	MusicBrainzID  string       `json:"musicbrainz_id,omitempty"`
	DiscogsID      string       `json:"discogs_id,omitempty"`
	ITunesID       string       `json:"itunes_id,omitempty"`
	SpotifyID      string       `json:"spotify_id,omitempty"`
	Profile        string       `json:"profile,omitempty"`
	AlternateNames []string     `json:"alternate_names,omitempty"`
	ThumbnailURL   string       `json:"thumbnail_url,omitempty"`
	ImageURLs      []string     `json:"image_urls,omitempty"`
	URLs           []string     `json:"urls,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	ReleaseDate    string       `json:"release_date,omitempty"`
	ReleaseType    string       `json:"release_type,omitempty"`
	TrackCount     int          `json:"track_count,omitempty"`
}

// HasTitle reports whether the result carries the minimum required field.
func (r ReleaseResult) HasTitle() bool { return r.Title != "" }

// Provider is the interface all metadata source adapters implement. Adapters
// translate the common query into their provider's wire calls and map the
// response back; wire failures surface as the typed errors below, never as
// panics, and the engines convert them into absent results.
type Provider interface {
	// Name returns the unique provider identifier.
	Name() ProviderName

	// RequiresAuth returns true if this provider needs an API key to function.
	RequiresAuth() bool

	// SearchArtist searches the provider by artist name. Returns zero or more results.
	SearchArtist(ctx context.Context, query SearchQuery) ([]ArtistResult, error)

	// SearchRelease searches the provider for a release, optionally scoped by
	// the artist name hint on the query. Returns zero or more results.
	SearchRelease(ctx context.Context, query SearchQuery) ([]ReleaseResult, error)
}

// TestableProvider is an optional interface providers can implement
// for the key verification endpoint.
type TestableProvider interface {
	Provider
	TestConnection(ctx context.Context) error
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrProviderUnavailable struct {
	Provider   ProviderName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the requested query.
type ErrNotFound struct {
	Provider ProviderName
	Query    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: no match for %q", e.Provider, e.Query)
}

// ErrAuthRequired indicates the provider needs an API key but none is configured.
type ErrAuthRequired struct {
	Provider ProviderName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: API key not configured", e.Provider)
}
