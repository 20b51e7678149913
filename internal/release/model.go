// Package release provides release persistence and retrieval.
package release

import (
	"encoding/json"
	"time"
)

// Release is a resolved release record belonging to an artist.
type Release struct {
	ID              string    `json:"id"`
	ArtistID        string    `json:"artist_id"`
	Title           string    `json:"title"`
	NormalizedTitle string    `json:"-"`
	Profile         string    `json:"profile,omitempty"`
	MusicBrainzID   string    `json:"musicbrainz_id,omitempty"`
	DiscogsID       string    `json:"discogs_id,omitempty"`
	ITunesID        string    `json:"itunes_id,omitempty"`
	SpotifyID       string    `json:"spotify_id,omitempty"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	ImageURLs       []string  `json:"image_urls,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	URLs            []string  `json:"urls,omitempty"`
	AlternateNames  []string  `json:"alternate_names,omitempty"`
	ReleaseDate     string    `json:"release_date,omitempty"`
	ReleaseType     string    `json:"release_type,omitempty"`
	TrackCount      int       `json:"track_count,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MarshalStringSlice encodes a string slice as JSON for storage.
func MarshalStringSlice(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// UnmarshalStringSlice decodes a JSON array column into a string slice.
func UnmarshalStringSlice(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
