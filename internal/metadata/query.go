package metadata

import "tonearm/internal/normalize"

// SearchQuery carries one lookup request through the engine and adapters.
// It is immutable once constructed.
type SearchQuery struct {
	// Name is the primary search text with any exact-match quotes removed.
	Name string `json:"name"`
	// Exact is set when the caller quoted the name, requesting that provider
	// hits be rejected unless their normalized name equals the query's.
	Exact bool `json:"exact,omitempty"`
	// ArtistName is the associated artist hint for release searches.
	ArtistName string `json:"artist_name,omitempty"`
	// MusicBrainzID is a known external identifier, when the caller has one.
	MusicBrainzID string `json:"musicbrainz_id,omitempty"`
	// Limit is the requested provider result count.
	Limit int `json:"limit,omitempty"`
}

// NewQuery builds a SearchQuery from raw user text, interpreting surrounding
// double quotes as an exact-match request.
func NewQuery(raw string, limit int) SearchQuery {
	name, exact := normalize.Quoted(raw)
	if limit <= 0 {
		limit = 10
	}
	return SearchQuery{Name: name, Exact: exact, Limit: limit}
}

// WithArtist returns a copy of the query carrying a release-search artist hint.
func (q SearchQuery) WithArtist(artistName string) SearchQuery {
	q.ArtistName = artistName
	return q
}
