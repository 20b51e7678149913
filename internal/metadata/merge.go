package metadata

import "strings"

// MergeArtists combines per-provider artist results into one canonical
// candidate. Input order is priority order: the first non-empty value wins
// every scalar field, collections are unioned. Primary names that lose the
// priority pick are folded into the alternate-names union rather than
// discarded. Pure function: identical ordered input always yields identical
// output.
func MergeArtists(results []ArtistResult) ArtistResult {
	var merged ArtistResult
	for _, r := range results {
		if merged.Source == "" {
			merged.Source = r.Source
		}
		if merged.Name == "" {
			merged.Name = r.Name
		} else if r.Name != "" && !equalFold(merged.Name, r.Name) {
			merged.AlternateNames = appendUniqueFold(merged.AlternateNames, r.Name)
		}
		merged.SortName = firstNonEmpty(merged.SortName, r.SortName)
		merged.Profile = firstNonEmpty(merged.Profile, r.Profile)
		merged.BirthDate = firstNonEmpty(merged.BirthDate, r.BirthDate)
		merged.ThumbnailURL = firstNonEmpty(merged.ThumbnailURL, r.ThumbnailURL)

		// Per-provider identifier slots are independent: every provider's ID
		// survives the merge in its own field.
		merged.MusicBrainzID = firstNonEmpty(merged.MusicBrainzID, r.MusicBrainzID)
		merged.DiscogsID = firstNonEmpty(merged.DiscogsID, r.DiscogsID)
		merged.ITunesID = firstNonEmpty(merged.ITunesID, r.ITunesID)
		merged.SpotifyID = firstNonEmpty(merged.SpotifyID, r.SpotifyID)

		for _, alt := range r.AlternateNames {
			merged.AlternateNames = appendUniqueFold(merged.AlternateNames, alt)
		}
		for _, tag := range r.Tags {
			merged.Tags = appendUniqueFold(merged.Tags, tag)
		}
		for _, u := range r.URLs {
			merged.URLs = appendUnique(merged.URLs, u)
		}
		for _, img := range r.ImageURLs {
			merged.ImageURLs = appendUnique(merged.ImageURLs, img)
		}
	}

	// The chosen primary name never doubles as its own alternate.
	merged.AlternateNames = removeFold(merged.AlternateNames, merged.Name)
	return merged
}

// MergeReleases combines per-provider release results into one canonical
// candidate under the same rules as MergeArtists.
func MergeReleases(results []ReleaseResult) ReleaseResult {
	var merged ReleaseResult
	for _, r := range results {
		if merged.Source == "" {
			merged.Source = r.Source
		}
		if merged.Title == "" {
			merged.Title = r.Title
		} else if r.Title != "" && !equalFold(merged.Title, r.Title) {
			merged.AlternateNames = appendUniqueFold(merged.AlternateNames, r.Title)
		}
		merged.Profile = firstNonEmpty(merged.Profile, r.Profile)
		merged.ReleaseDate = firstNonEmpty(merged.ReleaseDate, r.ReleaseDate)
		merged.ReleaseType = firstNonEmpty(merged.ReleaseType, r.ReleaseType)
		merged.ThumbnailURL = firstNonEmpty(merged.ThumbnailURL, r.ThumbnailURL)
		if merged.TrackCount == 0 {
			merged.TrackCount = r.TrackCount
		}

		merged.MusicBrainzID = firstNonEmpty(merged.MusicBrainzID, r.MusicBrainzID)
		merged.DiscogsID = firstNonEmpty(merged.DiscogsID, r.DiscogsID)
		merged.ITunesID = firstNonEmpty(merged.ITunesID, r.ITunesID)
		merged.SpotifyID = firstNonEmpty(merged.SpotifyID, r.SpotifyID)

		for _, alt := range r.AlternateNames {
			merged.AlternateNames = appendUniqueFold(merged.AlternateNames, alt)
		}
		for _, tag := range r.Tags {
			merged.Tags = appendUniqueFold(merged.Tags, tag)
		}
		for _, u := range r.URLs {
			merged.URLs = appendUnique(merged.URLs, u)
		}
		for _, img := range r.ImageURLs {
			merged.ImageURLs = appendUnique(merged.ImageURLs, img)
		}
	}

	merged.AlternateNames = removeFold(merged.AlternateNames, merged.Title)
	return merged
}

func firstNonEmpty(current, candidate string) string {
	if current != "" {
		return current
	}
	return candidate
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// appendUniqueFold appends s unless an entry already matches it
// case-insensitively. First-seen casing is preserved.
func appendUniqueFold(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return list
	}
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return list
		}
	}
	return append(list, s)
}

// appendUnique appends s unless an exact duplicate exists. URLs are
// deduplicated exactly, not case-insensitively.
func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func removeFold(list []string, s string) []string {
	if s == "" || len(list) == 0 {
		return list
	}
	out := list[:0]
	for _, v := range list {
		if !strings.EqualFold(v, s) {
			out = append(out, v)
		}
	}
	return out
}
