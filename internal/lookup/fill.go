package lookup

import (
	"strings"

	"tonearm/internal/artist"
	"tonearm/internal/metadata"
	"tonearm/internal/release"
)

// FillArtist applies a merged provider result onto an existing record.
// Without overwrite only empty scalar fields are filled; with overwrite
// provider values replace stored scalars. Collections are unioned either
// way. Reports whether anything changed.
func FillArtist(a *artist.Artist, r metadata.ArtistResult, overwrite bool) bool {
	changed := false

	// A renamed primary keeps the displaced name as an alternate so lookups
	// for either form still resolve to this record.
	if r.Name != "" && !strings.EqualFold(r.Name, a.Name) && (a.Name == "" || overwrite) {
		if a.Name != "" {
			changed = unionFold(&a.AlternateNames, []string{a.Name}) || changed
		}
		a.Name = r.Name
		changed = true
	}
	changed = fillString(&a.SortName, r.SortName, overwrite) || changed
	changed = fillString(&a.Profile, r.Profile, overwrite) || changed
	changed = fillString(&a.BirthDate, r.BirthDate, overwrite) || changed
	changed = fillString(&a.ThumbnailURL, r.ThumbnailURL, overwrite) || changed
	changed = fillString(&a.MusicBrainzID, r.MusicBrainzID, overwrite) || changed
	changed = fillString(&a.DiscogsID, r.DiscogsID, overwrite) || changed
	changed = fillString(&a.ITunesID, r.ITunesID, overwrite) || changed
	changed = fillString(&a.SpotifyID, r.SpotifyID, overwrite) || changed

	changed = unionFold(&a.AlternateNames, r.AlternateNames) || changed
	changed = unionFold(&a.Tags, r.Tags) || changed
	changed = unionExact(&a.URLs, r.URLs) || changed
	changed = unionExact(&a.ImageURLs, r.ImageURLs) || changed

	// The primary name never doubles as its own alternate.
	for i, alt := range a.AlternateNames {
		if strings.EqualFold(alt, a.Name) {
			a.AlternateNames = append(a.AlternateNames[:i], a.AlternateNames[i+1:]...)
			changed = true
			break
		}
	}
	return changed
}

// FillRelease applies a merged provider result onto an existing release
// record under the same rules as FillArtist.
func FillRelease(rel *release.Release, r metadata.ReleaseResult, overwrite bool) bool {
	changed := false

	if r.Title != "" && !strings.EqualFold(r.Title, rel.Title) && (rel.Title == "" || overwrite) {
		if rel.Title != "" {
			changed = unionFold(&rel.AlternateNames, []string{rel.Title}) || changed
		}
		rel.Title = r.Title
		changed = true
	}
	changed = fillString(&rel.Profile, r.Profile, overwrite) || changed
	changed = fillString(&rel.ReleaseDate, r.ReleaseDate, overwrite) || changed
	changed = fillString(&rel.ReleaseType, r.ReleaseType, overwrite) || changed
	changed = fillString(&rel.ThumbnailURL, r.ThumbnailURL, overwrite) || changed
	changed = fillString(&rel.MusicBrainzID, r.MusicBrainzID, overwrite) || changed
	changed = fillString(&rel.DiscogsID, r.DiscogsID, overwrite) || changed
	changed = fillString(&rel.ITunesID, r.ITunesID, overwrite) || changed
	changed = fillString(&rel.SpotifyID, r.SpotifyID, overwrite) || changed

	if r.TrackCount > 0 && (rel.TrackCount == 0 || (overwrite && rel.TrackCount != r.TrackCount)) {
		rel.TrackCount = r.TrackCount
		changed = true
	}

	changed = unionFold(&rel.AlternateNames, r.AlternateNames) || changed
	changed = unionFold(&rel.Tags, r.Tags) || changed
	changed = unionExact(&rel.URLs, r.URLs) || changed
	changed = unionExact(&rel.ImageURLs, r.ImageURLs) || changed

	for i, alt := range rel.AlternateNames {
		if strings.EqualFold(alt, rel.Title) {
			rel.AlternateNames = append(rel.AlternateNames[:i], rel.AlternateNames[i+1:]...)
			changed = true
			break
		}
	}
	return changed
}

func fillString(dst *string, src string, overwrite bool) bool {
	if src == "" || src == *dst {
		return false
	}
	if *dst != "" && !overwrite {
		return false
	}
	*dst = src
	return true
}

func unionFold(dst *[]string, src []string) bool {
	changed := false
	for _, s := range src {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		found := false
		for _, v := range *dst {
			if strings.EqualFold(v, s) {
				found = true
				break
			}
		}
		if !found {
			*dst = append(*dst, s)
			changed = true
		}
	}
	return changed
}

func unionExact(dst *[]string, src []string) bool {
	changed := false
	for _, s := range src {
		if s == "" {
			continue
		}
		found := false
		for _, v := range *dst {
			if v == s {
				found = true
				break
			}
		}
		if !found {
			*dst = append(*dst, s)
			changed = true
		}
	}
	return changed
}
