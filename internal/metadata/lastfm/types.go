package lastfm

// SearchResponse is the artist.search response envelope.
type SearchResponse struct {
	Results struct {
		ArtistMatches struct {
			Artist []SearchArtist `json:"artist"`
		} `json:"artistmatches"`
	} `json:"results"`
}

// SearchArtist is a single artist.search hit.
type SearchArtist struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
	URL  string `json:"url"`
}

// InfoResponse is the artist.getinfo response envelope.
type InfoResponse struct {
	Artist ArtistInfo `json:"artist"`
}

// ArtistInfo is the full artist.getinfo record.
type ArtistInfo struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
	URL  string `json:"url"`
	Tags struct {
		Tag []struct {
			Name string `json:"name"`
		} `json:"tag"`
	} `json:"tags"`
	Bio struct {
		Content string `json:"content"`
		Summary string `json:"summary"`
	} `json:"bio"`
	Image []ImageEntry `json:"image"`
}

// AlbumSearchResponse is the album.search response envelope.
type AlbumSearchResponse struct {
	Results struct {
		AlbumMatches struct {
			Album []SearchAlbum `json:"album"`
		} `json:"albummatches"`
	} `json:"results"`
}

// SearchAlbum is a single album.search hit.
type SearchAlbum struct {
	Name   string       `json:"name"`
	Artist string       `json:"artist"`
	MBID   string       `json:"mbid"`
	URL    string       `json:"url"`
	Image  []ImageEntry `json:"image"`
}

// AlbumInfoResponse is the album.getinfo response envelope.
type AlbumInfoResponse struct {
	Album AlbumInfo `json:"album"`
}

// AlbumInfo is the full album.getinfo record.
type AlbumInfo struct {
	Name   string       `json:"name"`
	Artist string       `json:"artist"`
	MBID   string       `json:"mbid"`
	URL    string       `json:"url"`
	Image  []ImageEntry `json:"image"`
	Tags   struct {
		Tag []struct {
			Name string `json:"name"`
		} `json:"tag"`
	} `json:"tags"`
	Tracks struct {
		Track []struct {
			Name string `json:"name"`
		} `json:"track"`
	} `json:"tracks"`
	Wiki struct {
		Content string `json:"content"`
		Summary string `json:"summary"`
	} `json:"wiki"`
}

// ImageEntry is a sized image reference.
type ImageEntry struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}
