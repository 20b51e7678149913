package musicbrainz

// SearchResponse is the MusicBrainz artist search response.
type SearchResponse struct {
	Artists []MBArtist `json:"artists"`
}

// ReleaseSearchResponse is the MusicBrainz release search response.
type ReleaseSearchResponse struct {
	Releases []MBRelease `json:"releases"`
}

// MBArtist is a MusicBrainz artist record (search hit or detail).
type MBArtist struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort-name"`
	Type           string `json:"type"`
	Disambiguation string `json:"disambiguation"`
	Country        string `json:"country"`
	Score          int    `json:"score"`
	LifeSpan       struct {
		Begin string `json:"begin"`
		End   string `json:"end"`
	} `json:"life-span"`
	Aliases []struct {
		Name string `json:"name"`
	} `json:"aliases"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Tags []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	} `json:"tags"`
	Relations []MBRelation `json:"relations"`
}

// MBRelease is a MusicBrainz release record (search hit or detail).
type MBRelease struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	Country      string `json:"country"`
	Barcode      string `json:"barcode"`
	Score        int    `json:"score"`
	TrackCount   int    `json:"track-count"`
	ReleaseGroup struct {
		PrimaryType string `json:"primary-type"`
	} `json:"release-group"`
	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
	LabelInfo []struct {
		CatalogNumber string `json:"catalog-number"`
		Label         struct {
			Name string `json:"name"`
		} `json:"label"`
	} `json:"label-info"`
	Media []struct {
		TrackCount int `json:"track-count"`
	} `json:"media"`
	Tags []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	} `json:"tags"`
	Relations []MBRelation `json:"relations"`
}

// MBRelation is a URL or artist relation attached to a record.
type MBRelation struct {
	Type string `json:"type"`
	URL  *struct {
		Resource string `json:"resource"`
	} `json:"url"`
}
