package discogs

// SearchResponse is the Discogs database search response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is a single database search hit.
type SearchResult struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Thumb   string   `json:"thumb"`
	Year    string   `json:"year"`
	Country string   `json:"country"`
	Barcode []string `json:"barcode"`
	Genre   []string `json:"genre"`
	Style   []string `json:"style"`
}

// ArtistDetail is the full Discogs artist record.
type ArtistDetail struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	RealName       string   `json:"realname"`
	Profile        string   `json:"profile"`
	URLs           []string `json:"urls"`
	NameVariations []string `json:"namevariations"`
	Aliases        []struct {
		Name string `json:"name"`
	} `json:"aliases"`
	Images []Image `json:"images"`
}

// ReleaseDetail is the full Discogs release record.
type ReleaseDetail struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Released string   `json:"released"`
	Notes    string   `json:"notes"`
	Genres   []string `json:"genres"`
	Styles   []string `json:"styles"`
	Labels   []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Identifiers []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"identifiers"`
	Tracklist []struct {
		Position string `json:"position"`
		Title    string `json:"title"`
	} `json:"tracklist"`
	Images []Image `json:"images"`
}

// Image is a Discogs image entry.
type Image struct {
	Type   string `json:"type"`
	URI    string `json:"uri"`
	URI150 string `json:"uri150"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
