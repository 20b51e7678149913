package itunes

// SearchResponse is the iTunes Search API response envelope.
type SearchResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Result `json:"results"`
}

// Result is a single search or lookup hit. Artist and album hits share
// one shape with different fields populated.
type Result struct {
	WrapperType       string `json:"wrapperType"`
	ArtistType        string `json:"artistType"`
	ArtistID          int    `json:"artistId"`
	ArtistName        string `json:"artistName"`
	ArtistLinkURL     string `json:"artistLinkUrl"`
	PrimaryGenreName  string `json:"primaryGenreName"`
	CollectionID      int    `json:"collectionId"`
	CollectionName    string `json:"collectionName"`
	CollectionType    string `json:"collectionType"`
	CollectionViewURL string `json:"collectionViewUrl"`
	ArtworkURL100     string `json:"artworkUrl100"`
	ReleaseDate       string `json:"releaseDate"`
	TrackCount        int    `json:"trackCount"`
	Copyright         string `json:"copyright"`
}
