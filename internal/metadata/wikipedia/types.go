package wikipedia

// SearchResponse is the MediaWiki REST search response.
type SearchResponse struct {
	Pages []SearchPage `json:"pages"`
}

// SearchPage is a single search hit.
type SearchPage struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   *struct {
		URL string `json:"url"`
	} `json:"thumbnail"`
}

// PageSummary is the REST page summary record.
type PageSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	Thumbnail   struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	OriginalImage struct {
		Source string `json:"source"`
	} `json:"originalimage"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}
