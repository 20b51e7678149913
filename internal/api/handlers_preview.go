package api

import (
	"net/http"

	"tonearm/internal/metadata"
)

// providerHits is one provider's contribution to a search preview.
type providerHits struct {
	Provider metadata.ProviderName `json:"provider"`
	Artists  any                   `json:"artists,omitempty"`
	Releases any                   `json:"releases,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// handleSearchPreview queries the enabled providers for raw results without
// persisting anything. Responses are cached so repeated identical previews
// within the TTL window do not hit the providers again.
func (r *Router) handleSearchPreview(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	kind := req.URL.Query().Get("type")
	if kind == "" {
		kind = "artist"
	}
	if kind != "artist" && kind != "release" {
		writeError(w, http.StatusBadRequest, "type must be artist or release")
		return
	}
	artistHint := req.URL.Query().Get("artist")

	names, err := r.providerSettings.EnabledProviders(req.Context())
	if err != nil {
		r.logger.Error("resolving enabled providers", "error", err)
		writeError(w, http.StatusInternalServerError, "preview failed")
		return
	}
	providers := r.providerRegistry.InOrder(names)
	if len(providers) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"results": []providerHits{}})
		return
	}

	key := "preview:" + kind + ":" + artistHint + ":" + q
	v, err := r.searchCache.GetOrCompute(key, func() (any, error) {
		query := metadata.NewQuery(q, 5)
		if kind == "release" {
			query = query.WithArtist(artistHint)
		}
		results := make([]providerHits, 0, len(providers))
		for _, p := range providers {
			hits := providerHits{Provider: p.Name()}
			if kind == "artist" {
				artists, err := p.SearchArtist(req.Context(), query)
				if err != nil {
					hits.Error = err.Error()
				} else {
					hits.Artists = artists
				}
			} else {
				releases, err := p.SearchRelease(req.Context(), query)
				if err != nil {
					hits.Error = err.Error()
				} else {
					hits.Releases = releases
				}
			}
			results = append(results, hits)
		}
		return results, nil
	})
	if err != nil {
		r.logger.Error("search preview", "query", q, "error", err)
		writeError(w, http.StatusInternalServerError, "preview failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": v})
}
