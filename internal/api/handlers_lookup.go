package api

import (
	"net/http"

	"tonearm/internal/lookup"
)

func statusCode(s lookup.Status) int {
	switch s {
	case lookup.StatusAdded:
		return http.StatusCreated
	case lookup.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

func (r *Router) handleLookupArtist(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name           string `json:"name"`
		QueryProviders bool   `json:"query_providers"`
	}
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	out, err := r.artistEngine.GetByName(req.Context(), body.Name, body.QueryProviders, lookup.NewRunContext())
	if err != nil {
		r.logger.Error("artist lookup", "name", body.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, statusCode(out.Status), out)
}

func (r *Router) handleLookupRelease(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ArtistID       string `json:"artist_id"`
		Title          string `json:"title"`
		QueryProviders bool   `json:"query_providers"`
	}
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ArtistID == "" || body.Title == "" {
		writeError(w, http.StatusBadRequest, "artist_id and title are required")
		return
	}

	owner, err := r.artistService.GetByID(req.Context(), body.ArtistID)
	if err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}

	out, err := r.releaseEngine.GetByTitle(req.Context(), owner.ID, owner.Name, body.Title, body.QueryProviders, lookup.NewRunContext())
	if err != nil {
		r.logger.Error("release lookup", "title", body.Title, "artist_id", owner.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, statusCode(out.Status), out)
}

type batchEntry struct {
	Artist   string   `json:"artist"`
	Releases []string `json:"releases,omitempty"`
}

type batchEntryResult struct {
	Artist   lookup.ArtistOutcome    `json:"artist"`
	Releases []lookup.ReleaseOutcome `json:"releases,omitempty"`
}

// handleLookupBatch resolves a set of artists and their releases under one
// shared run context, so duplicate names across entries resolve to a single
// inserted record.
func (r *Router) handleLookupBatch(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Entries        []batchEntry `json:"entries"`
		QueryProviders bool         `json:"query_providers"`
	}
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "entries are required")
		return
	}

	runCtx := lookup.NewRunContext()
	results := make([]batchEntryResult, 0, len(body.Entries))
	for _, entry := range body.Entries {
		artistOut, err := r.artistEngine.GetByName(req.Context(), entry.Artist, body.QueryProviders, runCtx)
		if err != nil {
			r.logger.Error("batch artist lookup", "name", entry.Artist, "error", err)
			writeError(w, http.StatusInternalServerError, "batch lookup failed")
			return
		}
		result := batchEntryResult{Artist: artistOut}

		if artistOut.Artist != nil {
			for _, title := range entry.Releases {
				releaseOut, err := r.releaseEngine.GetByTitle(req.Context(),
					artistOut.Artist.ID, artistOut.Artist.Name, title, body.QueryProviders, runCtx)
				if err != nil {
					r.logger.Error("batch release lookup", "title", title, "error", err)
					writeError(w, http.StatusInternalServerError, "batch lookup failed")
					return
				}
				result.Releases = append(result.Releases, releaseOut)
			}
		}
		results = append(results, result)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (r *Router) handleRefreshArtist(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	overwrite := req.URL.Query().Get("overwrite") == "true"

	if _, err := r.artistService.GetByID(req.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	out, err := r.artistEngine.Refresh(req.Context(), id, overwrite)
	if err != nil {
		r.logger.Error("artist refresh", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Router) handleRefreshRelease(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	overwrite := req.URL.Query().Get("overwrite") == "true"

	rel, err := r.releaseService.GetByID(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "release not found")
		return
	}
	owner, err := r.artistService.GetByID(req.Context(), rel.ArtistID)
	if err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	out, err := r.releaseEngine.Refresh(req.Context(), id, owner.Name, overwrite)
	if err != nil {
		r.logger.Error("release refresh", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
