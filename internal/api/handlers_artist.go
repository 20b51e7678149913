package api

import (
	"net/http"
	"strconv"
)

func (r *Router) handleListArtists(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))

	artists, total, err := r.artistService.List(req.Context(), limit, offset)
	if err != nil {
		r.logger.Error("listing artists", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list artists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artists": artists,
		"total":   total,
	})
}

func (r *Router) handleGetArtist(w http.ResponseWriter, req *http.Request) {
	a, err := r.artistService.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (r *Router) handleListArtistReleases(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if _, err := r.artistService.GetByID(req.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	releases, err := r.releaseService.ListByArtist(req.Context(), id)
	if err != nil {
		r.logger.Error("listing releases", "artist_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list releases")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"releases": releases})
}

func (r *Router) handleDeleteArtist(w http.ResponseWriter, req *http.Request) {
	if err := r.artistService.Delete(req.Context(), req.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleSearchArtists(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	artists, err := r.artistService.Search(req.Context(), q)
	if err != nil {
		r.logger.Error("searching artists", "query", q, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": artists})
}

func (r *Router) handleGetRelease(w http.ResponseWriter, req *http.Request) {
	rel, err := r.releaseService.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "release not found")
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (r *Router) handleDeleteRelease(w http.ResponseWriter, req *http.Request) {
	if err := r.releaseService.Delete(req.Context(), req.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "release not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
