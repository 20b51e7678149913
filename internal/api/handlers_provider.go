package api

import (
	"net/http"

	"tonearm/internal/metadata"
)

func isValidProviderName(name metadata.ProviderName) bool {
	for _, n := range metadata.AllProviderNames() {
		if n == name {
			return true
		}
	}
	return false
}

// handleListProviders returns the status of all providers and their API key
// configuration.
func (r *Router) handleListProviders(w http.ResponseWriter, req *http.Request) {
	statuses, err := r.providerSettings.ListProviderKeyStatuses(req.Context())
	if err != nil {
		r.logger.Error("listing provider statuses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list providers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": statuses})
}

// handleSetProviderKey stores an encrypted API key for a provider.
func (r *Router) handleSetProviderKey(w http.ResponseWriter, req *http.Request) {
	name := metadata.ProviderName(req.PathValue("name"))
	if !isValidProviderName(name) {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}

	var body struct {
		APIKey    string `json:"api_key"`
		APISecret string `json:"api_secret"`
	}
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.APIKey == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	if err := r.providerSettings.SetAPIKey(req.Context(), name, body.APIKey, body.APISecret); err != nil {
		r.logger.Error("setting provider API key", "provider", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save API key")
		return
	}
	r.invalidateProviderClient(name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleDeleteProviderKey(w http.ResponseWriter, req *http.Request) {
	name := metadata.ProviderName(req.PathValue("name"))
	if !isValidProviderName(name) {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}
	if err := r.providerSettings.DeleteAPIKey(req.Context(), name); err != nil {
		r.logger.Error("deleting provider API key", "provider", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete API key")
		return
	}
	r.invalidateProviderClient(name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invalidateProviderClient drops any client the provider caches from stored
// credentials so a key change takes effect without a restart.
func (r *Router) invalidateProviderClient(name metadata.ProviderName) {
	p := r.providerRegistry.Get(name)
	if p == nil {
		return
	}
	if inv, ok := p.(interface{ InvalidateClient() }); ok {
		inv.InvalidateClient()
		r.logger.Debug("provider client invalidated", "provider", name)
	}
}

func (r *Router) handleSetProviderEnabled(w http.ResponseWriter, req *http.Request) {
	name := metadata.ProviderName(req.PathValue("name"))
	if !isValidProviderName(name) {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := r.providerSettings.SetEnabled(req.Context(), name, body.Enabled); err != nil {
		r.logger.Error("setting provider enabled", "provider", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update provider")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleSetPriorities(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Priorities []metadata.ProviderName `json:"priorities"`
	}
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, name := range body.Priorities {
		if !isValidProviderName(name) {
			writeError(w, http.StatusBadRequest, "unknown provider "+string(name))
			return
		}
	}
	if err := r.providerSettings.SetPriorities(req.Context(), body.Priorities); err != nil {
		r.logger.Error("setting priorities", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save priorities")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleSetPolicy(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Policy string `json:"policy"`
	}
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := r.providerSettings.SetPolicy(req.Context(), body.Policy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTestProvider verifies a provider's connectivity and credentials and
// records the result.
func (r *Router) handleTestProvider(w http.ResponseWriter, req *http.Request) {
	name := metadata.ProviderName(req.PathValue("name"))
	if !isValidProviderName(name) {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}
	p := r.providerRegistry.Get(name)
	if p == nil {
		writeError(w, http.StatusNotFound, "provider not registered")
		return
	}
	testable, ok := p.(metadata.TestableProvider)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "untestable"})
		return
	}

	if err := testable.TestConnection(req.Context()); err != nil {
		if serr := r.providerSettings.SetKeyStatus(req.Context(), name, "invalid"); serr != nil {
			r.logger.Warn("recording key status", "provider", name, "error", serr)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "failed", "error": err.Error()})
		return
	}
	if serr := r.providerSettings.SetKeyStatus(req.Context(), name, "ok"); serr != nil {
		r.logger.Warn("recording key status", "provider", name, "error", serr)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
