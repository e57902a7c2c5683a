package handlers

import (
	"net/http"

	applog "larder/internal/log"
)

// Units lists the global units.
func Units(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if units == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	list, err := units.Units(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to list units", "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "unable to load units")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
