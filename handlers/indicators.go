package handlers

import (
	"net/http"

	"fleettrack/store"
)

type IndicatorsHandler struct {
	store *store.Store
}

func NewIndicatorsHandler(st *store.Store) *IndicatorsHandler {
	return &IndicatorsHandler{store: st}
}

// GetIndicators returns the per-plant and global gap/delay averages over
// completed loads.
func (h *IndicatorsHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.store.Indicators())
}
