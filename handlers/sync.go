package handlers

import (
	"errors"
	"log"
	"net/http"

	"fleettrack/graph"
	"fleettrack/store"
)

type SyncHandler struct {
	store *store.Store
}

func NewSyncHandler(st *store.Store) *SyncHandler {
	return &SyncHandler{store: st}
}

type SyncResponse struct {
	Success bool `json:"success"`
	Plants  int  `json:"plants"`
	Trucks  int  `json:"trucks"`
	Drivers int  `json:"drivers"`
	Users   int  `json:"users"`
	Loads   int  `json:"loads"`
}

// Sync triggers a full resync of all remote collections. A sync already in
// flight yields 409; the caller retries once the first completes.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.store.Sync(r.Context()); err != nil {
		switch {
		case errors.Is(err, store.ErrSyncInFlight):
			writeError(w, "Sync already in progress", http.StatusConflict)
		default:
			var authErr *graph.AuthError
			var containerErr *graph.ContainerResolutionError
			if errors.As(err, &authErr) {
				writeError(w, "Remote authentication failed, retry login", http.StatusUnauthorized)
			} else if errors.As(err, &containerErr) {
				log.Printf("❌ Container resolution failed: %v", err)
				writeError(w, "Required remote list unavailable", http.StatusBadGateway)
			} else {
				log.Printf("❌ Sync failed: %v", err)
				writeError(w, "Sync failed", http.StatusBadGateway)
			}
		}
		return
	}

	writeJSON(w, SyncResponse{
		Success: true,
		Plants:  len(h.store.Plants()),
		Trucks:  len(h.store.Trucks()),
		Drivers: len(h.store.Drivers()),
		Users:   len(h.store.Users()),
		Loads:   len(h.store.Loads()),
	})
}
