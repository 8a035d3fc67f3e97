package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleettrack/middleware"
	"fleettrack/models"
	"fleettrack/store"
)

type LoadsHandler struct {
	store *store.Store
}

func NewLoadsHandler(st *store.Store) *LoadsHandler {
	return &LoadsHandler{store: st}
}

// GetLoads returns loads visible to the caller: all for admins, the
// operator's plant only otherwise.
func (h *LoadsHandler) GetLoads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	loads := h.store.LoadsForUser(user)
	writeJSON(w, map[string]any{
		"loads": loads,
		"count": len(loads),
	})
}

type CreateLoadRequest struct {
	TruckID    string          `json:"truck_id"`
	DriverID   string          `json:"driver_id"`
	Type       models.LoadType `json:"type"`
	StartAt    time.Time       `json:"start_at"`
	ExpectedKm float64         `json:"expected_km"`
	Route      string          `json:"route,omitempty"`
}

// CreateLoad dispatches a new load; the expected return is computed by the
// estimation engine at creation time.
func (h *LoadsHandler) CreateLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	load, err := h.store.CreateLoad(r.Context(), store.CreateLoadInput{
		TruckID:    req.TruckID,
		DriverID:   req.DriverID,
		Type:       req.Type,
		StartAt:    req.StartAt,
		ExpectedKm: req.ExpectedKm,
		Route:      req.Route,
	})
	if err != nil {
		if store.IsValidation(err) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("❌ Failed to create load: %v", err)
		writeError(w, "Failed to save load", http.StatusBadGateway)
		return
	}

	writeJSON(w, load)
}

type CloseLoadRequest struct {
	LoadID             string    `json:"load_id"`
	ActualKm           float64   `json:"actual_km"`
	ActualArrivalAt    time.Time `json:"actual_arrival_at"`
	GapJustification   string    `json:"gap_justification,omitempty"`
	DelayJustification string    `json:"delay_justification,omitempty"`
}

// CloseLoad finalizes a pending load, computing gap and delay and enforcing
// the justification rule.
func (h *LoadsHandler) CloseLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CloseLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	load, err := h.store.CloseLoad(r.Context(), req.LoadID, req.ActualKm, req.ActualArrivalAt, req.GapJustification, req.DelayJustification)
	if err != nil {
		if store.IsValidation(err) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("❌ Failed to close load %s: %v", req.LoadID, err)
		writeError(w, "Failed to close load", http.StatusBadGateway)
		return
	}

	writeJSON(w, load)
}

// UpdateLoad applies a direct edit to a pending load.
func (h *LoadsHandler) UpdateLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var load models.Load
	if err := json.NewDecoder(r.Body).Decode(&load); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateLoad(r.Context(), load); err != nil {
		if store.IsValidation(err) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("❌ Failed to update load %s: %v", load.LoadID, err)
		writeError(w, "Failed to update load", http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}

type DeleteLoadRequest struct {
	LoadID string `json:"load_id"`
}

// DeleteLoad removes a load at any status.
func (h *LoadsHandler) DeleteLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DeleteLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteLoad(r.Context(), req.LoadID); err != nil {
		log.Printf("❌ Failed to delete load %s: %v", req.LoadID, err)
		writeError(w, "Failed to delete load", http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}
