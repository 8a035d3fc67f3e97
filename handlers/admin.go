package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"fleettrack/models"
	"fleettrack/store"
)

// AdminHandler exposes the reference-data CRUD surface. Routes using it are
// wrapped in RequireRole(ADMIN) at registration time.
type AdminHandler struct {
	store *store.Store
}

func NewAdminHandler(st *store.Store) *AdminHandler {
	return &AdminHandler{store: st}
}

func (h *AdminHandler) writeCreateResult(w http.ResponseWriter, entity string, v any, err error) {
	if err != nil {
		if store.IsValidation(err) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("❌ Failed to create %s: %v", entity, err)
		writeError(w, "Failed to save "+entity, http.StatusBadGateway)
		return
	}
	writeJSON(w, v)
}

func (h *AdminHandler) writeDeleteResult(w http.ResponseWriter, entity string, err error) {
	if err != nil {
		log.Printf("❌ Failed to delete %s: %v", entity, err)
		writeError(w, "Failed to delete "+entity, http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

type deleteRequest struct {
	ID string `json:"id"`
}

func decodeDelete(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, "Item id is required", http.StatusBadRequest)
		return "", false
	}
	return req.ID, true
}

// --- Plants ---

func (h *AdminHandler) GetPlants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"plants": h.store.Plants()})
}

func (h *AdminHandler) CreatePlant(w http.ResponseWriter, r *http.Request) {
	var plant models.Plant
	if err := json.NewDecoder(r.Body).Decode(&plant); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.store.CreatePlant(r.Context(), plant)
	h.writeCreateResult(w, "plant", created, err)
}

func (h *AdminHandler) DeletePlant(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeDelete(w, r)
	if !ok {
		return
	}
	h.writeDeleteResult(w, "plant", h.store.DeletePlant(r.Context(), id))
}

// --- Trucks ---

func (h *AdminHandler) GetTrucks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"trucks": h.store.Trucks()})
}

func (h *AdminHandler) CreateTruck(w http.ResponseWriter, r *http.Request) {
	var truck models.Truck
	if err := json.NewDecoder(r.Body).Decode(&truck); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.store.CreateTruck(r.Context(), truck)
	h.writeCreateResult(w, "truck", created, err)
}

func (h *AdminHandler) DeleteTruck(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeDelete(w, r)
	if !ok {
		return
	}
	h.writeDeleteResult(w, "truck", h.store.DeleteTruck(r.Context(), id))
}

// --- Drivers ---

func (h *AdminHandler) GetDrivers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"drivers": h.store.Drivers()})
}

func (h *AdminHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var driver models.Driver
	if err := json.NewDecoder(r.Body).Decode(&driver); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.store.CreateDriver(r.Context(), driver)
	h.writeCreateResult(w, "driver", created, err)
}

func (h *AdminHandler) DeleteDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeDelete(w, r)
	if !ok {
		return
	}
	h.writeDeleteResult(w, "driver", h.store.DeleteDriver(r.Context(), id))
}

// --- Users ---

type CreateUserRequest struct {
	Login       string      `json:"login"`
	Name        string      `json:"name"`
	Password    string      `json:"password"`
	AccessLevel models.Role `json:"access_level"`
	PlantID     string      `json:"plant_id,omitempty"`
}

func (h *AdminHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"users": h.store.Users()})
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.store.CreateUser(r.Context(), models.User{
		Login:       req.Login,
		Name:        req.Name,
		AccessLevel: req.AccessLevel,
		PlantID:     req.PlantID,
	}, req.Password)
	h.writeCreateResult(w, "user", created, err)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeDelete(w, r)
	if !ok {
		return
	}
	h.writeDeleteResult(w, "user", h.store.DeleteUser(r.Context(), id))
}

// --- Justifications ---

func (h *AdminHandler) GetJustifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"justifications": h.store.Justifications()})
}

func (h *AdminHandler) CreateJustification(w http.ResponseWriter, r *http.Request) {
	var j models.Justification
	if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.store.CreateJustification(r.Context(), j)
	h.writeCreateResult(w, "justification", created, err)
}

func (h *AdminHandler) DeleteJustification(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeDelete(w, r)
	if !ok {
		return
	}
	h.writeDeleteResult(w, "justification", h.store.DeleteJustification(r.Context(), id))
}

// AuditTrail returns the in-memory audit log for the current session.
func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"events": h.store.AuditTrail()})
}
