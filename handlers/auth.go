package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"fleettrack/auth"
	"fleettrack/models"
	"fleettrack/store"
)

type AuthHandler struct {
	store      *store.Store
	jwtManager *auth.JWTManager
}

func NewAuthHandler(st *store.Store, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		store:      st,
		jwtManager: jwtManager,
	}
}

// Login handles the local credential gate and issues session tokens.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		writeError(w, "Login and password are required", http.StatusBadRequest)
		return
	}

	user, ok := h.store.AuthenticateLocally(req.Login, req.Password)
	if !ok {
		log.Printf("Login failed for %s", req.Login)
		writeError(w, "Invalid login or password", http.StatusUnauthorized)
		return
	}

	token, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		log.Printf("Failed to generate token for %s: %v", req.Login, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		log.Printf("Failed to generate refresh token for %s: %v", req.Login, err)
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, models.AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Token string `json:"token"`
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user := &models.User{
		ID:          claims.UserID,
		Login:       claims.Login,
		AccessLevel: claims.Role,
		PlantID:     claims.PlantID,
	}

	token, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		log.Printf("Failed to generate token for %s: %v", user.Login, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, RefreshTokenResponse{Token: token})
}

// Logout clears the persisted local session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.store.Logout()
	writeJSON(w, map[string]bool{"success": true})
}
