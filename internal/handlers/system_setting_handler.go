package handlers

import (
	"encoding/json"
	"net/http"

	"booking-backend/internal/middleware"
	"booking-backend/internal/models"
	"booking-backend/internal/services"

	"github.com/gorilla/mux"
)

type SystemSettingHandler struct {
	Service *services.SystemSettingService
}

func NewSystemSettingHandler(service *services.SystemSettingService) *SystemSettingHandler {
	return &SystemSettingHandler{Service: service}
}

// ListSettings returns all system settings
// GET /api/settings
func (h *SystemSettingHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// GetSetting returns one setting by key
// GET /api/settings/{key}
func (h *SystemSettingHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.Service.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// UpdateSetting updates one setting, admin only
// PUT /api/settings/{key}
func (h *SystemSettingHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req models.UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.Service.Update(r.Context(), key, req.SettingValue, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	setting, err := h.Service.Get(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}
