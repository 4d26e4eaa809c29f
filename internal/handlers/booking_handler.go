package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"booking-backend/internal/models"
	"booking-backend/internal/repositories"

	"github.com/gorilla/mux"
)

// BookingHandler exposes the registration surface the booking subsystem
// calls when bookings are confirmed or change lifecycle state.
type BookingHandler struct {
	Repo *repositories.BookingRepository
}

func NewBookingHandler(repo *repositories.BookingRepository) *BookingHandler {
	return &BookingHandler{Repo: repo}
}

// CreateBooking registers a booking with the ledger
// POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Reference == "" {
		http.Error(w, "Reference is required", http.StatusBadRequest)
		return
	}
	if req.BaseAmount < 0 {
		http.Error(w, "Base amount must not be negative", http.StatusBadRequest)
		return
	}

	booking, err := h.Repo.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// GetBooking returns one booking
// GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	booking, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// UpdateBookingStatus records a lifecycle change reported by the booking
// subsystem.
// PATCH /api/bookings/{id}/status
func (h *BookingHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status models.BookingStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case models.BookingStatusConfirmed, models.BookingStatusActive, models.BookingStatusCompleted,
		models.BookingStatusClosed, models.BookingStatusCancelled:
	default:
		http.Error(w, "Unknown booking status", http.StatusBadRequest)
		return
	}

	if err := h.Repo.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

// ListBookings returns bookings, optionally filtered by status
// GET /api/bookings?status=&limit=&offset=
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	bookings, err := h.Repo.List(r.Context(), models.BookingStatus(q.Get("status")), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}
