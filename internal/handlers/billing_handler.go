package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"booking-backend/internal/middleware"
	"booking-backend/internal/models"
	"booking-backend/internal/services"

	"github.com/gorilla/mux"
)

type BillingHandler struct {
	Billing   *services.BillingService
	Statement *services.StatementService
}

func NewBillingHandler(billing *services.BillingService, statement *services.StatementService) *BillingHandler {
	return &BillingHandler{Billing: billing, Statement: statement}
}

func bookingIDFromRequest(r *http.Request) (int, error) {
	vars := mux.Vars(r)
	return strconv.Atoi(vars["id"])
}

// AddExtraCharges appends a batch of extra charges to a booking
// POST /api/bookings/{id}/extra-charges
func (h *BillingHandler) AddExtraCharges(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req models.AddExtraChargesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	userEmail, _ := middleware.GetEmailFromContext(r.Context())

	entries, err := h.Billing.AddExtraCharges(r.Context(), bookingID, req.Charges, userID, userEmail)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entries)
}

// RecordOfflineCollection records money collected outside the gateway
// POST /api/bookings/{id}/offline-collections
func (h *BillingHandler) RecordOfflineCollection(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req models.RecordOfflineCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.Billing.RecordOfflineCollection(r.Context(), bookingID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// GetBookingBilling returns the reconciliation view for a booking
// GET /api/bookings/{id}/billing
func (h *BillingHandler) GetBookingBilling(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	view, err := h.Billing.GetBookingBilling(r.Context(), bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// GetStatement streams the billing statement PDF
// GET /api/bookings/{id}/statement
func (h *BillingHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	pdf, err := h.Statement.GenerateBillingStatement(r.Context(), bookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement_%d.pdf"`, bookingID))
	w.Write(pdf)
}
