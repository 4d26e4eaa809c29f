package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"booking-backend/internal/auth"
	"booking-backend/internal/middleware"
	"booking-backend/internal/models"
	"booking-backend/internal/repositories"
	"booking-backend/internal/services"

	"github.com/gorilla/mux"
)

type RefundHandler struct {
	Service  *services.RefundService
	UserRepo *repositories.UserRepository
}

func NewRefundHandler(service *services.RefundService, userRepo *repositories.UserRepository) *RefundHandler {
	return &RefundHandler{Service: service, UserRepo: userRepo}
}

// RequestRefund opens a refund against a booking
// POST /api/bookings/{id}/refunds
func (h *RefundHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req models.RequestRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	refund, err := h.Service.RequestRefund(r.Context(), bookingID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, refund)
}

// AdvanceRefund moves a refund through its lifecycle. Moving to processing
// requires a TOTP code when the operator has 2FA enrolled, since processing
// means money is leaving.
// PATCH /api/refunds/{refund_id}
func (h *RefundHandler) AdvanceRefund(w http.ResponseWriter, r *http.Request) {
	refundID := mux.Vars(r)["refund_id"]

	var req models.AdvanceRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.TargetState == models.RefundStateProcessing {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		user, err := h.UserRepo.Get(r.Context(), userID)
		if err != nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}
		if user.TOTPEnabled && !auth.VerifyTOTPCode(user.TOTPSecret, req.TOTPCode) {
			http.Error(w, "Invalid TOTP code", http.StatusForbidden)
			return
		}
	}

	refund, err := h.Service.AdvanceRefund(r.Context(), refundID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refund)
}

// GetRefund returns one refund
// GET /api/refunds/{refund_id}
func (h *RefundHandler) GetRefund(w http.ResponseWriter, r *http.Request) {
	refund, err := h.Service.GetRefund(r.Context(), mux.Vars(r)["refund_id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refund)
}

// ListRefunds returns refunds matching the query filters
// GET /api/refunds?booking_id=&state=&start_date=&end_date=&limit=&offset=
func (h *RefundHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	filter, err := refundFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	refunds, err := h.Service.ListRefunds(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refunds)
}

// ListOverdueRefunds returns processing refunds past their expected
// completion date
// GET /api/refunds/overdue
func (h *RefundHandler) ListOverdueRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.Service.ListOverdueRefunds(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refunds)
}

// GetRefundStatistics returns refund aggregates for the dashboard
// GET /api/refunds/stats
func (h *RefundHandler) GetRefundStatistics(w http.ResponseWriter, r *http.Request) {
	filter, err := refundFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.Service.GetRefundStatistics(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func refundFilterFromQuery(r *http.Request) (*models.LedgerFilter, error) {
	q := r.URL.Query()
	filter := &models.LedgerFilter{}

	if v := q.Get("booking_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		filter.BookingID = &id
	}
	if v := q.Get("state"); v != "" {
		filter.State = models.RefundState(v)
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, err
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, err
		}
		end := t.AddDate(0, 0, 1)
		filter.EndDate = &end
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	return filter, nil
}
