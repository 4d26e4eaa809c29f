package http

import (
	"net/http"

	"booking-backend/internal/handlers"
	"booking-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	bookingHandler *handlers.BookingHandler,
	billingHandler *handlers.BillingHandler,
	refundHandler *handlers.RefundHandler,
	webhookHandler *handlers.WebhookHandler,
	systemSettingHandler *handlers.SystemSettingHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/webhooks/razorpay", webhookHandler.RazorpayWebhook).Methods("POST")
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Authenticated auth routes
	authAPI := r.PathPrefix("/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/me", authHandler.Me).Methods("GET")
	authAPI.HandleFunc("/totp/enroll", authHandler.EnrollTOTP).Methods("POST")

	// Bookings: registration surface plus the billing ledger operations
	bookingsAPI := r.PathPrefix("/api/bookings").Subrouter()
	bookingsAPI.Use(authMiddleware.Authenticate)
	bookingsAPI.HandleFunc("", bookingHandler.ListBookings).Methods("GET")
	bookingsAPI.HandleFunc("", bookingHandler.CreateBooking).Methods("POST")
	bookingsAPI.HandleFunc("/{id}", bookingHandler.GetBooking).Methods("GET")
	bookingsAPI.HandleFunc("/{id}/status", bookingHandler.UpdateBookingStatus).Methods("PATCH")
	bookingsAPI.HandleFunc("/{id}/billing", billingHandler.GetBookingBilling).Methods("GET")
	bookingsAPI.HandleFunc("/{id}/statement", billingHandler.GetStatement).Methods("GET")
	bookingsAPI.HandleFunc("/{id}/extra-charges", billingHandler.AddExtraCharges).Methods("POST")
	bookingsAPI.HandleFunc("/{id}/offline-collections", billingHandler.RecordOfflineCollection).Methods("POST")
	bookingsAPI.HandleFunc("/{id}/refunds", refundHandler.RequestRefund).Methods("POST")

	// Refund lifecycle and reporting
	refundsAPI := r.PathPrefix("/api/refunds").Subrouter()
	refundsAPI.Use(authMiddleware.Authenticate)
	refundsAPI.HandleFunc("", refundHandler.ListRefunds).Methods("GET")
	refundsAPI.HandleFunc("/overdue", refundHandler.ListOverdueRefunds).Methods("GET")
	refundsAPI.HandleFunc("/stats", refundHandler.GetRefundStatistics).Methods("GET")
	refundsAPI.HandleFunc("/{refund_id}", refundHandler.GetRefund).Methods("GET")
	refundsAPI.HandleFunc("/{refund_id}", refundHandler.AdvanceRefund).Methods("PATCH")

	// System settings, admin only for writes
	settingsAPI := r.PathPrefix("/api/settings").Subrouter()
	settingsAPI.Use(authMiddleware.Authenticate)
	settingsAPI.HandleFunc("", systemSettingHandler.ListSettings).Methods("GET")
	settingsAPI.HandleFunc("/{key}", systemSettingHandler.GetSetting).Methods("GET")
	settingsAPI.Handle("/{key}", middleware.RequireRole("admin")(
		http.HandlerFunc(systemSettingHandler.UpdateSetting))).Methods("PUT")

	return r
}
