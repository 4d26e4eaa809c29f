package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"booking-backend/internal/services"
)

type WebhookHandler struct {
	Service *services.PaymentCaptureService
}

func NewWebhookHandler(service *services.PaymentCaptureService) *WebhookHandler {
	return &WebhookHandler{Service: service}
}

// RazorpayWebhook receives gateway events. Always returns 200 on processing
// errors after signature verification, so the gateway does not retry events
// we have already rejected for business reasons; only transport-level
// failures should trigger a retry.
// POST /webhooks/razorpay
func (h *WebhookHandler) RazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !h.Service.VerifyWebhookSignature(body, signature) {
		log.Printf("[Webhook] Invalid signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	if !h.Service.IsEnabled(r.Context()) {
		log.Printf("[Webhook] Online payments disabled, ignoring event")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var payload struct {
		Event   string                 `json:"event"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	if err := h.Service.ProcessWebhook(r.Context(), payload.Event, payload.Payload); err != nil {
		log.Printf("[Webhook] Failed to process %s: %v", payload.Event, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
