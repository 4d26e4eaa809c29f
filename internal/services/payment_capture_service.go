package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"booking-backend/internal/cache"
	"booking-backend/internal/metrics"
	"booking-backend/internal/models"

	razorpay "github.com/razorpay/razorpay-go"
)

// PaymentCaptureService consumes "payment captured" facts from the gateway
// and applies them to a booking's paid amount. Gateway mechanics (order
// creation, checkout) belong to the payment subsystem; this service only
// records captures, idempotently on the gateway payment id so webhook
// retries never double-increment paid_amount.
type PaymentCaptureService struct {
	store         LedgerStore
	settings      SettingsReader
	webhookSecret string
	client        *razorpay.Client
}

func NewPaymentCaptureService(keyID, keySecret, webhookSecret string, store LedgerStore, settings SettingsReader) *PaymentCaptureService {
	s := &PaymentCaptureService{
		store:         store,
		settings:      settings,
		webhookSecret: webhookSecret,
	}
	if keyID != "" && keySecret != "" {
		s.client = razorpay.NewClient(keyID, keySecret)
	}
	return s
}

// IsEnabled checks the online payment toggle in system settings
func (s *PaymentCaptureService) IsEnabled(ctx context.Context) bool {
	if s.settings == nil {
		return true
	}
	setting, err := s.settings.Get(ctx, models.SettingOnlinePaymentEnabled)
	if err != nil || setting == nil {
		return false
	}
	return setting.SettingValue == "true"
}

// VerifyWebhookSignature verifies the webhook HMAC signature
func (s *PaymentCaptureService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return true // Skip verification if not configured
	}
	h := hmac.New(sha256.New, []byte(s.webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook routes gateway webhook events
func (s *PaymentCaptureService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	switch event {
	case "payment.captured":
		return s.handlePaymentCaptured(ctx, payload)
	default:
		log.Printf("[PaymentCapture] Unhandled webhook event: %s", event)
		return nil
	}
}

func (s *PaymentCaptureService) handlePaymentCaptured(ctx context.Context, payload map[string]interface{}) error {
	paymentEntity, ok := payload["payment"].(map[string]interface{})
	if !ok {
		paymentEntity = payload
	}
	entity, ok := paymentEntity["entity"].(map[string]interface{})
	if !ok {
		entity = paymentEntity
	}

	paymentID, _ := entity["id"].(string)
	if paymentID == "" {
		return fmt.Errorf("missing payment id in webhook")
	}

	// Booking id travels in the order notes, set by the payment subsystem
	// at order creation.
	bookingID := 0
	if notes, ok := entity["notes"].(map[string]interface{}); ok {
		if v, ok := notes["booking_id"].(float64); ok {
			bookingID = int(v)
		}
	}
	if bookingID == 0 {
		return fmt.Errorf("missing booking_id in webhook notes")
	}

	// Razorpay reports amounts in paise
	amount := 0.0
	if v, ok := entity["amount"].(float64); ok {
		amount = v / 100
	}
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive capture amount", models.ErrValidation)
	}

	method, _ := entity["method"].(string)
	utr := ""
	if acquirerData, ok := entity["acquirer_data"].(map[string]interface{}); ok {
		if u, ok := acquirerData["upi_transaction_id"].(string); ok {
			utr = u
		}
		if u, ok := acquirerData["bank_transaction_id"].(string); ok && utr == "" {
			utr = u
		}
	}
	if method == "" || utr == "" {
		if fetched := s.fetchPaymentDetails(paymentID); fetched != nil {
			if method == "" {
				method, _ = fetched["method"].(string)
			}
		}
	}

	return s.ApplyCapture(ctx, bookingID, paymentID, amount, method, utr, now())
}

// ApplyCapture records one gateway capture and increments the booking's paid
// amount. Replaying the same gateway payment id is a no-op: the event insert
// detects the duplicate inside the per-booking lock, before any increment.
func (s *PaymentCaptureService) ApplyCapture(ctx context.Context, bookingID int, gatewayPaymentID string, amount float64, method, utr string, capturedAt time.Time) error {
	if gatewayPaymentID == "" {
		return fmt.Errorf("%w: gateway payment id must not be blank", models.ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: capture amount must be positive", models.ErrValidation)
	}

	applied := false
	err := withConflictRetry(func() error {
		return s.store.WithBookingLock(ctx, bookingID, func(tx LedgerTx) error {
			inserted, err := tx.InsertPaymentEvent(ctx, &models.PaymentEvent{
				BookingID:        bookingID,
				GatewayPaymentID: gatewayPaymentID,
				Amount:           amount,
				Method:           method,
				UTRNumber:        utr,
				CapturedAt:       capturedAt,
			})
			if err != nil {
				return err
			}
			if !inserted {
				return nil // duplicate webhook delivery
			}
			applied = true
			return tx.AddPaidAmount(ctx, amount)
		})
	})
	if err != nil {
		return err
	}

	if applied {
		cache.InvalidateBilling(ctx, bookingID)
		metrics.PaymentCapturesTotal.WithLabelValues("applied").Inc()
		log.Printf("[PaymentCapture] Applied %.2f to booking %d (payment %s)", amount, bookingID, gatewayPaymentID)
	} else {
		metrics.PaymentCapturesTotal.WithLabelValues("duplicate").Inc()
		log.Printf("[PaymentCapture] Duplicate capture ignored: %s", gatewayPaymentID)
	}
	return nil
}

// fetchPaymentDetails enriches a capture from the gateway API, best effort
func (s *PaymentCaptureService) fetchPaymentDetails(paymentID string) map[string]interface{} {
	if s.client == nil {
		return nil
	}
	payment, err := s.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		log.Printf("[PaymentCapture] Failed to fetch payment details: %v", err)
		return nil
	}
	return payment
}
