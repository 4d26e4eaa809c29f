package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"booking-backend/internal/models"
)

func TestApplyCaptureIdempotent(t *testing.T) {
	store := newMemStore()
	store.addBooking(testBooking(1, 5000, 0))
	svc := NewPaymentCaptureService("", "", "", store, nil)
	ctx := context.Background()
	capturedAt := time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)

	if err := svc.ApplyCapture(ctx, 1, "pay_abc123", 2500, "upi", "UTR001", capturedAt); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	booking, _ := store.GetBooking(ctx, 1)
	if booking.PaidAmount != 2500 {
		t.Fatalf("paid after first capture: got %.2f, want 2500", booking.PaidAmount)
	}

	// Gateway retries deliver the same payment id; paid_amount must not move
	for i := 0; i < 3; i++ {
		if err := svc.ApplyCapture(ctx, 1, "pay_abc123", 2500, "upi", "UTR001", capturedAt); err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
	}
	booking, _ = store.GetBooking(ctx, 1)
	if booking.PaidAmount != 2500 {
		t.Errorf("paid after retries: got %.2f, want 2500", booking.PaidAmount)
	}

	// A different payment id applies normally
	if err := svc.ApplyCapture(ctx, 1, "pay_def456", 1000, "card", "", capturedAt); err != nil {
		t.Fatalf("second capture: %v", err)
	}
	booking, _ = store.GetBooking(ctx, 1)
	if booking.PaidAmount != 3500 {
		t.Errorf("paid after second capture: got %.2f, want 3500", booking.PaidAmount)
	}
}

func TestApplyCaptureValidation(t *testing.T) {
	store := newMemStore()
	store.addBooking(testBooking(1, 1000, 0))
	svc := NewPaymentCaptureService("", "", "", store, nil)
	ctx := context.Background()

	if err := svc.ApplyCapture(ctx, 1, "", 100, "upi", "", time.Now()); !errors.Is(err, models.ErrValidation) {
		t.Errorf("blank payment id: got %v, want ErrValidation", err)
	}
	if err := svc.ApplyCapture(ctx, 1, "pay_x", 0, "upi", "", time.Now()); !errors.Is(err, models.ErrValidation) {
		t.Errorf("zero amount: got %v, want ErrValidation", err)
	}
	if err := svc.ApplyCapture(ctx, 42, "pay_x", 100, "upi", "", time.Now()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown booking: got %v, want ErrNotFound", err)
	}
}

func TestProcessWebhookPaymentCaptured(t *testing.T) {
	store := newMemStore()
	store.addBooking(testBooking(7, 3000, 0))
	svc := NewPaymentCaptureService("", "", "", store, nil)

	payload := map[string]interface{}{
		"payment": map[string]interface{}{
			"entity": map[string]interface{}{
				"id":     "pay_webhook1",
				"amount": 150000.0, // paise
				"method": "upi",
				"notes": map[string]interface{}{
					"booking_id": 7.0,
				},
			},
		},
	}
	if err := svc.ProcessWebhook(context.Background(), "payment.captured", payload); err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}

	booking, _ := store.GetBooking(context.Background(), 7)
	if booking.PaidAmount != 1500 {
		t.Errorf("paid amount: got %.2f, want 1500", booking.PaidAmount)
	}

	// Unknown events are acknowledged without effect
	if err := svc.ProcessWebhook(context.Background(), "order.paid", payload); err != nil {
		t.Errorf("unknown event: %v", err)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	svc := NewPaymentCaptureService("", "", "whsec_test", nil, nil)
	body := []byte(`{"event":"payment.captured"}`)

	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !svc.VerifyWebhookSignature(body, valid) {
		t.Error("valid signature rejected")
	}
	if svc.VerifyWebhookSignature(body, "deadbeef") {
		t.Error("invalid signature accepted")
	}
	if svc.VerifyWebhookSignature([]byte("tampered"), valid) {
		t.Error("tampered body accepted")
	}
}
