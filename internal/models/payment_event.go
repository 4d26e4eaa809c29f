package models

import "time"

// PaymentEvent records one gateway capture applied to a booking's paid
// amount. GatewayPaymentID carries a unique constraint so webhook retries
// are idempotent: a duplicate event is detected and dropped, paid_amount is
// incremented exactly once.
type PaymentEvent struct {
	ID               int       `json:"id"`
	BookingID        int       `json:"booking_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           float64   `json:"amount"`
	Method           string    `json:"method,omitempty"`
	UTRNumber        string    `json:"utr_number,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
	CreatedAt        time.Time `json:"created_at"`
}
