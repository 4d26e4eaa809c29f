package models

import "time"

// BookingStatus is the booking lifecycle owned by the booking subsystem.
// Billing only consults it to decide whether billing mutations are allowed.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusClosed    BookingStatus = "closed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking type constants (marketplace verticals)
const (
	BookingTypeVehicleRental    = "vehicle_rental"
	BookingTypeMealSubscription = "meal_subscription"
)

// Booking is the aggregate root for the billing ledger. BaseAmount is fixed
// at creation by the booking subsystem; PaidAmount is updated only by
// captured-payment events and never decreases.
type Booking struct {
	ID            int           `json:"id"`
	Reference     string        `json:"reference"`
	BookingType   string        `json:"booking_type"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	BaseAmount    float64       `json:"base_amount"`
	PaidAmount    float64       `json:"paid_amount"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsBillingMutable reports whether the booking still accepts billing changes.
// Closed and cancelled bookings are settled; their ledger is frozen.
func (b *Booking) IsBillingMutable() bool {
	return b.Status != BookingStatusClosed && b.Status != BookingStatusCancelled
}

// CreateBookingRequest is used when the booking subsystem registers a booking
type CreateBookingRequest struct {
	Reference     string  `json:"reference"`
	BookingType   string  `json:"booking_type"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	BaseAmount    float64 `json:"base_amount"`
}
