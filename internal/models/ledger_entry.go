package models

import "time"

// LedgerEntryType discriminates the ledger entry variants
type LedgerEntryType string

const (
	LedgerEntryTypeExtraCharge       LedgerEntryType = "EXTRA_CHARGE"       // Charge added after booking (late fee, damage, add-on)
	LedgerEntryTypeOfflineCollection LedgerEntryType = "OFFLINE_COLLECTION" // Money collected outside the gateway (cash, card machine)
	LedgerEntryTypeRefund            LedgerEntryType = "REFUND"             // Money returned to customer (own lifecycle, see refund.go)
)

// PaymentMethod for offline collections
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// IsValid checks the payment method against the allowed set
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// LedgerEntry is a single immutable financial event against a booking.
// Entries are append-only: corrections are new offsetting entries, never
// updates or deletes. The one exception is the refund lifecycle columns
// (refund_state, estimated_days, processed_at, completed_at, failure_detail),
// which advance per the refund state machine; the financial fields of a
// refund entry are as immutable as any other entry.
type LedgerEntry struct {
	ID        int             `json:"id"`
	BookingID int             `json:"booking_id"`
	EntryType LedgerEntryType `json:"entry_type"`
	Amount    float64         `json:"amount"`

	// Extra charge fields
	Description   string `json:"description,omitempty"`
	AddedByUserID int    `json:"added_by_user_id,omitempty"`
	AddedByName   string `json:"added_by_name,omitempty"`

	// Offline collection fields
	CollectedBy   string        `json:"collected_by,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Notes         string        `json:"notes,omitempty"`

	// Refund fields
	RefundID      string      `json:"refund_id,omitempty"`
	RefundState   RefundState `json:"refund_state,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	EstimatedDays int         `json:"estimated_days,omitempty"`
	RequestedAt   *time.Time  `json:"requested_at,omitempty"`
	ProcessedAt   *time.Time  `json:"processed_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	FailureDetail string      `json:"failure_detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// LedgerFilter is used for filtering ledger entries and refund listings
type LedgerFilter struct {
	BookingID *int            `json:"booking_id"`
	EntryType LedgerEntryType `json:"entry_type"`
	State     RefundState     `json:"state"`
	StartDate *time.Time      `json:"start_date"`
	EndDate   *time.Time      `json:"end_date"`
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
}
