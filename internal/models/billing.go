package models

import "time"

// BillingTotals are the amounts derived from a booking's ledger. They are
// recomputed from the entry log on every read; no stored total is
// authoritative.
type BillingTotals struct {
	TotalPayable        float64 `json:"total_payable"`
	PendingRefundAmount float64 `json:"pending_refund_amount"`
	AvailableForRefund  float64 `json:"available_for_refund"`
}

// ComputeTotals folds a booking's ledger entries into its billing totals.
// It is pure and deterministic: the same entries always produce the same
// totals, so the view can be re-derived from the log at any point. Entries
// must be passed in append order for the audit trail, though the sums
// themselves are order-independent.
//
//	totalPayable   = base + Σ extra charges − Σ completed refunds + Σ offline collections
//	pendingRefund  = Σ refunds in {pending, processing}
//	availableForRefund = paid − Σ refunds not failed
func ComputeTotals(baseAmount, paidAmount float64, entries []LedgerEntry) BillingTotals {
	totals := BillingTotals{TotalPayable: baseAmount, AvailableForRefund: paidAmount}
	for _, e := range entries {
		switch e.EntryType {
		case LedgerEntryTypeExtraCharge:
			totals.TotalPayable += e.Amount
		case LedgerEntryTypeOfflineCollection:
			totals.TotalPayable += e.Amount
		case LedgerEntryTypeRefund:
			switch e.RefundState {
			case RefundStateCompleted:
				totals.TotalPayable -= e.Amount
				totals.AvailableForRefund -= e.Amount
			case RefundStatePending, RefundStateProcessing:
				totals.PendingRefundAmount += e.Amount
				totals.AvailableForRefund -= e.Amount
			case RefundStateFailed:
				// Failed refunds never moved money; they stay in the log
				// for audit but do not affect any total.
			}
		}
	}
	return totals
}

// BookingBilling is the reconciliation view served to the UI
type BookingBilling struct {
	BookingID           int           `json:"booking_id"`
	Reference           string        `json:"reference"`
	BookingType         string        `json:"booking_type"`
	Status              BookingStatus `json:"status"`
	BaseAmount          float64       `json:"base_amount"`
	PaidAmount          float64       `json:"paid_amount"`
	TotalPayable        float64       `json:"total_payable"`
	PendingRefundAmount float64       `json:"pending_refund_amount"`
	AvailableForRefund  float64       `json:"available_for_refund"`
	Entries             []LedgerEntry `json:"entries"`
}

// ExtraChargeItem is one charge in an AddExtraCharges batch
type ExtraChargeItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// AddExtraChargesRequest is the request body for POST /bookings/{id}/extra-charges
type AddExtraChargesRequest struct {
	Charges []ExtraChargeItem `json:"charges"`
}

// RecordOfflineCollectionRequest is the request body for POST /bookings/{id}/offline-collections
type RecordOfflineCollectionRequest struct {
	Amount        float64       `json:"amount"`
	CollectedBy   string        `json:"collected_by"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes"`
}

// RequestRefundRequest is the request body for POST /bookings/{id}/refunds
type RequestRefundRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

// AdvanceRefundRequest is the request body for PATCH /refunds/{refund_id}.
// TOTPCode is required for the move to processing when the operator has 2FA
// enrolled (point of no easy cancellation).
type AdvanceRefundRequest struct {
	TargetState   RefundState `json:"target_state"`
	EstimatedDays int         `json:"estimated_days,omitempty"`
	FailureDetail string      `json:"failure_detail,omitempty"`
	TOTPCode      string      `json:"totp_code,omitempty"`
}

// RefundStatistics aggregates refunds by state for the dashboard
type RefundStatistics struct {
	CountByState  map[RefundState]int     `json:"count_by_state"`
	AmountByState map[RefundState]float64 `json:"amount_by_state"`
	OverdueCount  int                     `json:"overdue_count"`
}

// RefundEvent is broadcast to the monitoring dashboard on every lifecycle change
type RefundEvent struct {
	RefundID  string      `json:"refund_id"`
	BookingID int         `json:"booking_id"`
	Amount    float64     `json:"amount"`
	State     RefundState `json:"state"`
	At        time.Time   `json:"at"`
}
