package models

import "time"

// RefundState is the refund lifecycle state
type RefundState string

const (
	RefundStatePending    RefundState = "pending"    // Requested, awaiting operator action
	RefundStateProcessing RefundState = "processing" // Sent to the bank, settlement in flight
	RefundStateCompleted  RefundState = "completed"  // Settlement confirmed (terminal)
	RefundStateFailed     RefundState = "failed"     // Settlement failed or cancelled before processing (terminal)
)

// refundTransitions is the closed transition table. Anything not listed here
// is an invalid transition, including every move out of a terminal state.
var refundTransitions = map[RefundState][]RefundState{
	RefundStatePending:    {RefundStateProcessing, RefundStateFailed},
	RefundStateProcessing: {RefundStateCompleted, RefundStateFailed},
}

// IsValid checks the state against the known set
func (s RefundState) IsValid() bool {
	switch s {
	case RefundStatePending, RefundStateProcessing, RefundStateCompleted, RefundStateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions
func (s RefundState) IsTerminal() bool {
	return s == RefundStateCompleted || s == RefundStateFailed
}

// CanTransitionTo consults the transition table
func (s RefundState) CanTransitionTo(target RefundState) bool {
	for _, t := range refundTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// RefundLifecycleUpdate carries the columns a state transition is allowed to
// touch. Amount and reason are immutable after the entry is appended.
type RefundLifecycleUpdate struct {
	State         RefundState
	EstimatedDays int
	ProcessedAt   *time.Time
	CompletedAt   *time.Time
	FailureDetail string
}

// Refund is the read-side view of a REFUND ledger entry. ExpectedCompletionAt
// and Overdue are derived on every read, never stored.
type Refund struct {
	RefundID             string      `json:"refund_id"`
	BookingID            int         `json:"booking_id"`
	Amount               float64     `json:"amount"`
	Reason               string      `json:"reason"`
	State                RefundState `json:"state"`
	EstimatedDays        int         `json:"estimated_days"`
	RequestedAt          time.Time   `json:"requested_at"`
	ProcessedAt          *time.Time  `json:"processed_at,omitempty"`
	CompletedAt          *time.Time  `json:"completed_at,omitempty"`
	FailureDetail        string      `json:"failure_detail,omitempty"`
	ExpectedCompletionAt *time.Time  `json:"expected_completion_at,omitempty"`
	Overdue              bool        `json:"overdue"`
}

// RefundFromEntry projects a REFUND ledger entry into its read-side view,
// deriving the completion estimate and overdue flag relative to now.
func RefundFromEntry(e *LedgerEntry, now time.Time) *Refund {
	r := &Refund{
		RefundID:      e.RefundID,
		BookingID:     e.BookingID,
		Amount:        e.Amount,
		Reason:        e.Reason,
		State:         e.RefundState,
		EstimatedDays: e.EstimatedDays,
		ProcessedAt:   e.ProcessedAt,
		CompletedAt:   e.CompletedAt,
		FailureDetail: e.FailureDetail,
	}
	if e.RequestedAt != nil {
		r.RequestedAt = *e.RequestedAt
	}
	if e.ProcessedAt != nil && e.EstimatedDays > 0 {
		expected := e.ProcessedAt.AddDate(0, 0, e.EstimatedDays)
		r.ExpectedCompletionAt = &expected
		r.Overdue = e.RefundState == RefundStateProcessing && now.After(expected)
	}
	return r
}
