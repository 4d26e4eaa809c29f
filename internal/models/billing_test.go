package models

import (
	"testing"
	"time"
)

func refundEntry(amount float64, state RefundState) LedgerEntry {
	return LedgerEntry{EntryType: LedgerEntryTypeRefund, Amount: amount, RefundState: state}
}

// TestComputeTotalsVehicleRental walks a vehicle rental through late fees,
// a cash collection and a completed refund, checking totals at each step.
func TestComputeTotalsVehicleRental(t *testing.T) {
	base, paid := 5000.0, 5000.0

	totals := ComputeTotals(base, paid, nil)
	if totals.TotalPayable != 5000 {
		t.Errorf("empty ledger total payable: got %.2f, want 5000", totals.TotalPayable)
	}
	if totals.AvailableForRefund != 5000 {
		t.Errorf("empty ledger available: got %.2f, want 5000", totals.AvailableForRefund)
	}

	entries := []LedgerEntry{
		{EntryType: LedgerEntryTypeExtraCharge, Amount: 800, Description: "Late return fee"},
		{EntryType: LedgerEntryTypeExtraCharge, Amount: 1200, Description: "Scratch on rear door"},
	}
	totals = ComputeTotals(base, paid, entries)
	if totals.TotalPayable != 7000 {
		t.Errorf("after extra charges: got %.2f, want 7000", totals.TotalPayable)
	}

	entries = append(entries, LedgerEntry{
		EntryType: LedgerEntryTypeOfflineCollection, Amount: 2000,
		CollectedBy: "Ravi", PaymentMethod: PaymentMethodCash,
	})
	totals = ComputeTotals(base, paid, entries)
	if totals.TotalPayable != 9000 {
		t.Errorf("after offline collection: got %.2f, want 9000", totals.TotalPayable)
	}

	entries = append(entries, refundEntry(1500, RefundStateCompleted))
	totals = ComputeTotals(base, paid, entries)
	if totals.TotalPayable != 7500 {
		t.Errorf("after completed refund: got %.2f, want 7500", totals.TotalPayable)
	}
	if totals.AvailableForRefund != 3500 {
		t.Errorf("available after completed refund: got %.2f, want 3500", totals.AvailableForRefund)
	}
}

// TestComputeTotalsRefundStates checks each refund state's effect on the
// three derived totals.
func TestComputeTotalsRefundStates(t *testing.T) {
	base, paid := 3000.0, 3000.0

	cases := []struct {
		name          string
		state         RefundState
		wantPayable   float64
		wantPending   float64
		wantAvailable float64
	}{
		{"pending holds funds", RefundStatePending, 3000, 500, 2500},
		{"processing holds funds", RefundStateProcessing, 3000, 500, 2500},
		{"completed moves money", RefundStateCompleted, 2500, 0, 2500},
		{"failed has no effect", RefundStateFailed, 3000, 0, 3000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := ComputeTotals(base, paid, []LedgerEntry{refundEntry(500, tc.state)})
			if totals.TotalPayable != tc.wantPayable {
				t.Errorf("total payable: got %.2f, want %.2f", totals.TotalPayable, tc.wantPayable)
			}
			if totals.PendingRefundAmount != tc.wantPending {
				t.Errorf("pending refund: got %.2f, want %.2f", totals.PendingRefundAmount, tc.wantPending)
			}
			if totals.AvailableForRefund != tc.wantAvailable {
				t.Errorf("available: got %.2f, want %.2f", totals.AvailableForRefund, tc.wantAvailable)
			}
		})
	}
}

// TestComputeTotalsDeterministic re-folds the same ledger and expects
// identical totals; the view must be derivable from the log at any time.
func TestComputeTotalsDeterministic(t *testing.T) {
	entries := []LedgerEntry{
		{EntryType: LedgerEntryTypeExtraCharge, Amount: 250},
		refundEntry(400, RefundStateProcessing),
		{EntryType: LedgerEntryTypeOfflineCollection, Amount: 100},
		refundEntry(300, RefundStateCompleted),
		refundEntry(200, RefundStateFailed),
	}

	first := ComputeTotals(2000, 1800, entries)
	for i := 0; i < 10; i++ {
		if got := ComputeTotals(2000, 1800, entries); got != first {
			t.Fatalf("fold %d diverged: got %+v, want %+v", i, got, first)
		}
	}
}

func TestRefundFromEntryOverdue(t *testing.T) {
	requested := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	processed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	entry := &LedgerEntry{
		EntryType:     LedgerEntryTypeRefund,
		RefundID:      "RF-TEST01",
		Amount:        900,
		RefundState:   RefundStateProcessing,
		EstimatedDays: 5,
		RequestedAt:   &requested,
		ProcessedAt:   &processed,
	}

	wantExpected := processed.AddDate(0, 0, 5)

	// One day before the estimate: not overdue
	r := RefundFromEntry(entry, wantExpected.AddDate(0, 0, -1))
	if r.Overdue {
		t.Error("refund overdue before expected completion date")
	}
	if r.ExpectedCompletionAt == nil || !r.ExpectedCompletionAt.Equal(wantExpected) {
		t.Errorf("expected completion: got %v, want %v", r.ExpectedCompletionAt, wantExpected)
	}

	// One hour past the estimate: overdue
	r = RefundFromEntry(entry, wantExpected.Add(time.Hour))
	if !r.Overdue {
		t.Error("refund not overdue past expected completion date")
	}

	// Completed refunds are never overdue, regardless of timing
	entry.RefundState = RefundStateCompleted
	r = RefundFromEntry(entry, wantExpected.AddDate(0, 0, 30))
	if r.Overdue {
		t.Error("completed refund flagged overdue")
	}
}

// TestRefundFromEntryPendingHasNoEstimate checks a pending refund derives no
// completion estimate: the clock starts at the processing transition.
func TestRefundFromEntryPendingHasNoEstimate(t *testing.T) {
	requested := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := &LedgerEntry{
		EntryType:     LedgerEntryTypeRefund,
		RefundState:   RefundStatePending,
		EstimatedDays: 7,
		RequestedAt:   &requested,
	}

	r := RefundFromEntry(entry, requested.AddDate(0, 0, 365))
	if r.ExpectedCompletionAt != nil {
		t.Errorf("pending refund has completion estimate: %v", r.ExpectedCompletionAt)
	}
	if r.Overdue {
		t.Error("pending refund flagged overdue")
	}
}
