package services

import (
	"bytes"
	"context"
	"fmt"

	"booking-backend/internal/models"
	"booking-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// StatementService renders a booking's billing statement as a PDF: booking
// header, every ledger entry in append order, and the folded totals.
type StatementService struct {
	billing *BillingService
}

func NewStatementService(billing *BillingService) *StatementService {
	return &StatementService{billing: billing}
}

// GenerateBillingStatement renders the statement PDF for a booking
func (s *StatementService) GenerateBillingStatement(ctx context.Context, bookingID int) ([]byte, error) {
	view, err := s.billing.GetBookingBilling(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Booking Billing Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02 Jan 2006 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Booking details
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(190, 7, fmt.Sprintf("Booking %s (#%d)", view.Reference, view.BookingID), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 6, fmt.Sprintf("Type: %s", view.BookingType), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Status: %s", view.Status), "", 1, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Base Amount: %.2f", view.BaseAmount), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Paid Amount: %.2f", view.PaidAmount), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Ledger table header
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(30, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Type", "1", 0, "C", true, 0, "")
	pdf.CellFormat(90, 7, "Detail", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, e := range view.Entries {
		pdf.CellFormat(30, 6, e.CreatedAt.In(timeutil.IST).Format("02/01/2006"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, string(e.EntryType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(90, 6, entryDetail(&e), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", signedAmount(&e)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(160, 7, "Total Payable", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", view.TotalPayable), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 7, "Pending Refund Amount", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", view.PendingRefundAmount), "1", 1, "R", false, 0, "")
	pdf.CellFormat(160, 7, "Available For Refund", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", view.AvailableForRefund), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate statement PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func entryDetail(e *models.LedgerEntry) string {
	switch e.EntryType {
	case models.LedgerEntryTypeExtraCharge:
		return e.Description
	case models.LedgerEntryTypeOfflineCollection:
		return fmt.Sprintf("%s via %s", e.CollectedBy, e.PaymentMethod)
	case models.LedgerEntryTypeRefund:
		return fmt.Sprintf("%s [%s] %s", e.RefundID, e.RefundState, e.Reason)
	}
	return ""
}

// signedAmount shows completed refunds as negative on the statement; every
// other entry prints as recorded.
func signedAmount(e *models.LedgerEntry) float64 {
	if e.EntryType == models.LedgerEntryTypeRefund && e.RefundState == models.RefundStateCompleted {
		return -e.Amount
	}
	return e.Amount
}
