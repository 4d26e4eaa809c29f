package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"booking-backend/internal/cache"
	"booking-backend/internal/metrics"
	"booking-backend/internal/models"
	"booking-backend/internal/timeutil"
)

// BillingService owns the recorder operations (extra charges, offline
// collections) and the reconciliation view. All totals are folded from the
// entry log via models.ComputeTotals; the Redis cache is invalidated on
// every append so it can never serve a stale total.
type BillingService struct {
	store LedgerStore
}

func NewBillingService(store LedgerStore) *BillingService {
	return &BillingService{store: store}
}

// withConflictRetry retries fn once when the per-booking serialization race
// is lost. Conflicts are expected under normal concurrent load; a second
// loss is surfaced to the caller.
func withConflictRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, models.ErrConcurrencyConflict) {
		metrics.ConcurrencyConflicts.Inc()
		err = fn()
	}
	return err
}

// AddExtraCharges appends a batch of extra charges atomically: either every
// charge in the batch is appended or none is.
func (s *BillingService) AddExtraCharges(ctx context.Context, bookingID int, charges []models.ExtraChargeItem, userID int, userName string) ([]models.LedgerEntry, error) {
	if len(charges) == 0 {
		return nil, fmt.Errorf("%w: charges must not be empty", models.ErrValidation)
	}
	for i, c := range charges {
		if c.Amount <= 0 {
			return nil, fmt.Errorf("%w: charge %d amount must be positive", models.ErrValidation, i+1)
		}
		if strings.TrimSpace(c.Description) == "" {
			return nil, fmt.Errorf("%w: charge %d description must not be blank", models.ErrValidation, i+1)
		}
	}

	var appended []models.LedgerEntry
	err := withConflictRetry(func() error {
		return s.store.WithBookingLock(ctx, bookingID, func(tx LedgerTx) error {
			if !tx.Booking().IsBillingMutable() {
				return fmt.Errorf("%w: booking %d is %s", models.ErrInvalidState, bookingID, tx.Booking().Status)
			}

			entries := make([]models.LedgerEntry, 0, len(charges))
			for _, c := range charges {
				entries = append(entries, models.LedgerEntry{
					BookingID:     bookingID,
					EntryType:     models.LedgerEntryTypeExtraCharge,
					Amount:        c.Amount,
					Description:   strings.TrimSpace(c.Description),
					AddedByUserID: userID,
					AddedByName:   userName,
				})
			}

			var err error
			appended, err = tx.AppendEntries(ctx, entries)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateBilling(ctx, bookingID)
	metrics.LedgerEntriesAppended.WithLabelValues(string(models.LedgerEntryTypeExtraCharge)).Add(float64(len(appended)))
	return appended, nil
}

// RecordOfflineCollection appends one offline collection entry. It does not
// touch paid_amount: that field tracks gateway-captured money only.
func (s *BillingService) RecordOfflineCollection(ctx context.Context, bookingID int, req *models.RecordOfflineCollectionRequest) (*models.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if strings.TrimSpace(req.CollectedBy) == "" {
		return nil, fmt.Errorf("%w: collected_by must not be blank", models.ErrValidation)
	}
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, req.PaymentMethod)
	}

	var appended *models.LedgerEntry
	err := withConflictRetry(func() error {
		return s.store.WithBookingLock(ctx, bookingID, func(tx LedgerTx) error {
			if !tx.Booking().IsBillingMutable() {
				return fmt.Errorf("%w: booking %d is %s", models.ErrInvalidState, bookingID, tx.Booking().Status)
			}

			entries, err := tx.AppendEntries(ctx, []models.LedgerEntry{{
				BookingID:     bookingID,
				EntryType:     models.LedgerEntryTypeOfflineCollection,
				Amount:        req.Amount,
				CollectedBy:   strings.TrimSpace(req.CollectedBy),
				PaymentMethod: req.PaymentMethod,
				Notes:         req.Notes,
			}})
			if err != nil {
				return err
			}
			appended = &entries[0]
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateBilling(ctx, bookingID)
	metrics.LedgerEntriesAppended.WithLabelValues(string(models.LedgerEntryTypeOfflineCollection)).Inc()
	return appended, nil
}

// GetBookingBilling composes the reconciliation view: booking, entries in
// append order, and totals folded from the log. Read-only.
func (s *BillingService) GetBookingBilling(ctx context.Context, bookingID int) (*models.BookingBilling, error) {
	if view := cache.GetBillingView(ctx, bookingID); view != nil {
		return view, nil
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	totals := models.ComputeTotals(booking.BaseAmount, booking.PaidAmount, entries)
	view := &models.BookingBilling{
		BookingID:           booking.ID,
		Reference:           booking.Reference,
		BookingType:         booking.BookingType,
		Status:              booking.Status,
		BaseAmount:          booking.BaseAmount,
		PaidAmount:          booking.PaidAmount,
		TotalPayable:        totals.TotalPayable,
		PendingRefundAmount: totals.PendingRefundAmount,
		AvailableForRefund:  totals.AvailableForRefund,
		Entries:             entries,
	}

	cache.SetBillingView(ctx, view)
	return view, nil
}

// now is used by refund timing derivations; kept here so all services share
// the same clock source.
var now = timeutil.Now
