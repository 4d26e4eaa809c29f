package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"booking-backend/internal/cache"
	"booking-backend/internal/metrics"
	"booking-backend/internal/models"
)

const fallbackEstimatedDays = 7

// RefundService owns the refund state machine. A refund is a ledger entry
// whose lifecycle columns advance pending → processing → {completed|failed};
// its amount and reason never change after append.
type RefundService struct {
	store    LedgerStore
	settings SettingsReader
	notifier RefundNotifier
}

func NewRefundService(store LedgerStore, settings SettingsReader, notifier RefundNotifier) *RefundService {
	return &RefundService{store: store, settings: settings, notifier: notifier}
}

// newRefundID generates a unique refund identifier, e.g. RF-9F2C41A8B301
func newRefundID() string {
	buf := make([]byte, 6)
	rand.Read(buf)
	return "RF-" + strings.ToUpper(hex.EncodeToString(buf))
}

// defaultEstimatedDays reads the configured settlement estimate shown to the
// customer at request time. The authoritative value is set by the operator
// on the processing transition.
func (s *RefundService) defaultEstimatedDays(ctx context.Context) int {
	if s.settings == nil {
		return fallbackEstimatedDays
	}
	setting, err := s.settings.Get(ctx, models.SettingRefundDefaultEstimatedDays)
	if err != nil || setting == nil {
		return fallbackEstimatedDays
	}
	days, err := strconv.Atoi(setting.SettingValue)
	if err != nil || days <= 0 {
		return fallbackEstimatedDays
	}
	return days
}

// RequestRefund validates the amount against availableForRefund and appends
// a pending refund entry. The balance check and the append run inside the
// per-booking lock, so two concurrent requests cannot jointly overdraw the
// paid amount: the second request revalidates against a ledger that already
// contains the first.
func (s *RefundService) RequestRefund(ctx context.Context, bookingID int, req *models.RequestRefundRequest) (*models.Refund, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("%w: reason must not be blank", models.ErrValidation)
	}

	var entry models.LedgerEntry
	err := withConflictRetry(func() error {
		return s.store.WithBookingLock(ctx, bookingID, func(tx LedgerTx) error {
			booking := tx.Booking()
			if !booking.IsBillingMutable() {
				return fmt.Errorf("%w: booking %d is %s", models.ErrInvalidState, bookingID, booking.Status)
			}

			entries, err := tx.Entries(ctx)
			if err != nil {
				return err
			}
			totals := models.ComputeTotals(booking.BaseAmount, booking.PaidAmount, entries)
			if req.Amount > totals.AvailableForRefund {
				return fmt.Errorf("%w: requested %.2f, available %.2f",
					models.ErrInsufficientBalance, req.Amount, totals.AvailableForRefund)
			}

			requestedAt := now()
			appended, err := tx.AppendEntries(ctx, []models.LedgerEntry{{
				BookingID:     bookingID,
				EntryType:     models.LedgerEntryTypeRefund,
				Amount:        req.Amount,
				RefundID:      newRefundID(),
				RefundState:   models.RefundStatePending,
				Reason:        strings.TrimSpace(req.Reason),
				EstimatedDays: s.defaultEstimatedDays(ctx),
				RequestedAt:   &requestedAt,
			}})
			if err != nil {
				return err
			}
			entry = appended[0]
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateBilling(ctx, bookingID)
	metrics.LedgerEntriesAppended.WithLabelValues(string(models.LedgerEntryTypeRefund)).Inc()
	s.notify(&entry)

	return models.RefundFromEntry(&entry, now()), nil
}

// AdvanceRefund applies one transition from the table in models/refund.go.
// Terminal states reject every further attempt with ErrInvalidTransition;
// failed entries are retained so historical totals stay auditable.
func (s *RefundService) AdvanceRefund(ctx context.Context, refundID string, req *models.AdvanceRefundRequest) (*models.Refund, error) {
	if !req.TargetState.IsValid() {
		return nil, fmt.Errorf("%w: unknown state %q", models.ErrValidation, req.TargetState)
	}
	if req.TargetState == models.RefundStatePending {
		return nil, fmt.Errorf("%w: cannot transition back to pending", models.ErrInvalidTransition)
	}

	var entry models.LedgerEntry
	err := withConflictRetry(func() error {
		return s.store.WithRefundLock(ctx, refundID, func(tx LedgerTx, refund *models.LedgerEntry) error {
			if !refund.RefundState.CanTransitionTo(req.TargetState) {
				return fmt.Errorf("%w: %s → %s", models.ErrInvalidTransition, refund.RefundState, req.TargetState)
			}

			upd := models.RefundLifecycleUpdate{
				State:         req.TargetState,
				EstimatedDays: refund.EstimatedDays,
				ProcessedAt:   refund.ProcessedAt,
			}
			commitTime := now()

			switch req.TargetState {
			case models.RefundStateProcessing:
				if req.EstimatedDays <= 0 {
					return fmt.Errorf("%w: estimated_days is required when moving to processing", models.ErrValidation)
				}
				upd.EstimatedDays = req.EstimatedDays
				upd.ProcessedAt = &commitTime
			case models.RefundStateCompleted:
				upd.CompletedAt = &commitTime
			case models.RefundStateFailed:
				detail := strings.TrimSpace(req.FailureDetail)
				if detail == "" {
					// A refund already handed to the gateway fails for a
					// reason the operator must record; only a pending
					// refund can be dropped without one.
					if refund.RefundState == models.RefundStateProcessing {
						return fmt.Errorf("%w: failure_detail is required when failing a processing refund", models.ErrValidation)
					}
					detail = "cancelled by operator"
				}
				upd.FailureDetail = detail
			}

			if err := tx.UpdateRefundLifecycle(ctx, refundID, upd); err != nil {
				return err
			}

			entry = *refund
			entry.RefundState = upd.State
			entry.EstimatedDays = upd.EstimatedDays
			entry.ProcessedAt = upd.ProcessedAt
			entry.CompletedAt = upd.CompletedAt
			entry.FailureDetail = upd.FailureDetail
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateBilling(ctx, entry.BookingID)
	metrics.RefundTransitions.WithLabelValues(string(req.TargetState)).Inc()
	s.notify(&entry)

	return models.RefundFromEntry(&entry, now()), nil
}

// GetRefund returns the read-side view of one refund, with the overdue flag
// derived against the current time.
func (s *RefundService) GetRefund(ctx context.Context, refundID string) (*models.Refund, error) {
	entry, err := s.store.GetRefundEntry(ctx, refundID)
	if err != nil {
		return nil, err
	}
	return models.RefundFromEntry(entry, now()), nil
}

// ListRefunds returns refund views matching the filter
func (s *RefundService) ListRefunds(ctx context.Context, filter *models.LedgerFilter) ([]*models.Refund, error) {
	entries, err := s.store.ListRefundEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	at := now()
	refunds := make([]*models.Refund, 0, len(entries))
	for i := range entries {
		refunds = append(refunds, models.RefundFromEntry(&entries[i], at))
	}
	return refunds, nil
}

// ListOverdueRefunds returns processing refunds whose expected completion
// date has passed, for operator follow-up. The flag is derived on read,
// never stored.
func (s *RefundService) ListOverdueRefunds(ctx context.Context) ([]*models.Refund, error) {
	refunds, err := s.ListRefunds(ctx, &models.LedgerFilter{State: models.RefundStateProcessing})
	if err != nil {
		return nil, err
	}
	overdue := refunds[:0]
	for _, r := range refunds {
		if r.Overdue {
			overdue = append(overdue, r)
		}
	}
	return overdue, nil
}

// GetRefundStatistics aggregates count and amount by state, plus the derived
// overdue count. The overdue count honors the filter's booking and date
// bounds, like the stored aggregates.
func (s *RefundService) GetRefundStatistics(ctx context.Context, filter *models.LedgerFilter) (*models.RefundStatistics, error) {
	stats, err := s.store.RefundStatistics(ctx, filter)
	if err != nil {
		return nil, err
	}

	overdueFilter := models.LedgerFilter{}
	if filter != nil {
		overdueFilter = *filter
	}
	overdueFilter.State = models.RefundStateProcessing
	overdueFilter.Limit = 0
	overdueFilter.Offset = 0

	refunds, err := s.ListRefunds(ctx, &overdueFilter)
	if err != nil {
		return nil, err
	}
	for _, r := range refunds {
		if r.Overdue {
			stats.OverdueCount++
		}
	}
	return stats, nil
}

func (s *RefundService) notify(entry *models.LedgerEntry) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyRefundEvent(models.RefundEvent{
		RefundID:  entry.RefundID,
		BookingID: entry.BookingID,
		Amount:    entry.Amount,
		State:     entry.RefundState,
		At:        now(),
	})
}
