package services

import (
	"context"

	"booking-backend/internal/models"
)

// LedgerStore is the persistence boundary for the billing ledger. The
// postgres implementation lives in internal/repositories; tests use an
// in-memory implementation with the same locking semantics.
type LedgerStore interface {
	GetBooking(ctx context.Context, bookingID int) (*models.Booking, error)
	ListEntries(ctx context.Context, bookingID int) ([]models.LedgerEntry, error)
	GetRefundEntry(ctx context.Context, refundID string) (*models.LedgerEntry, error)
	ListRefundEntries(ctx context.Context, filter *models.LedgerFilter) ([]models.LedgerEntry, error)
	// RefundStatistics aggregates refund count and amount by state,
	// honoring the filter's booking and date bounds.
	RefundStatistics(ctx context.Context, filter *models.LedgerFilter) (*models.RefundStatistics, error)

	// WithBookingLock runs fn under the per-booking serialization boundary:
	// the booking row stays locked until fn returns and the transaction
	// commits, so a read-validate-append sequence inside fn is atomic with
	// respect to all other writes on the same booking. Returns
	// models.ErrNotFound if the booking does not exist and
	// models.ErrConcurrencyConflict if the lock race is lost.
	WithBookingLock(ctx context.Context, bookingID int, fn func(tx LedgerTx) error) error

	// WithRefundLock resolves the refund to its booking and then behaves
	// like WithBookingLock, passing the current refund entry to fn.
	WithRefundLock(ctx context.Context, refundID string, fn func(tx LedgerTx, refund *models.LedgerEntry) error) error
}

// LedgerTx is the write surface available inside a per-booking lock
type LedgerTx interface {
	// Booking returns the locked booking row as read at lock time
	Booking() *models.Booking
	Entries(ctx context.Context) ([]models.LedgerEntry, error)
	AppendEntries(ctx context.Context, entries []models.LedgerEntry) ([]models.LedgerEntry, error)
	UpdateRefundLifecycle(ctx context.Context, refundID string, upd models.RefundLifecycleUpdate) error
	// InsertPaymentEvent returns false when the gateway payment id was
	// already recorded (duplicate webhook delivery).
	InsertPaymentEvent(ctx context.Context, ev *models.PaymentEvent) (bool, error)
	AddPaidAmount(ctx context.Context, amount float64) error
}

// SettingsReader is the subset of the settings repository the billing
// services consult.
type SettingsReader interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
}

// SettingsStore is the full settings surface, used by the settings service
type SettingsStore interface {
	SettingsReader
	List(ctx context.Context) ([]*models.SystemSetting, error)
	Update(ctx context.Context, key string, value string, userID int) error
}

// UserStore is the persistence surface for operator accounts
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EnableTOTP(ctx context.Context, userID int, secret string) error
}

// RefundNotifier receives refund lifecycle events for the monitoring feed.
// Implementations must not block.
type RefundNotifier interface {
	NotifyRefundEvent(ev models.RefundEvent)
}
