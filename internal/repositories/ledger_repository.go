package repositories

import (
	"context"
	"errors"
	"fmt"

	"booking-backend/internal/models"
	"booking-backend/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ledgerEntryColumns = `
	id, booking_id, entry_type, amount,
	COALESCE(description, ''), COALESCE(added_by_user_id, 0), COALESCE(added_by_name, ''),
	COALESCE(collected_by, ''), COALESCE(payment_method, ''), COALESCE(notes, ''),
	COALESCE(refund_id, ''), COALESCE(refund_state, ''), COALESCE(reason, ''),
	COALESCE(estimated_days, 0), requested_at, processed_at, completed_at,
	COALESCE(failure_detail, ''), created_at`

type LedgerRepository struct {
	DB *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

// mapPgError translates driver errors into the sentinel errors the service
// layer branches on. Serialization and deadlock failures become
// ErrConcurrencyConflict so the caller's single retry kicks in.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", models.ErrConcurrencyConflict, pgErr.Code)
		}
	}
	return err
}

func scanLedgerEntry(row pgx.Row) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(
		&e.ID, &e.BookingID, &e.EntryType, &e.Amount,
		&e.Description, &e.AddedByUserID, &e.AddedByName,
		&e.CollectedBy, &e.PaymentMethod, &e.Notes,
		&e.RefundID, &e.RefundState, &e.Reason,
		&e.EstimatedDays, &e.RequestedAt, &e.ProcessedAt, &e.CompletedAt,
		&e.FailureDetail, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.Reference, &b.BookingType, &b.CustomerName, &b.CustomerPhone,
		&b.BaseAmount, &b.PaidAmount, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *LedgerRepository) GetBooking(ctx context.Context, bookingID int) (*models.Booking, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, reference, booking_type, customer_name, customer_phone,
		       base_amount, paid_amount, status, created_at, updated_at
		FROM bookings WHERE id = $1`, bookingID)
	booking, err := scanBooking(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return booking, nil
}

// ListEntries returns every ledger entry for a booking in append order
func (r *LedgerRepository) ListEntries(ctx context.Context, bookingID int) ([]models.LedgerEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+ledgerEntryColumns+`
		FROM ledger_entries
		WHERE booking_id = $1
		ORDER BY id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *LedgerRepository) GetRefundEntry(ctx context.Context, refundID string) (*models.LedgerEntry, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+ledgerEntryColumns+`
		FROM ledger_entries
		WHERE entry_type = $1 AND refund_id = $2`,
		models.LedgerEntryTypeRefund, refundID)
	entry, err := scanLedgerEntry(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return entry, nil
}

// ListRefundEntries returns refund entries matching the filter, most recent
// request first.
func (r *LedgerRepository) ListRefundEntries(ctx context.Context, filter *models.LedgerFilter) ([]models.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerEntryColumns + `
		FROM ledger_entries
		WHERE entry_type = $1`
	args := []interface{}{models.LedgerEntryTypeRefund}
	argNum := 2

	if filter != nil {
		if filter.BookingID != nil {
			query += fmt.Sprintf(" AND booking_id = $%d", argNum)
			args = append(args, *filter.BookingID)
			argNum++
		}
		if filter.State != "" {
			query += fmt.Sprintf(" AND refund_state = $%d", argNum)
			args = append(args, filter.State)
			argNum++
		}
		if filter.StartDate != nil {
			query += fmt.Sprintf(" AND requested_at >= $%d", argNum)
			args = append(args, *filter.StartDate)
			argNum++
		}
		if filter.EndDate != nil {
			query += fmt.Sprintf(" AND requested_at <= $%d", argNum)
			args = append(args, *filter.EndDate)
			argNum++
		}
	}

	query += " ORDER BY requested_at DESC, id DESC"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argNum)
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// RefundStatistics aggregates refund count and amount by state
func (r *LedgerRepository) RefundStatistics(ctx context.Context, filter *models.LedgerFilter) (*models.RefundStatistics, error) {
	query := `
		SELECT refund_state, COUNT(*), COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE entry_type = $1`
	args := []interface{}{models.LedgerEntryTypeRefund}
	argNum := 2

	if filter != nil {
		if filter.BookingID != nil {
			query += fmt.Sprintf(" AND booking_id = $%d", argNum)
			args = append(args, *filter.BookingID)
			argNum++
		}
		if filter.StartDate != nil {
			query += fmt.Sprintf(" AND requested_at >= $%d", argNum)
			args = append(args, *filter.StartDate)
			argNum++
		}
		if filter.EndDate != nil {
			query += fmt.Sprintf(" AND requested_at <= $%d", argNum)
			args = append(args, *filter.EndDate)
		}
	}
	query += " GROUP BY refund_state"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate refund statistics: %w", err)
	}
	defer rows.Close()

	stats := &models.RefundStatistics{
		CountByState:  make(map[models.RefundState]int),
		AmountByState: make(map[models.RefundState]float64),
	}
	for rows.Next() {
		var state models.RefundState
		var count int
		var amount float64
		if err := rows.Scan(&state, &count, &amount); err != nil {
			return nil, err
		}
		stats.CountByState[state] = count
		stats.AmountByState[state] = amount
	}
	return stats, rows.Err()
}

// WithBookingLock runs fn inside a transaction holding a FOR UPDATE lock on
// the booking row. Every read and write inside fn sees and produces a
// serialized view of that booking's ledger.
func (r *LedgerRepository) WithBookingLock(ctx context.Context, bookingID int, fn func(tx services.LedgerTx) error) error {
	dbTx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	row := dbTx.QueryRow(ctx, `
		SELECT id, reference, booking_type, customer_name, customer_phone,
		       base_amount, paid_amount, status, created_at, updated_at
		FROM bookings WHERE id = $1
		FOR UPDATE`, bookingID)
	booking, err := scanBooking(row)
	if err != nil {
		return mapPgError(err)
	}

	ltx := &ledgerTx{tx: dbTx, booking: booking}
	if err := fn(ltx); err != nil {
		return mapPgError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

// WithRefundLock resolves the refund to its booking, locks that booking row
// and re-reads the refund entry inside the transaction so fn sees its
// committed state.
func (r *LedgerRepository) WithRefundLock(ctx context.Context, refundID string, fn func(tx services.LedgerTx, refund *models.LedgerEntry) error) error {
	var bookingID int
	err := r.DB.QueryRow(ctx,
		`SELECT booking_id FROM ledger_entries WHERE entry_type = $1 AND refund_id = $2`,
		models.LedgerEntryTypeRefund, refundID).Scan(&bookingID)
	if err != nil {
		return mapPgError(err)
	}

	return r.WithBookingLock(ctx, bookingID, func(tx services.LedgerTx) error {
		ltx := tx.(*ledgerTx)
		row := ltx.tx.QueryRow(ctx, `
			SELECT `+ledgerEntryColumns+`
			FROM ledger_entries
			WHERE entry_type = $1 AND refund_id = $2`,
			models.LedgerEntryTypeRefund, refundID)
		refund, err := scanLedgerEntry(row)
		if err != nil {
			return err
		}
		return fn(tx, refund)
	})
}

// ledgerTx implements services.LedgerTx over a pgx transaction
type ledgerTx struct {
	tx      pgx.Tx
	booking *models.Booking
}

func (t *ledgerTx) Booking() *models.Booking {
	return t.booking
}

func (t *ledgerTx) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+ledgerEntryColumns+`
		FROM ledger_entries
		WHERE booking_id = $1
		ORDER BY id`, t.booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (t *ledgerTx) AppendEntries(ctx context.Context, entries []models.LedgerEntry) ([]models.LedgerEntry, error) {
	appended := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		row := t.tx.QueryRow(ctx, `
			INSERT INTO ledger_entries (
				booking_id, entry_type, amount,
				description, added_by_user_id, added_by_name,
				collected_by, payment_method, notes,
				refund_id, refund_state, reason, estimated_days, requested_at
			) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, 0), NULLIF($6, ''),
			          NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''),
			          NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, 0), $14)
			RETURNING id, created_at`,
			e.BookingID, e.EntryType, e.Amount,
			e.Description, e.AddedByUserID, e.AddedByName,
			e.CollectedBy, string(e.PaymentMethod), e.Notes,
			e.RefundID, string(e.RefundState), e.Reason, e.EstimatedDays, e.RequestedAt,
		)
		if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to append ledger entry: %w", err)
		}
		appended = append(appended, e)
	}
	return appended, nil
}

func (t *ledgerTx) UpdateRefundLifecycle(ctx context.Context, refundID string, upd models.RefundLifecycleUpdate) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE ledger_entries
		SET refund_state = $1, estimated_days = $2, processed_at = $3,
		    completed_at = $4, failure_detail = NULLIF($5, '')
		WHERE entry_type = $6 AND refund_id = $7`,
		upd.State, upd.EstimatedDays, upd.ProcessedAt,
		upd.CompletedAt, upd.FailureDetail,
		models.LedgerEntryTypeRefund, refundID,
	)
	if err != nil {
		return fmt.Errorf("failed to update refund lifecycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) InsertPaymentEvent(ctx context.Context, ev *models.PaymentEvent) (bool, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO payment_events (booking_id, gateway_payment_id, amount, method, utr_number, captured_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		ON CONFLICT (gateway_payment_id) DO NOTHING
		RETURNING id, created_at`,
		ev.BookingID, ev.GatewayPaymentID, ev.Amount, ev.Method, ev.UTRNumber, ev.CapturedAt,
	)
	err := row.Scan(&ev.ID, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record payment event: %w", err)
	}
	return true, nil
}

func (t *ledgerTx) AddPaidAmount(ctx context.Context, amount float64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE bookings
		SET paid_amount = paid_amount + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`,
		amount, t.booking.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update paid amount: %w", err)
	}
	t.booking.PaidAmount += amount
	return nil
}

func collectEntries(rows pgx.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// EntriesSince returns every ledger entry created after the given id, used by
// the snapshot exporter. A zero id returns the full ledger.
func (r *LedgerRepository) EntriesSince(ctx context.Context, lastID int) ([]models.LedgerEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+ledgerEntryColumns+`
		FROM ledger_entries
		WHERE id > $1
		ORDER BY id`, lastID)
	if err != nil {
		return nil, fmt.Errorf("failed to export ledger entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}
