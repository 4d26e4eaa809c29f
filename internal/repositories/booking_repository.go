package repositories

import (
	"context"
	"fmt"

	"booking-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	DB *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{DB: db}
}

// Create registers a booking with the ledger. Called by the booking subsystem
// when a booking is confirmed; base_amount is fixed from that point on.
func (r *BookingRepository) Create(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	bookingType := req.BookingType
	if bookingType == "" {
		bookingType = models.BookingTypeVehicleRental
	}

	booking := &models.Booking{
		Reference:     req.Reference,
		BookingType:   bookingType,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		BaseAmount:    req.BaseAmount,
		Status:        models.BookingStatusConfirmed,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO bookings (reference, booking_type, customer_name, customer_phone, base_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, paid_amount, created_at, updated_at`,
		booking.Reference, booking.BookingType, booking.CustomerName,
		booking.CustomerPhone, booking.BaseAmount, booking.Status,
	).Scan(&booking.ID, &booking.PaidAmount, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) Get(ctx context.Context, id int) (*models.Booking, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, reference, booking_type, customer_name, customer_phone,
		       base_amount, paid_amount, status, created_at, updated_at
		FROM bookings WHERE id = $1`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return booking, nil
}

func (r *BookingRepository) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, reference, booking_type, customer_name, customer_phone,
		       base_amount, paid_amount, status, created_at, updated_at
		FROM bookings WHERE reference = $1`, reference)
	booking, err := scanBooking(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return booking, nil
}

// UpdateStatus records a booking lifecycle change reported by the booking
// subsystem. Billing does not validate the booking lifecycle itself, only
// whether its own mutations are allowed against the current status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int, status models.BookingStatus) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE bookings SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// List returns bookings newest first, optionally filtered by status
func (r *BookingRepository) List(ctx context.Context, status models.BookingStatus, limit, offset int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, reference, booking_type, customer_name, customer_phone,
		       base_amount, paid_amount, status, created_at, updated_at
		FROM bookings`
	args := []interface{}{}
	argNum := 1
	if status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argNum)
		args = append(args, status)
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}
