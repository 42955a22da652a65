package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/railbook/railway-booking-backend/internal/models"
)

// ErrDuplicateBooking is returned when a user already holds a booking for the
// same train and date. The (user_id, train_id, booking_date) unique index
// enforces this independently of the capacity check; a duplicate submission
// passes the seat count while seats remain, so the count alone cannot catch it.
var ErrDuplicateBooking = errors.New("duplicate booking for this train and date")

// BookingTx is one unit of work against the bookings ledger. Exactly one of
// Commit or Rollback must terminate it; the train row lock taken by LockTrain
// is held until then.
type BookingTx interface {
	// LockTrain takes an exclusive row lock on the train, serializing all
	// concurrent booking decisions for it, and returns the locked train.
	LockTrain(trainID int64) (*models.Train, error)

	// CountBookings counts bookings for the train and date inside this
	// transaction, so the result reflects every previously committed booking.
	CountBookings(trainID int64, date time.Time) (int, error)

	// InsertBooking appends a booking row. A unique violation on
	// (user_id, train_id, booking_date) is reported as ErrDuplicateBooking.
	InsertBooking(trainID, userID int64, date time.Time) (*models.Booking, error)

	Commit() error
	Rollback() error
}

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Begin starts a new booking transaction
func (r *BookingRepository) Begin() (BookingTx, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &bookingTx{tx: tx}, nil
}

type bookingTx struct {
	tx *sqlx.Tx
}

func (t *bookingTx) LockTrain(trainID int64) (*models.Train, error) {
	train := &models.Train{}
	query := `
		SELECT train_id, train_name, source_station, destination_station, total_seats, created_at
		FROM trains
		WHERE train_id = $1
		FOR UPDATE`

	err := t.tx.Get(train, query, trainID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrainNotFound
		}
		return nil, fmt.Errorf("failed to lock train: %w", err)
	}

	return train, nil
}

func (t *bookingTx) CountBookings(trainID int64, date time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE train_id = $1 AND booking_date = $2`

	if err := t.tx.Get(&count, query, trainID, date); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}

func (t *bookingTx) InsertBooking(trainID, userID int64, date time.Time) (*models.Booking, error) {
	booking := &models.Booking{
		TrainID:     trainID,
		UserID:      userID,
		BookingDate: date,
	}

	query := `
		INSERT INTO bookings (train_id, user_id, booking_date)
		VALUES ($1, $2, $3)
		RETURNING booking_id, created_at`

	err := t.tx.QueryRow(query, trainID, userID, date).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}

	return booking, nil
}

func (t *bookingTx) Commit() error {
	return t.tx.Commit()
}

func (t *bookingTx) Rollback() error {
	return t.tx.Rollback()
}

// ============================================================================
// READ PATH (outside any transaction)
// ============================================================================

// ErrBookingNotFound is returned when a booking does not exist
var ErrBookingNotFound = errors.New("booking not found")

// GetDetailByID retrieves a booking joined with its train and user
func (r *BookingRepository) GetDetailByID(bookingID int64) (*models.BookingDetail, error) {
	detail := &models.BookingDetail{}
	query := `
		SELECT b.booking_id, b.user_id, u.username, b.train_id, t.train_name,
		       t.source_station, t.destination_station, b.booking_date, b.created_at
		FROM bookings b
		JOIN users u ON b.user_id = u.user_id
		JOIN trains t ON b.train_id = t.train_id
		WHERE b.booking_id = $1`

	err := r.db.Get(detail, query, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}

	return detail, nil
}

// GetByUserID retrieves all bookings for a user, newest first
func (r *BookingRepository) GetByUserID(userID int64) ([]models.BookingDetail, error) {
	query := `
		SELECT b.booking_id, b.user_id, u.username, b.train_id, t.train_name,
		       t.source_station, t.destination_station, b.booking_date, b.created_at
		FROM bookings b
		JOIN users u ON b.user_id = u.user_id
		JOIN trains t ON b.train_id = t.train_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC`

	bookings := []models.BookingDetail{}
	if err := r.db.Select(&bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}

// CountBookings counts bookings for a train and date without locking. Callers
// must treat the result as a point-in-time estimate; only the transactional
// path performs a binding capacity check.
func (r *BookingRepository) CountBookings(trainID int64, date time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE train_id = $1 AND booking_date = $2`

	if err := r.db.Get(&count, query, trainID, date); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}
