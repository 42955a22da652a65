package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/railbook/railway-booking-backend/internal/database"
	"github.com/railbook/railway-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// BookingDateLayout is the wire format for booking dates
const BookingDateLayout = "2006-01-02"

// Booking outcome errors. Handlers map these to HTTP classes; anything else
// is a store failure and safe to retry after backoff, since every non-success
// outcome corresponds to a rolled-back transaction.
var (
	ErrInvalidBookingDate = errors.New("invalid booking date, expected YYYY-MM-DD")
	ErrTrainNotFound      = database.ErrTrainNotFound
	ErrNoSeatsAvailable   = errors.New("no seats available on this train for the selected date")
	ErrDuplicateBooking   = database.ErrDuplicateBooking
	ErrStoreUnavailable   = errors.New("booking storage unavailable")
)

// Ledger is the transactional seam the booking service depends on. The
// production implementation is database.BookingRepository; tests substitute an
// in-memory double with the same atomicity and uniqueness guarantees.
type Ledger interface {
	Begin() (database.BookingTx, error)
}

// BookingService serializes concurrent booking attempts per train and commits
// at most total_seats bookings per (train, date)
type BookingService struct {
	ledger Ledger
	logger *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(ledger Ledger, logger *logrus.Logger) *BookingService {
	return &BookingService{
		ledger: ledger,
		logger: logger,
	}
}

// BookSeat books one seat on a train for a date on behalf of a user.
//
// The capacity check and the insert run inside a single transaction with the
// train row locked for its duration. Without the lock two concurrent calls
// could both read count < total_seats and both insert, exceeding capacity.
// The lock serializes the check-then-act per train; decisions for different
// trains proceed fully in parallel.
func (s *BookingService) BookSeat(trainID, userID int64, bookingDate string) (*models.Booking, error) {
	date, err := time.Parse(BookingDateLayout, bookingDate)
	if err != nil {
		return nil, ErrInvalidBookingDate
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrStoreUnavailable, err)
	}

	committed := false
	defer func() {
		// Rollback is the only acceptable terminal action for a unit of work
		// that did not reach commit. Retrying BookSeat afterwards is always
		// safe and re-evaluates current state.
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.WithError(rbErr).Warn("Booking transaction rollback failed")
			}
		}
	}()

	train, err := tx.LockTrain(trainID)
	if err != nil {
		if errors.Is(err, database.ErrTrainNotFound) {
			return nil, ErrTrainNotFound
		}
		return nil, fmt.Errorf("%w: lock train: %v", ErrStoreUnavailable, err)
	}

	booked, err := tx.CountBookings(trainID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: count bookings: %v", ErrStoreUnavailable, err)
	}

	if booked >= train.TotalSeats {
		return nil, ErrNoSeatsAvailable
	}

	booking, err := tx.InsertBooking(trainID, userID, date)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateBooking) {
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("%w: insert booking: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrStoreUnavailable, err)
	}
	committed = true

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"train_id":     trainID,
		"user_id":      userID,
		"booking_date": bookingDate,
		"booked_seats": booked + 1,
		"total_seats":  train.TotalSeats,
	}).Info("Seat booked")

	return booking, nil
}
