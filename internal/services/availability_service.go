package services

import (
	"time"

	"github.com/railbook/railway-booking-backend/internal/models"
)

// TrainStore is the read-side train access the availability service needs
type TrainStore interface {
	GetByID(trainID int64) (*models.Train, error)
	ListByRoute(source, destination string) ([]models.Train, error)
}

// BookingCounter counts bookings for a train and date outside any transaction
type BookingCounter interface {
	CountBookings(trainID int64, date time.Time) (int, error)
}

// AvailabilityService reports remaining seats per train per date. Results are
// unlocked point-in-time reads, never reservations.
type AvailabilityService struct {
	trains   TrainStore
	bookings BookingCounter
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(trains TrainStore, bookings BookingCounter) *AvailabilityService {
	return &AvailabilityService{
		trains:   trains,
		bookings: bookings,
	}
}

// AvailableSeats returns total_seats minus booked seats for one train,
// floored at zero
func (s *AvailabilityService) AvailableSeats(trainID int64, date time.Time) (int, error) {
	train, err := s.trains.GetByID(trainID)
	if err != nil {
		return 0, err
	}

	booked, err := s.bookings.CountBookings(trainID, date)
	if err != nil {
		return 0, err
	}

	available := train.TotalSeats - booked
	if available < 0 {
		available = 0
	}

	return available, nil
}

// SearchByRoute returns availability for every train between two stations on
// the given date
func (s *AvailabilityService) SearchByRoute(source, destination string, date time.Time) ([]models.TrainAvailability, error) {
	trains, err := s.trains.ListByRoute(source, destination)
	if err != nil {
		return nil, err
	}

	availability := make([]models.TrainAvailability, 0, len(trains))
	for _, train := range trains {
		booked, err := s.bookings.CountBookings(train.ID, date)
		if err != nil {
			return nil, err
		}

		available := train.TotalSeats - booked
		if available < 0 {
			available = 0
		}

		availability = append(availability, models.TrainAvailability{
			TrainID:        train.ID,
			TrainName:      train.TrainName,
			AvailableSeats: available,
		})
	}

	return availability, nil
}
