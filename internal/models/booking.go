package models

import "time"

// Booking represents a confirmed seat on a train for a calendar date.
// Rows are append-only; a booking is never mutated after creation.
type Booking struct {
	ID          int64     `json:"booking_id" db:"booking_id"`
	TrainID     int64     `json:"train_id" db:"train_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	BookingDate time.Time `json:"booking_date" db:"booking_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// BookingDetail is a booking joined with its train and user for display
type BookingDetail struct {
	ID                 int64     `json:"booking_id" db:"booking_id"`
	UserID             int64     `json:"user_id" db:"user_id"`
	Username           string    `json:"username" db:"username"`
	TrainID            int64     `json:"train_id" db:"train_id"`
	TrainName          string    `json:"train_name" db:"train_name"`
	SourceStation      string    `json:"source_station" db:"source_station"`
	DestinationStation string    `json:"destination_station" db:"destination_station"`
	BookingDate        time.Time `json:"booking_date" db:"booking_date"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// CreateBookingRequest represents a seat booking request.
// BookingDate must be formatted as YYYY-MM-DD.
type CreateBookingRequest struct {
	TrainID     int64  `json:"train_id" binding:"required"`
	BookingDate string `json:"booking_date" binding:"required"`
}
