package models

import "time"

// Train represents a train with a fixed seat capacity.
// Capacity is immutable after creation; there is no resize operation.
type Train struct {
	ID                 int64     `json:"train_id" db:"train_id"`
	TrainName          string    `json:"train_name" db:"train_name"`
	SourceStation      string    `json:"source_station" db:"source_station"`
	DestinationStation string    `json:"destination_station" db:"destination_station"`
	TotalSeats         int       `json:"total_seats" db:"total_seats"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// TrainAvailability reports remaining seats on a train for a given date.
// It is a point-in-time estimate, not a reservation.
type TrainAvailability struct {
	TrainID        int64  `json:"train_id"`
	TrainName      string `json:"train_name"`
	AvailableSeats int    `json:"available_seats"`
}

// CreateTrainRequest represents an admin train creation request
type CreateTrainRequest struct {
	TrainName          string `json:"train_name" binding:"required"`
	SourceStation      string `json:"source_station" binding:"required"`
	DestinationStation string `json:"destination_station" binding:"required"`
	TotalSeats         int    `json:"total_seats" binding:"required,gt=0"`
}
