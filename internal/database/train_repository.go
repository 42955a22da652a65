package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/railbook/railway-booking-backend/internal/models"
)

// ErrTrainNotFound is returned when a referenced train does not exist
var ErrTrainNotFound = errors.New("train not found")

// TrainRepository handles database operations for the trains table
type TrainRepository struct {
	db *sqlx.DB
}

// NewTrainRepository creates a new TrainRepository
func NewTrainRepository(db *sqlx.DB) *TrainRepository {
	return &TrainRepository{db: db}
}

// Create inserts a new train and fills in its assigned id
func (r *TrainRepository) Create(train *models.Train) error {
	query := `
		INSERT INTO trains (train_name, source_station, destination_station, total_seats)
		VALUES ($1, $2, $3, $4)
		RETURNING train_id, created_at`

	err := r.db.QueryRow(
		query,
		train.TrainName, train.SourceStation, train.DestinationStation, train.TotalSeats,
	).Scan(&train.ID, &train.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create train: %w", err)
	}

	return nil
}

// GetByID retrieves a train by ID
func (r *TrainRepository) GetByID(trainID int64) (*models.Train, error) {
	train := &models.Train{}
	query := `
		SELECT train_id, train_name, source_station, destination_station, total_seats, created_at
		FROM trains
		WHERE train_id = $1`

	err := r.db.Get(train, query, trainID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrainNotFound
		}
		return nil, fmt.Errorf("failed to fetch train: %w", err)
	}

	return train, nil
}

// ListByRoute retrieves all trains running between two stations
func (r *TrainRepository) ListByRoute(source, destination string) ([]models.Train, error) {
	query := `
		SELECT train_id, train_name, source_station, destination_station, total_seats, created_at
		FROM trains
		WHERE source_station = $1 AND destination_station = $2
		ORDER BY train_name`

	trains := []models.Train{}
	if err := r.db.Select(&trains, query, source, destination); err != nil {
		return nil, fmt.Errorf("failed to list trains: %w", err)
	}

	return trains, nil
}
