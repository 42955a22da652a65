package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/railbook/railway-booking-backend/internal/models"
)

// User lookup and role errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrAlreadyAdmin  = errors.New("user is already an admin")
)

// UserRepository handles database operations for the users table
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with the default role
func (r *UserRepository) Create(username, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
	}

	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING user_id, role, created_at`

	err := r.db.QueryRow(query, username, passwordHash).Scan(&user.ID, &user.Role, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT user_id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1`

	err := r.db.Get(user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(userID int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT user_id, username, password_hash, role, created_at
		FROM users
		WHERE user_id = $1`

	err := r.db.Get(user, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return user, nil
}

// PromoteToAdmin updates a user's role to admin. This is the only write path
// for roles and never shares code with the booking flow.
func (r *UserRepository) PromoteToAdmin(username string) (*models.User, error) {
	current, err := r.GetByUsername(username)
	if err != nil {
		return nil, err
	}

	if current.Role == models.RoleAdmin {
		return nil, ErrAlreadyAdmin
	}

	user := &models.User{}
	query := `
		UPDATE users
		SET role = $1
		WHERE username = $2
		RETURNING user_id, username, password_hash, role, created_at`

	err = r.db.QueryRow(query, models.RoleAdmin, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	return user, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
