package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quartermaster/booking-backend/internal/models"
)

// AdminUserRepository handles admin user database operations
type AdminUserRepository struct {
	db DB
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByEmail retrieves an admin user by email
func (r *AdminUserRepository) GetByEmail(email string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.Get(&admin, `
		SELECT * FROM admin_users WHERE lower(email) = lower($1)`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: admin user %s", models.ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &admin, nil
}

// GetByID retrieves an admin user by id
func (r *AdminUserRepository) GetByID(id string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.Get(&admin, `SELECT * FROM admin_users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: admin user %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &admin, nil
}

// UpdateLastLogin updates the last login timestamp
func (r *AdminUserRepository) UpdateLastLogin(id string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE admin_users SET last_login_at = $1, updated_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
