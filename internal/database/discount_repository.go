package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quartermaster/booking-backend/internal/models"
)

// DiscountRepository handles discount and access code database operations
type DiscountRepository struct {
	db DB
}

// NewDiscountRepository creates a new DiscountRepository
func NewDiscountRepository(db DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// GetByCode returns a discount code matched case-insensitively
func (r *DiscountRepository) GetByCode(code string) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	err := r.db.Get(&discount, `
		SELECT * FROM discount_codes WHERE upper(code) = upper($1)`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: discount code %s", models.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to get discount code: %w", err)
	}
	return &discount, nil
}

// IncrementUsage bumps a code's usage counter
func (r *DiscountRepository) IncrementUsage(id string) error {
	_, err := r.db.Exec(`
		UPDATE discount_codes SET times_used = times_used + 1, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment discount usage: %w", err)
	}
	return nil
}
