package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quartermaster/booking-backend/internal/models"
)

// BoatRepository handles boat and boat-level pricing operations
type BoatRepository struct {
	db DB
}

// NewBoatRepository creates a new BoatRepository
func NewBoatRepository(db DB) *BoatRepository {
	return &BoatRepository{db: db}
}

// GetByID returns a boat by id
func (r *BoatRepository) GetByID(id string) (*models.Boat, error) {
	var boat models.Boat
	err := r.db.Get(&boat, `SELECT * FROM boats WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: boat %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get boat: %w", err)
	}
	return &boat, nil
}

// ListPricing returns the boat-level pricing rows for a boat
func (r *BoatRepository) ListPricing(boatID string) ([]models.BoatPricing, error) {
	var pricing []models.BoatPricing
	err := r.db.Select(&pricing, `
		SELECT * FROM boat_pricing
		WHERE boat_id = $1
		ORDER BY ticket_type ASC`, boatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boat pricing: %w", err)
	}
	return pricing, nil
}

// UpsertPricing creates or updates the pricing row for one ticket type.
// Capacity 0 is stored as-is and means the type is unrestricted.
func (r *BoatRepository) UpsertPricing(boatID string, req *models.CreateBoatPricingRequest) (*models.BoatPricing, error) {
	var pricing models.BoatPricing
	err := r.db.QueryRow(`
		INSERT INTO boat_pricing (boat_id, ticket_type, price_cents, capacity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (boat_id, ticket_type)
		DO UPDATE SET price_cents = EXCLUDED.price_cents,
		              capacity = EXCLUDED.capacity,
		              updated_at = now()
		RETURNING id, boat_id, ticket_type, price_cents, capacity, created_at, updated_at`,
		boatID, req.TicketType, req.PriceCents, req.Capacity,
	).Scan(&pricing.ID, &pricing.BoatID, &pricing.TicketType, &pricing.PriceCents,
		&pricing.Capacity, &pricing.CreatedAt, &pricing.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert boat pricing: %w", err)
	}
	return &pricing, nil
}

// DeletePricing removes the pricing row for one ticket type
func (r *BoatRepository) DeletePricing(boatID, ticketType string) error {
	result, err := r.db.Exec(`
		DELETE FROM boat_pricing WHERE boat_id = $1 AND ticket_type = $2`,
		boatID, ticketType)
	if err != nil {
		return fmt.Errorf("failed to delete boat pricing: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: boat pricing %s/%s", models.ErrNotFound, boatID, ticketType)
	}
	return nil
}

// RenameTicketType renames a ticket type on a boat and cascades the rename
// to trip-level overrides and booked items so ledger aggregation stays
// consistent.
func (r *BoatRepository) RenameTicketType(boatID, oldType, newType string) error {
	_, err := r.db.Exec(`
		UPDATE boat_pricing SET ticket_type = $3, updated_at = now()
		WHERE boat_id = $1 AND ticket_type = $2`, boatID, oldType, newType)
	if err != nil {
		return fmt.Errorf("failed to rename boat pricing type: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE trip_boat_pricing SET ticket_type = $3, updated_at = now()
		WHERE ticket_type = $2
		  AND trip_boat_id IN (SELECT id FROM trip_boats WHERE boat_id = $1)`,
		boatID, oldType, newType)
	if err != nil {
		return fmt.Errorf("failed to cascade rename to trip boat pricing: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE booking_items SET item_type = $3, updated_at = now()
		WHERE item_type = $2 AND boat_id = $1 AND trip_merchandise_id IS NULL`,
		boatID, oldType, newType)
	if err != nil {
		return fmt.Errorf("failed to cascade rename to booking items: %w", err)
	}

	return nil
}
