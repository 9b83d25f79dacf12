package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/quartermaster/booking-backend/internal/models"
)

// TripRepository handles trip, trip-boat assignment and trip-level pricing
// operations
type TripRepository struct {
	db DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db DB) *TripRepository {
	return &TripRepository{db: db}
}

// GetByID returns a trip by id
func (r *TripRepository) GetByID(id string) (*models.Trip, error) {
	var trip models.Trip
	err := r.db.Get(&trip, `SELECT * FROM trips WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: trip %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// GetByIDs returns the trips for a set of ids, keyed by id
func (r *TripRepository) GetByIDs(ids []string) (map[string]*models.Trip, error) {
	if len(ids) == 0 {
		return map[string]*models.Trip{}, nil
	}
	var trips []models.Trip
	err := r.db.Select(&trips, `SELECT * FROM trips WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get trips: %w", err)
	}
	result := make(map[string]*models.Trip, len(trips))
	for i := range trips {
		result[trips[i].ID] = &trips[i]
	}
	return result, nil
}

// ListTripBoats returns all boat assignments for a trip
func (r *TripRepository) ListTripBoats(tripID string) ([]models.TripBoat, error) {
	var tripBoats []models.TripBoat
	err := r.db.Select(&tripBoats, `
		SELECT * FROM trip_boats WHERE trip_id = $1 ORDER BY created_at ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip boats: %w", err)
	}
	return tripBoats, nil
}

// GetTripBoat returns the assignment of a boat to a trip
func (r *TripRepository) GetTripBoat(tripID, boatID string) (*models.TripBoat, error) {
	var tripBoat models.TripBoat
	err := r.db.Get(&tripBoat, `
		SELECT * FROM trip_boats WHERE trip_id = $1 AND boat_id = $2`, tripID, boatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: boat %s is not assigned to trip %s", models.ErrNotFound, boatID, tripID)
		}
		return nil, fmt.Errorf("failed to get trip boat: %w", err)
	}
	return &tripBoat, nil
}

// GetTripBoatByID returns a trip-boat assignment by its own id
func (r *TripRepository) GetTripBoatByID(id string) (*models.TripBoat, error) {
	var tripBoat models.TripBoat
	err := r.db.Get(&tripBoat, `SELECT * FROM trip_boats WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: trip boat %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get trip boat: %w", err)
	}
	return &tripBoat, nil
}

// CreateTripBoat assigns a boat to a trip
func (r *TripRepository) CreateTripBoat(tripBoat *models.TripBoat) error {
	err := r.db.QueryRow(`
		INSERT INTO trip_boats (trip_id, boat_id, max_capacity, use_only_trip_pricing)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		tripBoat.TripID, tripBoat.BoatID, tripBoat.MaxCapacity, tripBoat.UseOnlyTripPricing,
	).Scan(&tripBoat.ID, &tripBoat.CreatedAt, &tripBoat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trip boat: %w", err)
	}
	return nil
}

// UpdateTripBoat updates an assignment's capacity override and pricing flag
func (r *TripRepository) UpdateTripBoat(tripBoat *models.TripBoat) error {
	result, err := r.db.Exec(`
		UPDATE trip_boats
		SET max_capacity = $2, use_only_trip_pricing = $3, updated_at = now()
		WHERE id = $1`,
		tripBoat.ID, tripBoat.MaxCapacity, tripBoat.UseOnlyTripPricing)
	if err != nil {
		return fmt.Errorf("failed to update trip boat: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: trip boat %s", models.ErrNotFound, tripBoat.ID)
	}
	return nil
}

// DeleteTripBoat removes a boat assignment. Callers must verify no ticket
// items are booked on it first.
func (r *TripRepository) DeleteTripBoat(id string) error {
	result, err := r.db.Exec(`DELETE FROM trip_boats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip boat: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: trip boat %s", models.ErrNotFound, id)
	}
	return nil
}

// ListTripBoatPricing returns the trip-level pricing overrides for an
// assignment
func (r *TripRepository) ListTripBoatPricing(tripBoatID string) ([]models.TripBoatPricing, error) {
	var pricing []models.TripBoatPricing
	err := r.db.Select(&pricing, `
		SELECT * FROM trip_boat_pricing
		WHERE trip_boat_id = $1
		ORDER BY ticket_type ASC`, tripBoatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip boat pricing: %w", err)
	}
	return pricing, nil
}

// UpsertTripBoatPricing creates or updates one ticket-type override.
// A nil capacity inherits the boat-level capacity for that type.
func (r *TripRepository) UpsertTripBoatPricing(p *models.TripBoatPricing) error {
	err := r.db.QueryRow(`
		INSERT INTO trip_boat_pricing (trip_boat_id, ticket_type, price_cents, capacity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trip_boat_id, ticket_type)
		DO UPDATE SET price_cents = EXCLUDED.price_cents,
		              capacity = EXCLUDED.capacity,
		              updated_at = now()
		RETURNING id, created_at, updated_at`,
		p.TripBoatID, p.TicketType, p.PriceCents, p.Capacity,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert trip boat pricing: %w", err)
	}
	return nil
}

// DeleteTripBoatPricing removes one ticket-type override
func (r *TripRepository) DeleteTripBoatPricing(tripBoatID, ticketType string) error {
	result, err := r.db.Exec(`
		DELETE FROM trip_boat_pricing WHERE trip_boat_id = $1 AND ticket_type = $2`,
		tripBoatID, ticketType)
	if err != nil {
		return fmt.Errorf("failed to delete trip boat pricing: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: trip boat pricing %s/%s", models.ErrNotFound, tripBoatID, ticketType)
	}
	return nil
}
