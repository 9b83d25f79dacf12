package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quartermaster/booking-backend/internal/models"
)

// MissionRepository handles mission, launch, location and jurisdiction reads
type MissionRepository struct {
	db DB
}

// NewMissionRepository creates a new MissionRepository
func NewMissionRepository(db DB) *MissionRepository {
	return &MissionRepository{db: db}
}

// GetByID returns a mission by id
func (r *MissionRepository) GetByID(id string) (*models.Mission, error) {
	var mission models.Mission
	err := r.db.Get(&mission, `SELECT * FROM missions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: mission %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return &mission, nil
}

// GetForTrip returns the mission a trip belongs to
func (r *MissionRepository) GetForTrip(tripID string) (*models.Mission, error) {
	var mission models.Mission
	err := r.db.Get(&mission, `
		SELECT m.* FROM missions m
		JOIN trips t ON t.mission_id = m.id
		WHERE t.id = $1`, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: mission for trip %s", models.ErrNotFound, tripID)
		}
		return nil, fmt.Errorf("failed to get mission for trip: %w", err)
	}
	return &mission, nil
}

// GetLaunch returns a launch by id
func (r *MissionRepository) GetLaunch(id string) (*models.Launch, error) {
	var launch models.Launch
	err := r.db.Get(&launch, `SELECT * FROM launches WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: launch %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get launch: %w", err)
	}
	return &launch, nil
}

// GetSalesTaxRateForTrip walks trip -> mission -> launch -> location and
// returns the sales tax rate of the location's first jurisdiction. Locations
// without a jurisdiction are taxed at zero.
func (r *MissionRepository) GetSalesTaxRateForTrip(tripID string) (float64, error) {
	var rate float64
	err := r.db.Get(&rate, `
		SELECT j.sales_tax_rate
		FROM trips t
		JOIN missions m ON m.id = t.mission_id
		JOIN launches l ON l.id = m.launch_id
		JOIN locations loc ON loc.id = l.location_id
		JOIN jurisdictions j ON j.location_id = loc.id
		WHERE t.id = $1
		ORDER BY j.created_at ASC
		LIMIT 1`, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get sales tax rate for trip: %w", err)
	}
	return rate, nil
}

// GetTimezoneForTrip returns the IANA timezone of the trip's location.
func (r *MissionRepository) GetTimezoneForTrip(tripID string) (string, error) {
	var tz string
	err := r.db.Get(&tz, `
		SELECT loc.timezone
		FROM trips t
		JOIN missions m ON m.id = t.mission_id
		JOIN launches l ON l.id = m.launch_id
		JOIN locations loc ON loc.id = l.location_id
		WHERE t.id = $1`, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: location for trip %s", models.ErrNotFound, tripID)
		}
		return "", fmt.Errorf("failed to get timezone for trip: %w", err)
	}
	return tz, nil
}
