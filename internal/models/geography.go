package models

import "time"

// Location represents a geographic launch-viewing area (e.g. Cape Canaveral).
type Location struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	State     *string   `json:"state,omitempty" db:"state"`
	Timezone  string    `json:"timezone" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Jurisdiction represents a taxing authority tied to a location.
// SalesTaxRate is a fraction (0.07 means 7%).
type Jurisdiction struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	SalesTaxRate float64   `json:"sales_tax_rate" db:"sales_tax_rate"`
	LocationID   string    `json:"location_id" db:"location_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Launch represents a rocket launch at a location.
type Launch struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	LaunchTimestamp *time.Time `json:"launch_timestamp,omitempty" db:"launch_timestamp"`
	Summary         *string    `json:"summary,omitempty" db:"summary"`
	LocationID      string     `json:"location_id" db:"location_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Mission groups the trips sold for a launch. Bookings on a mission are
// refundable until RefundCutoffHours before the launch.
type Mission struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	LaunchID          string    `json:"launch_id" db:"launch_id"`
	Active            bool      `json:"active" db:"active"`
	RefundCutoffHours int       `json:"refund_cutoff_hours" db:"refund_cutoff_hours"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Provider is a boat operator.
type Provider struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	LocationID     *string   `json:"location_id,omitempty" db:"location_id"`
	Address        *string   `json:"address,omitempty" db:"address"`
	JurisdictionID *string   `json:"jurisdiction_id,omitempty" db:"jurisdiction_id"`
	MapLink        *string   `json:"map_link,omitempty" db:"map_link"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
