package models

import (
	"errors"
	"time"
)

// Boat represents a vessel operated by a provider. Capacity is the default
// passenger limit, overridable per trip via TripBoat.MaxCapacity.
type Boat struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Slug       *string   `json:"slug,omitempty" db:"slug"`
	Capacity   int       `json:"capacity" db:"capacity"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// BoatPricing is the boat-level default price and capacity for one ticket
// type. Capacity 0 means the type is not capacity-restricted at this layer.
type BoatPricing struct {
	ID         string    `json:"id" db:"id"`
	BoatID     string    `json:"boat_id" db:"boat_id"`
	TicketType string    `json:"ticket_type" db:"ticket_type"`
	PriceCents int64     `json:"price_cents" db:"price_cents"`
	Capacity   int       `json:"capacity" db:"capacity"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CreateBoatPricingRequest creates or updates a boat-level pricing row.
type CreateBoatPricingRequest struct {
	TicketType string `json:"ticket_type" binding:"required"`
	PriceCents int64  `json:"price_cents"`
	Capacity   int    `json:"capacity"`
}

// Validate validates the boat pricing request.
func (r *CreateBoatPricingRequest) Validate() error {
	if r.TicketType == "" {
		return errors.New("ticket_type is required")
	}
	if r.PriceCents < 0 {
		return errors.New("price_cents must not be negative")
	}
	if r.Capacity < 0 {
		return errors.New("capacity must not be negative")
	}
	return nil
}
