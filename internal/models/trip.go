package models

import (
	"strings"
	"time"
)

// BookingMode controls who may book a trip.
type BookingMode string

const (
	BookingModePrivate   BookingMode = "private"
	BookingModeEarlyBird BookingMode = "early_bird"
	BookingModePublic    BookingMode = "public"
)

// Trip represents a single boat outing sold under a mission.
type Trip struct {
	ID            string      `json:"id" db:"id"`
	MissionID     string      `json:"mission_id" db:"mission_id"`
	Name          *string     `json:"name,omitempty" db:"name"`
	Type          string      `json:"type" db:"type"`
	Active        bool        `json:"active" db:"active"`
	Unlisted      bool        `json:"unlisted" db:"unlisted"`
	BookingMode   BookingMode `json:"booking_mode" db:"booking_mode"`
	SalesOpenAt   *time.Time  `json:"sales_open_at,omitempty" db:"sales_open_at"`
	CheckInTime   *time.Time  `json:"check_in_time,omitempty" db:"check_in_time"`
	BoardingTime  *time.Time  `json:"boarding_time,omitempty" db:"boarding_time"`
	DepartureTime *time.Time  `json:"departure_time,omitempty" db:"departure_time"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// EffectiveBookingMode returns the mode enforced at the given instant.
// Before sales open, the stored mode is shifted one level more restrictive:
// public behaves as early_bird and early_bird behaves as private.
func (t *Trip) EffectiveBookingMode(asOf time.Time) BookingMode {
	if t.SalesOpenAt == nil || !asOf.Before(*t.SalesOpenAt) {
		return t.BookingMode
	}
	switch t.BookingMode {
	case BookingModePublic:
		return BookingModeEarlyBird
	case BookingModeEarlyBird:
		return BookingModePrivate
	default:
		return t.BookingMode
	}
}

// TripBoat assigns a boat to a trip. MaxCapacity nil means the boat's own
// capacity applies. UseOnlyTripPricing suppresses boat-level pricing rows.
type TripBoat struct {
	ID                 string    `json:"id" db:"id"`
	TripID             string    `json:"trip_id" db:"trip_id"`
	BoatID             string    `json:"boat_id" db:"boat_id"`
	MaxCapacity        *int      `json:"max_capacity,omitempty" db:"max_capacity"`
	UseOnlyTripPricing bool      `json:"use_only_trip_pricing" db:"use_only_trip_pricing"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// EffectiveCapacity returns the total passenger limit for this assignment.
func (tb *TripBoat) EffectiveCapacity(boatCapacity int) int {
	if tb.MaxCapacity != nil {
		return *tb.MaxCapacity
	}
	return boatCapacity
}

// TripBoatPricing overrides one ticket type for a trip-boat assignment.
// Capacity nil inherits the boat-level capacity for that type; an explicit 0
// means unrestricted.
type TripBoatPricing struct {
	ID         string    `json:"id" db:"id"`
	TripBoatID string    `json:"trip_boat_id" db:"trip_boat_id"`
	TicketType string    `json:"ticket_type" db:"ticket_type"`
	PriceCents int64     `json:"price_cents" db:"price_cents"`
	Capacity   *int      `json:"capacity,omitempty" db:"capacity"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// EffectivePricingItem is one resolved ticket type for a trip-boat
// assignment. Capacity 0 means unrestricted; Remaining is -1 in that case.
type EffectivePricingItem struct {
	TicketType string `json:"ticket_type"`
	PriceCents int64  `json:"price_cents"`
	Capacity   int    `json:"capacity"`
	Remaining  int    `json:"remaining"`
}

// Unrestricted reports whether the type has no per-type capacity limit.
func (p *EffectivePricingItem) Unrestricted() bool {
	return p.Capacity == 0
}

// CreateTripBoatRequest assigns a boat to a trip
type CreateTripBoatRequest struct {
	BoatID             string `json:"boat_id" binding:"required"`
	MaxCapacity        *int   `json:"max_capacity,omitempty"`
	UseOnlyTripPricing bool   `json:"use_only_trip_pricing"`
}

// UpdateTripBoatRequest updates a trip-boat assignment. Nil fields are left
// untouched; ClearMaxCapacity removes the override.
type UpdateTripBoatRequest struct {
	MaxCapacity        *int  `json:"max_capacity,omitempty"`
	ClearMaxCapacity   bool  `json:"clear_max_capacity"`
	UseOnlyTripPricing *bool `json:"use_only_trip_pricing,omitempty"`
}

// TripBoatPricingRequest creates or updates one trip-level ticket type
// override. Capacity nil inherits the boat-level value; 0 is unrestricted.
type TripBoatPricingRequest struct {
	TicketType string `json:"ticket_type" binding:"required"`
	PriceCents int64  `json:"price_cents"`
	Capacity   *int   `json:"capacity,omitempty"`
}

// TripBoatAvailability is one boat's live availability on a trip.
type TripBoatAvailability struct {
	TripBoatID        string                 `json:"trip_boat_id"`
	BoatID            string                 `json:"boat_id"`
	BoatName          string                 `json:"boat_name"`
	EffectiveCapacity int                    `json:"effective_capacity"`
	SeatsTaken        int                    `json:"seats_taken"`
	Remaining         int                    `json:"remaining"`
	Pricing           []EffectivePricingItem `json:"pricing"`
	UsedPerTicketType map[string]int         `json:"used_per_ticket_type"`
}

// TicketTypeKey normalizes a ticket type for ledger aggregation and legacy
// matching: lowercased, with a trailing "_ticket" suffix stripped, so
// "Adult_Ticket" and "adult" count against the same bucket.
func TicketTypeKey(ticketType string) string {
	key := strings.ToLower(strings.TrimSpace(ticketType))
	key = strings.TrimSuffix(key, "_ticket")
	return key
}
