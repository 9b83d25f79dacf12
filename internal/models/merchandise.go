package models

import "time"

// Merchandise is a swag product sold alongside trips.
type Merchandise struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Description       *string   `json:"description,omitempty" db:"description"`
	PriceCents        int64     `json:"price_cents" db:"price_cents"`
	QuantityAvailable int       `json:"quantity_available" db:"quantity_available"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// MerchandiseVariation is one sellable variant (e.g. shirt size) with its own
// stock counters. Counters are only ever moved through reservation rows so a
// release undoes exactly what was reserved.
type MerchandiseVariation struct {
	ID                string    `json:"id" db:"id"`
	MerchandiseID     string    `json:"merchandise_id" db:"merchandise_id"`
	VariantValue      string    `json:"variant_value" db:"variant_value"`
	QuantityTotal     int       `json:"quantity_total" db:"quantity_total"`
	QuantitySold      int       `json:"quantity_sold" db:"quantity_sold"`
	QuantityFulfilled int       `json:"quantity_fulfilled" db:"quantity_fulfilled"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Available returns sellable stock before any trip-level override cap.
func (v *MerchandiseVariation) Available() int {
	return v.QuantityTotal - v.QuantitySold
}

// TripMerchandise offers a product on a trip, optionally overriding price
// and capping the quantity sellable through that trip.
type TripMerchandise struct {
	ID                        string    `json:"id" db:"id"`
	TripID                    string    `json:"trip_id" db:"trip_id"`
	MerchandiseID             string    `json:"merchandise_id" db:"merchandise_id"`
	QuantityAvailableOverride *int      `json:"quantity_available_override,omitempty" db:"quantity_available_override"`
	PriceCentsOverride        *int64    `json:"price_cents_override,omitempty" db:"price_cents_override"`
	CreatedAt                 time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at" db:"updated_at"`
}

// EffectivePriceCents returns the price charged through this trip offer.
func (tm *TripMerchandise) EffectivePriceCents(basePriceCents int64) int64 {
	if tm.PriceCentsOverride != nil {
		return *tm.PriceCentsOverride
	}
	return basePriceCents
}

// MerchandiseReservation records the signed stock deltas a booking item holds
// against a variation. Releasing an item subtracts exactly these amounts, so
// counters never need clamping.
type MerchandiseReservation struct {
	ID                     string    `json:"id" db:"id"`
	BookingItemID          string    `json:"booking_item_id" db:"booking_item_id"`
	MerchandiseVariationID string    `json:"merchandise_variation_id" db:"merchandise_variation_id"`
	QuantitySold           int       `json:"quantity_sold" db:"quantity_sold"`
	QuantityFulfilled      int       `json:"quantity_fulfilled" db:"quantity_fulfilled"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}
