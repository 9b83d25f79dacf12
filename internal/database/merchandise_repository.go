package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/quartermaster/booking-backend/internal/models"
)

// TripMerchandiseOffer is a trip merchandise row joined with its product.
type TripMerchandiseOffer struct {
	models.TripMerchandise
	Merchandise models.Merchandise `db:"-"`
}

// MerchandiseRepository handles merchandise products, variations and the
// per-item reservation ledger
type MerchandiseRepository struct {
	db *sqlx.DB
}

// NewMerchandiseRepository creates a new MerchandiseRepository
func NewMerchandiseRepository(db *sqlx.DB) *MerchandiseRepository {
	return &MerchandiseRepository{db: db}
}

// GetTripOffer returns a trip merchandise offer with its product loaded
func (r *MerchandiseRepository) GetTripOffer(tripMerchandiseID string) (*TripMerchandiseOffer, error) {
	var offer TripMerchandiseOffer
	err := r.db.Get(&offer.TripMerchandise, `
		SELECT * FROM trip_merchandise WHERE id = $1`, tripMerchandiseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: trip merchandise %s", models.ErrNotFound, tripMerchandiseID)
		}
		return nil, fmt.Errorf("failed to get trip merchandise: %w", err)
	}
	err = r.db.Get(&offer.Merchandise, `
		SELECT * FROM merchandise WHERE id = $1`, offer.MerchandiseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get merchandise: %w", err)
	}
	return &offer, nil
}

// GetVariation returns a variation by id
func (r *MerchandiseRepository) GetVariation(id string) (*models.MerchandiseVariation, error) {
	var variation models.MerchandiseVariation
	err := r.db.Get(&variation, `
		SELECT * FROM merchandise_variations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: merchandise variation %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get merchandise variation: %w", err)
	}
	return &variation, nil
}

// FindVariation resolves a variation of a product by its variant value
// (e.g. shirt size), matched case-insensitively.
func (r *MerchandiseRepository) FindVariation(merchandiseID, variantValue string) (*models.MerchandiseVariation, error) {
	var variation models.MerchandiseVariation
	err := r.db.Get(&variation, `
		SELECT * FROM merchandise_variations
		WHERE merchandise_id = $1 AND lower(variant_value) = lower($2)`,
		merchandiseID, variantValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: variant %q of merchandise %s", models.ErrNotFound, variantValue, merchandiseID)
		}
		return nil, fmt.Errorf("failed to find merchandise variation: %w", err)
	}
	return &variation, nil
}

// ListVariations returns all variations of a product
func (r *MerchandiseRepository) ListVariations(merchandiseID string) ([]models.MerchandiseVariation, error) {
	var variations []models.MerchandiseVariation
	err := r.db.Select(&variations, `
		SELECT * FROM merchandise_variations
		WHERE merchandise_id = $1
		ORDER BY variant_value ASC`, merchandiseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchandise variations: %w", err)
	}
	return variations, nil
}

// lockVariationTx locks a variation row for the rest of the transaction and
// returns its current counters.
func lockVariationTx(tx *sqlx.Tx, variationID string) (*models.MerchandiseVariation, error) {
	var variation models.MerchandiseVariation
	err := tx.Get(&variation, `
		SELECT * FROM merchandise_variations WHERE id = $1 FOR UPDATE`, variationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: merchandise variation %s", models.ErrNotFound, variationID)
		}
		return nil, fmt.Errorf("failed to lock merchandise variation: %w", err)
	}
	return &variation, nil
}

// reserveStockTx records a sold reservation for a booking item and moves the
// variation counter by the same amount. The variation row must already be
// locked in this transaction.
func reserveStockTx(tx *sqlx.Tx, bookingItemID, variationID string, quantity int) error {
	_, err := tx.Exec(`
		INSERT INTO merchandise_reservations (booking_item_id, merchandise_variation_id, quantity_sold, quantity_fulfilled)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (booking_item_id, merchandise_variation_id)
		DO UPDATE SET quantity_sold = merchandise_reservations.quantity_sold + EXCLUDED.quantity_sold,
		              updated_at = now()`,
		bookingItemID, variationID, quantity)
	if err != nil {
		return fmt.Errorf("failed to record merchandise reservation: %w", err)
	}
	_, err = tx.Exec(`
		UPDATE merchandise_variations
		SET quantity_sold = quantity_sold + $2, updated_at = now()
		WHERE id = $1`, variationID, quantity)
	if err != nil {
		return fmt.Errorf("failed to apply merchandise reservation: %w", err)
	}
	return nil
}

// fulfillStockTx moves a booking item's reservation from sold to fulfilled,
// or back again for negative direction. It adjusts exactly the reserved
// amount, so repeated releases cannot drift the counters.
func fulfillStockTx(tx *sqlx.Tx, bookingItemID string, direction int) error {
	var reservations []models.MerchandiseReservation
	err := tx.Select(&reservations, `
		SELECT * FROM merchandise_reservations WHERE booking_item_id = $1`, bookingItemID)
	if err != nil {
		return fmt.Errorf("failed to load merchandise reservations: %w", err)
	}

	for _, res := range reservations {
		delta := res.QuantitySold * direction
		_, err = tx.Exec(`
			UPDATE merchandise_reservations
			SET quantity_fulfilled = quantity_fulfilled + $2, updated_at = now()
			WHERE booking_item_id = $1 AND merchandise_variation_id = $3`,
			bookingItemID, delta, res.MerchandiseVariationID)
		if err != nil {
			return fmt.Errorf("failed to update merchandise reservation: %w", err)
		}
		_, err = tx.Exec(`
			UPDATE merchandise_variations
			SET quantity_fulfilled = quantity_fulfilled + $2, updated_at = now()
			WHERE id = $1`, res.MerchandiseVariationID, delta)
		if err != nil {
			return fmt.Errorf("failed to update merchandise fulfillment: %w", err)
		}
	}
	return nil
}

// releaseStockTx undoes a booking item's reservations exactly: the recorded
// sold (and fulfilled) deltas are subtracted from the variation counters and
// the reservation rows are removed.
func releaseStockTx(tx *sqlx.Tx, bookingItemID string) error {
	var reservations []models.MerchandiseReservation
	err := tx.Select(&reservations, `
		SELECT * FROM merchandise_reservations
		WHERE booking_item_id = $1
		FOR UPDATE`, bookingItemID)
	if err != nil {
		return fmt.Errorf("failed to load merchandise reservations: %w", err)
	}

	for _, res := range reservations {
		_, err = tx.Exec(`
			UPDATE merchandise_variations
			SET quantity_sold = quantity_sold - $2,
			    quantity_fulfilled = quantity_fulfilled - $3,
			    updated_at = now()
			WHERE id = $1`, res.MerchandiseVariationID, res.QuantitySold, res.QuantityFulfilled)
		if err != nil {
			return fmt.Errorf("failed to release merchandise reservation: %w", err)
		}
	}

	_, err = tx.Exec(`
		DELETE FROM merchandise_reservations WHERE booking_item_id = $1`, bookingItemID)
	if err != nil {
		return fmt.Errorf("failed to delete merchandise reservations: %w", err)
	}
	return nil
}
