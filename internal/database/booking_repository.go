package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/quartermaster/booking-backend/internal/models"
)

// SeatRequirement is one capacity condition to re-verify under row locks
// before committing a mutation. TypeKey is the normalized ticket type; an
// empty TypeKey makes this a whole-boat check. Capacity 0 on a typed check
// means the type is unrestricted and the check is skipped.
type SeatRequirement struct {
	TripID   string
	BoatID   string
	TypeKey  string
	Quantity int
	Capacity int
}

// StockRequirement is one merchandise availability condition to re-verify
// under row locks. OverrideCap, when set, is the trip-level sales cap.
type StockRequirement struct {
	VariationID       string
	TripMerchandiseID string
	Quantity          int
	OverrideCap       *int
}

// ItemQuantityChange adjusts one booking item. NewQuantity 0 removes the
// item and releases its inventory.
type ItemQuantityChange struct {
	ItemID      string
	NewQuantity int
}

// BookingRepository handles booking persistence. All multi-row mutations run
// in a single transaction with trip-boat and variation rows locked first.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// typeKeyExpr normalizes item_type in SQL the same way models.TicketTypeKey
// does in Go: lowercased, trimmed, trailing "_ticket" stripped.
const typeKeyExpr = `regexp_replace(lower(btrim(bi.item_type)), '_ticket$', '')`

// paidTicketFilter selects ticket items that occupy seats: their booking is
// confirmed, checked in or completed and not refunded, and the item itself
// is not refunded.
const paidTicketFilter = `
	bi.trip_merchandise_id IS NULL
	AND bi.status <> 'refunded'
	AND b.booking_status IN ('confirmed', 'checked_in', 'completed')
	AND (b.payment_status IS NULL OR b.payment_status <> 'refunded')`

// GenerateConfirmationCode generates a unique booking confirmation code.
// Format: LV-XXXXXXXX (8 hex chars). Example: LV-A1B2C3D4
func (r *BookingRepository) GenerateConfirmationCode() (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		code := fmt.Sprintf("LV-%s", strings.ToUpper(hex.EncodeToString(randomBytes)))

		var count int
		err := r.db.Get(&count, `SELECT COUNT(*) FROM bookings WHERE confirmation_code = $1`, code)
		if err != nil {
			return "", fmt.Errorf("failed to check confirmation code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique confirmation code after 10 attempts")
}

// ConfirmationCodeExists reports whether a confirmation code is taken
func (r *BookingRepository) ConfirmationCodeExists(code string) (bool, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM bookings WHERE confirmation_code = $1`, code)
	if err != nil {
		return false, fmt.Errorf("failed to check confirmation code: %w", err)
	}
	return count > 0, nil
}

// GetByID returns a booking with its items
func (r *BookingRepository) GetByID(id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, `SELECT * FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if err := r.loadItems(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByConfirmationCode returns a booking with its items, looked up by its
// public confirmation code (case-insensitive).
func (r *BookingRepository) GetByConfirmationCode(code string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, `
		SELECT * FROM bookings WHERE upper(confirmation_code) = upper($1)`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %s", models.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if err := r.loadItems(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) loadItems(booking *models.Booking) error {
	var items []models.BookingItem
	err := r.db.Select(&items, `
		SELECT * FROM booking_items WHERE booking_id = $1 ORDER BY created_at ASC, id ASC`,
		booking.ID)
	if err != nil {
		return fmt.Errorf("failed to load booking items: %w", err)
	}
	booking.Items = items
	return nil
}

// GetItem returns one booking item
func (r *BookingRepository) GetItem(itemID string) (*models.BookingItem, error) {
	var item models.BookingItem
	err := r.db.Get(&item, `SELECT * FROM booking_items WHERE id = $1`, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking item %s", models.ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to get booking item: %w", err)
	}
	return &item, nil
}

// PaidTicketCount returns the number of seats occupied on a trip-boat,
// optionally excluding one booking's own contribution.
func (r *BookingRepository) PaidTicketCount(tripID, boatID string, excludeBookingID *string) (int, error) {
	return paidTicketCount(r.db, tripID, boatID, excludeBookingID)
}

// PaidTicketCountForType returns the seats occupied on a trip-boat by one
// normalized ticket type.
func (r *BookingRepository) PaidTicketCountForType(tripID, boatID, typeKey string, excludeBookingID *string) (int, error) {
	return paidTicketCountForType(r.db, tripID, boatID, typeKey, excludeBookingID)
}

// PaidTicketCountsByType returns seats occupied on a trip-boat grouped by
// normalized ticket type.
func (r *BookingRepository) PaidTicketCountsByType(tripID, boatID string) (map[string]int, error) {
	rows, err := r.db.Queryx(`
		SELECT `+typeKeyExpr+` AS type_key, COALESCE(SUM(bi.quantity), 0) AS seats
		FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE bi.trip_id = $1 AND bi.boat_id = $2 AND `+paidTicketFilter+`
		GROUP BY `+typeKeyExpr, tripID, boatID)
	if err != nil {
		return nil, fmt.Errorf("failed to count paid tickets by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typeKey string
		var seats int
		if err := rows.Scan(&typeKey, &seats); err != nil {
			return nil, fmt.Errorf("failed to scan paid ticket count: %w", err)
		}
		counts[typeKey] = seats
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate paid ticket counts: %w", err)
	}
	return counts, nil
}

// MaxPaidTicketsForBoatType returns the largest per-trip paid seat count for
// one normalized ticket type across every trip using the boat. Guards
// boat-level capacity shrinks, which apply to all of those trips at once.
func (r *BookingRepository) MaxPaidTicketsForBoatType(boatID, typeKey string) (int, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COALESCE(MAX(seats), 0) FROM (
			SELECT COALESCE(SUM(bi.quantity), 0) AS seats
			FROM booking_items bi
			JOIN bookings b ON b.id = bi.booking_id
			WHERE bi.boat_id = $1 AND `+typeKeyExpr+` = $2 AND `+paidTicketFilter+`
			GROUP BY bi.trip_id
		) per_trip`, boatID, typeKey)
	if err != nil {
		return 0, fmt.Errorf("failed to count paid tickets for boat type: %w", err)
	}
	return count, nil
}

// TicketItemCount returns how many ticket items reference a trip-boat in
// any status. Used to guard trip-boat deletion.
func (r *BookingRepository) TicketItemCount(tripID, boatID string) (int, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COUNT(*) FROM booking_items
		WHERE trip_id = $1 AND boat_id = $2 AND trip_merchandise_id IS NULL`,
		tripID, boatID)
	if err != nil {
		return 0, fmt.Errorf("failed to count ticket items: %w", err)
	}
	return count, nil
}

// MerchandiseSoldForOffer returns the quantity sold through one trip
// merchandise offer across non-refunded items.
func (r *BookingRepository) MerchandiseSoldForOffer(tripMerchandiseID string) (int, error) {
	return merchandiseSoldForOffer(r.db, tripMerchandiseID)
}

func paidTicketCount(q sqlx.Queryer, tripID, boatID string, excludeBookingID *string) (int, error) {
	var count int
	err := sqlx.Get(q, &count, `
		SELECT COALESCE(SUM(bi.quantity), 0)
		FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE bi.trip_id = $1 AND bi.boat_id = $2 AND `+paidTicketFilter+`
		  AND ($3::text IS NULL OR b.id::text <> $3::text)`,
		tripID, boatID, excludeBookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to count paid tickets: %w", err)
	}
	return count, nil
}

func paidTicketCountForType(q sqlx.Queryer, tripID, boatID, typeKey string, excludeBookingID *string) (int, error) {
	var count int
	err := sqlx.Get(q, &count, `
		SELECT COALESCE(SUM(bi.quantity), 0)
		FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE bi.trip_id = $1 AND bi.boat_id = $2 AND `+typeKeyExpr+` = $3
		  AND `+paidTicketFilter+`
		  AND ($4::text IS NULL OR b.id::text <> $4::text)`,
		tripID, boatID, typeKey, excludeBookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to count paid tickets for type: %w", err)
	}
	return count, nil
}

func merchandiseSoldForOffer(q sqlx.Queryer, tripMerchandiseID string) (int, error) {
	var count int
	err := sqlx.Get(q, &count, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM booking_items
		WHERE trip_merchandise_id = $1 AND status <> 'refunded'`, tripMerchandiseID)
	if err != nil {
		return 0, fmt.Errorf("failed to count merchandise sold: %w", err)
	}
	return count, nil
}

// lockTripBoatsTx locks the trip-boat rows named by the requirements, in a
// stable order so concurrent admissions cannot deadlock.
func lockTripBoatsTx(tx *sqlx.Tx, reqs []SeatRequirement) error {
	keys := make(map[string][2]string)
	for _, req := range reqs {
		keys[req.TripID+"/"+req.BoatID] = [2]string{req.TripID, req.BoatID}
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	for _, k := range ordered {
		pair := keys[k]
		var id string
		err := tx.Get(&id, `
			SELECT id FROM trip_boats WHERE trip_id = $1 AND boat_id = $2 FOR UPDATE`,
			pair[0], pair[1])
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: boat %s is not assigned to trip %s", models.ErrNotFound, pair[1], pair[0])
			}
			return fmt.Errorf("failed to lock trip boat: %w", err)
		}
	}
	return nil
}

// verifySeatRequirementsTx re-checks capacity conditions under the locks
// taken by lockTripBoatsTx.
func verifySeatRequirementsTx(tx *sqlx.Tx, reqs []SeatRequirement, excludeBookingID *string) error {
	for _, req := range reqs {
		if req.TypeKey != "" && req.Capacity == 0 {
			continue // unrestricted type
		}
		var occupied int
		var err error
		if req.TypeKey == "" {
			occupied, err = paidTicketCount(tx, req.TripID, req.BoatID, excludeBookingID)
		} else {
			occupied, err = paidTicketCountForType(tx, req.TripID, req.BoatID, req.TypeKey, excludeBookingID)
		}
		if err != nil {
			return err
		}
		if occupied+req.Quantity > req.Capacity {
			if req.TypeKey == "" {
				return fmt.Errorf("%w: boat is full (%d of %d seats taken, %d requested)",
					models.ErrCapacityExceeded, occupied, req.Capacity, req.Quantity)
			}
			return fmt.Errorf("%w: ticket type %q is full (%d of %d taken, %d requested)",
				models.ErrCapacityExceeded, req.TypeKey, occupied, req.Capacity, req.Quantity)
		}
	}
	return nil
}

// verifyStockRequirementsTx locks variation rows and re-checks merchandise
// availability, including trip-level sales caps.
func verifyStockRequirementsTx(tx *sqlx.Tx, reqs []StockRequirement) error {
	for _, req := range reqs {
		variation, err := lockVariationTx(tx, req.VariationID)
		if err != nil {
			return err
		}
		if variation.Available() < req.Quantity {
			return fmt.Errorf("%w: merchandise variant %q has %d left, %d requested",
				models.ErrCapacityExceeded, variation.VariantValue, variation.Available(), req.Quantity)
		}
		if req.OverrideCap != nil {
			sold, err := merchandiseSoldForOffer(tx, req.TripMerchandiseID)
			if err != nil {
				return err
			}
			if sold+req.Quantity > *req.OverrideCap {
				return fmt.Errorf("%w: trip merchandise cap reached (%d of %d sold, %d requested)",
					models.ErrCapacityExceeded, sold, *req.OverrideCap, req.Quantity)
			}
		}
	}
	return nil
}

// Create atomically persists a booking with its items and merchandise
// reservations. Capacity and stock are re-verified under row locks inside
// the same transaction; any failure rolls everything back.
func (r *BookingRepository) Create(
	booking *models.Booking,
	items []models.BookingItem,
	seatReqs []SeatRequirement,
	stockReqs []StockRequirement,
) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockTripBoatsTx(tx, seatReqs); err != nil {
		return err
	}
	if err := verifySeatRequirementsTx(tx, seatReqs, nil); err != nil {
		return err
	}
	if err := verifyStockRequirementsTx(tx, stockReqs); err != nil {
		return err
	}

	err = tx.QueryRowx(`
		INSERT INTO bookings (
			confirmation_code, customer_name, customer_email, customer_phone,
			billing_address, subtotal_cents, discount_cents, tax_cents, tip_cents,
			total_cents, refunded_amount_cents, payment_intent_id, payment_status,
			booking_status, special_requests, admin_notes, launch_updates_pref,
			discount_code_id, qr_code_base64
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12, $13, $14, $15, $16, $17, $18
		) RETURNING id, created_at, updated_at`,
		booking.ConfirmationCode, booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone,
		booking.BillingAddress, booking.SubtotalCents, booking.DiscountCents, booking.TaxCents,
		booking.TipCents, booking.TotalCents, booking.PaymentIntentID, booking.PaymentStatus,
		booking.BookingStatus, booking.SpecialRequests, booking.AdminNotes, booking.LaunchUpdatesPref,
		booking.DiscountCodeID, booking.QRCodeBase64,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	for i := range items {
		items[i].BookingID = booking.ID
		err = tx.QueryRowx(`
			INSERT INTO booking_items (
				booking_id, trip_id, boat_id, trip_merchandise_id,
				merchandise_variation_id, item_type, quantity, price_per_unit_cents,
				status, variant_option
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at`,
			items[i].BookingID, items[i].TripID, items[i].BoatID, items[i].TripMerchandiseID,
			items[i].MerchandiseVariationID, items[i].ItemType, items[i].Quantity,
			items[i].PricePerUnitCents, items[i].Status, items[i].VariantOption,
		).Scan(&items[i].ID, &items[i].CreatedAt, &items[i].UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create booking item: %w", err)
		}

		if items[i].MerchandiseVariationID != nil {
			if err := reserveStockTx(tx, items[i].ID, *items[i].MerchandiseVariationID, items[i].Quantity); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	booking.Items = items
	return nil
}

// UpdateFields persists the booking row's mutable columns
func (r *BookingRepository) UpdateFields(booking *models.Booking) error {
	return updateBookingFields(r.db, booking)
}

func updateBookingFields(e sqlx.Ext, booking *models.Booking) error {
	result, err := e.Exec(`
		UPDATE bookings SET
			customer_name = $2, customer_email = $3, customer_phone = $4,
			billing_address = $5, subtotal_cents = $6, discount_cents = $7,
			tax_cents = $8, tip_cents = $9, total_cents = $10,
			refunded_amount_cents = $11, refund_reason = $12, refund_notes = $13,
			payment_intent_id = $14, payment_status = $15, booking_status = $16,
			special_requests = $17, admin_notes = $18, launch_updates_pref = $19,
			qr_code_base64 = $20, updated_at = now()
		WHERE id = $1`,
		booking.ID, booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone,
		booking.BillingAddress, booking.SubtotalCents, booking.DiscountCents,
		booking.TaxCents, booking.TipCents, booking.TotalCents,
		booking.RefundedAmountCents, booking.RefundReason, booking.RefundNotes,
		booking.PaymentIntentID, booking.PaymentStatus, booking.BookingStatus,
		booking.SpecialRequests, booking.AdminNotes, booking.LaunchUpdatesPref,
		booking.QRCodeBase64)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: booking %s", models.ErrNotFound, booking.ID)
	}
	return nil
}

// SetQRCode stores a regenerated QR payload on a booking
func (r *BookingRepository) SetQRCode(bookingID, qrBase64 string) error {
	_, err := r.db.Exec(`
		UPDATE bookings SET qr_code_base64 = $2, updated_at = now() WHERE id = $1`,
		bookingID, qrBase64)
	if err != nil {
		return fmt.Errorf("failed to set QR code: %w", err)
	}
	return nil
}

// MarkEmailSent stamps the confirmation email timestamp
func (r *BookingRepository) MarkEmailSent(bookingID string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE bookings SET confirmation_email_sent_at = $2, updated_at = now() WHERE id = $1`,
		bookingID, at)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	return nil
}

// ApplyItemChanges updates item quantities and the booking's recomputed
// totals in one transaction. Quantity increases are re-verified against
// capacity (excluding this booking's own seats) and stock under row locks.
func (r *BookingRepository) ApplyItemChanges(
	booking *models.Booking,
	changes []ItemQuantityChange,
	seatReqs []SeatRequirement,
	stockReqs []StockRequirement,
) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockTripBoatsTx(tx, seatReqs); err != nil {
		return err
	}
	exclude := booking.ID
	if err := verifySeatRequirementsTx(tx, seatReqs, &exclude); err != nil {
		return err
	}
	if err := verifyStockRequirementsTx(tx, stockReqs); err != nil {
		return err
	}

	for _, change := range changes {
		var item models.BookingItem
		if err := tx.Get(&item, `SELECT * FROM booking_items WHERE id = $1 AND booking_id = $2`,
			change.ItemID, booking.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: booking item %s", models.ErrNotFound, change.ItemID)
			}
			return fmt.Errorf("failed to load booking item: %w", err)
		}

		if change.NewQuantity == 0 {
			if item.MerchandiseVariationID != nil {
				if err := releaseStockTx(tx, item.ID); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(`DELETE FROM booking_items WHERE id = $1`, item.ID); err != nil {
				return fmt.Errorf("failed to delete booking item: %w", err)
			}
			continue
		}

		if item.MerchandiseVariationID != nil && change.NewQuantity != item.Quantity {
			delta := change.NewQuantity - item.Quantity
			if err := reserveStockTx(tx, item.ID, *item.MerchandiseVariationID, delta); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`
			UPDATE booking_items SET quantity = $2, updated_at = now() WHERE id = $1`,
			item.ID, change.NewQuantity); err != nil {
			return fmt.Errorf("failed to update booking item quantity: %w", err)
		}
	}

	if err := updateBookingFields(tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item changes: %w", err)
	}
	return nil
}

// UpdateItem persists a changed item row (type, boat, price) and the
// booking's recomputed totals, re-verifying any capacity requirements.
func (r *BookingRepository) UpdateItem(
	booking *models.Booking,
	item *models.BookingItem,
	seatReqs []SeatRequirement,
) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockTripBoatsTx(tx, seatReqs); err != nil {
		return err
	}
	exclude := booking.ID
	if err := verifySeatRequirementsTx(tx, seatReqs, &exclude); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE booking_items
		SET item_type = $2, boat_id = $3, price_per_unit_cents = $4, updated_at = now()
		WHERE id = $1`,
		item.ID, item.ItemType, item.BoatID, item.PricePerUnitCents); err != nil {
		return fmt.Errorf("failed to update booking item: %w", err)
	}
	if err := updateBookingFields(tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item update: %w", err)
	}
	return nil
}

// CheckIn marks a booking checked in: items become fulfilled and their
// merchandise reservations move to fulfilled.
func (r *BookingRepository) CheckIn(booking *models.Booking) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range booking.Items {
		item := &booking.Items[i]
		if item.Status != models.BookingItemStatusActive {
			continue
		}
		if _, err := tx.Exec(`
			UPDATE booking_items SET status = $2, updated_at = now() WHERE id = $1`,
			item.ID, models.BookingItemStatusFulfilled); err != nil {
			return fmt.Errorf("failed to fulfill booking item: %w", err)
		}
		if item.MerchandiseVariationID != nil {
			if err := fulfillStockTx(tx, item.ID, 1); err != nil {
				return err
			}
		}
	}
	if err := updateBookingFields(tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check-in: %w", err)
	}
	return nil
}

// RevertCheckIn returns a checked-in booking to confirmed: items become
// active again and fulfilled merchandise counters are unwound exactly.
func (r *BookingRepository) RevertCheckIn(booking *models.Booking) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range booking.Items {
		item := &booking.Items[i]
		if item.Status != models.BookingItemStatusFulfilled {
			continue
		}
		if _, err := tx.Exec(`
			UPDATE booking_items SET status = $2, updated_at = now() WHERE id = $1`,
			item.ID, models.BookingItemStatusActive); err != nil {
			return fmt.Errorf("failed to reactivate booking item: %w", err)
		}
		if item.MerchandiseVariationID != nil {
			if err := fulfillStockTx(tx, item.ID, -1); err != nil {
				return err
			}
		}
	}
	if err := updateBookingFields(tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check-in revert: %w", err)
	}
	return nil
}

// Cancel persists a cancellation. When markItemsRefunded is set the items
// are flagged refunded; when releaseInventory is set their merchandise
// reservations are undone.
func (r *BookingRepository) Cancel(booking *models.Booking, markItemsRefunded, releaseInventory bool) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range booking.Items {
		item := &booking.Items[i]
		if releaseInventory && item.MerchandiseVariationID != nil {
			if err := releaseStockTx(tx, item.ID); err != nil {
				return err
			}
		}
		if markItemsRefunded {
			if _, err := tx.Exec(`
				UPDATE booking_items
				SET status = $2, refund_reason = $3, refund_notes = $4, updated_at = now()
				WHERE id = $1`,
				item.ID, models.BookingItemStatusRefunded, booking.RefundReason, booking.RefundNotes); err != nil {
				return fmt.Errorf("failed to refund booking item: %w", err)
			}
		}
	}
	if err := updateBookingFields(tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}

// ApplyRefund persists refund bookkeeping. Reason and notes are stamped on
// every item regardless of depth; a full refund also flags items refunded
// and releases their merchandise reservations.
func (r *BookingRepository) ApplyRefund(booking *models.Booking, full bool) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range booking.Items {
		item := &booking.Items[i]
		if full && item.MerchandiseVariationID != nil {
			if err := releaseStockTx(tx, item.ID); err != nil {
				return err
			}
		}
		status := item.Status
		if full {
			status = models.BookingItemStatusRefunded
		}
		if _, err := tx.Exec(`
			UPDATE booking_items
			SET status = $2, refund_reason = $3, refund_notes = $4, updated_at = now()
			WHERE id = $1`,
			item.ID, status, booking.RefundReason, booking.RefundNotes); err != nil {
			return fmt.Errorf("failed to stamp refund on booking item: %w", err)
		}
	}
	if err := updateBookingFields(tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refund: %w", err)
	}
	return nil
}

// MoveTickets repoints a set of ticket items at a new trip and boat after
// re-verifying destination capacity under locks. Used by reschedule.
func (r *BookingRepository) MoveTickets(
	booking *models.Booking,
	itemIDs []string,
	targetTripID, targetBoatID string,
	seatReqs []SeatRequirement,
) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockTripBoatsTx(tx, seatReqs); err != nil {
		return err
	}
	exclude := booking.ID
	if err := verifySeatRequirementsTx(tx, seatReqs, &exclude); err != nil {
		return err
	}

	for _, itemID := range itemIDs {
		if _, err := tx.Exec(`
			UPDATE booking_items SET trip_id = $2, boat_id = $3, updated_at = now()
			WHERE id = $1 AND booking_id = $4`,
			itemID, targetTripID, targetBoatID, booking.ID); err != nil {
			return fmt.Errorf("failed to move booking item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reschedule: %w", err)
	}
	return nil
}

// ReassignTickets moves every paid ticket item on one boat of a trip to
// another boat on the same trip, capacity-checked at the destination.
func (r *BookingRepository) ReassignTickets(tripID, fromBoatID, toBoatID string, seatReqs []SeatRequirement) (int, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockTripBoatsTx(tx, seatReqs); err != nil {
		return 0, err
	}
	if err := verifySeatRequirementsTx(tx, seatReqs, nil); err != nil {
		return 0, err
	}

	result, err := tx.Exec(`
		UPDATE booking_items bi SET boat_id = $3, updated_at = now()
		FROM bookings b
		WHERE b.id = bi.booking_id
		  AND bi.trip_id = $1 AND bi.boat_id = $2 AND `+paidTicketFilter,
		tripID, fromBoatID, toBoatID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign booking items: %w", err)
	}
	moved, _ := result.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reassignment: %w", err)
	}
	return int(moved), nil
}

// Delete removes a booking, its items and their merchandise reservations
func (r *BookingRepository) Delete(booking *models.Booking) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range booking.Items {
		item := &booking.Items[i]
		if item.MerchandiseVariationID != nil {
			if err := releaseStockTx(tx, item.ID); err != nil {
				return err
			}
		}
	}
	if _, err := tx.Exec(`DELETE FROM booking_items WHERE booking_id = $1`, booking.ID); err != nil {
		return fmt.Errorf("failed to delete booking items: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM bookings WHERE id = $1`, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: booking %s", models.ErrNotFound, booking.ID)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion: %w", err)
	}
	return nil
}

// List returns bookings matching the query plus the total match count.
// Trip-scoped filters match through booking items.
func (r *BookingRepository) List(query *models.BookingListQuery) ([]models.Booking, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.MissionID != nil {
		where = append(where, `EXISTS (
			SELECT 1 FROM booking_items bi
			JOIN trips t ON t.id = bi.trip_id
			WHERE bi.booking_id = b.id AND t.mission_id = `+arg(*query.MissionID)+`)`)
	}
	if query.TripID != nil {
		where = append(where, `EXISTS (
			SELECT 1 FROM booking_items bi
			WHERE bi.booking_id = b.id AND bi.trip_id = `+arg(*query.TripID)+`)`)
	}
	if query.BoatID != nil {
		where = append(where, `EXISTS (
			SELECT 1 FROM booking_items bi
			WHERE bi.booking_id = b.id AND bi.boat_id = `+arg(*query.BoatID)+`)`)
	}
	if query.ItemType != nil {
		where = append(where, `EXISTS (
			SELECT 1 FROM booking_items bi
			WHERE bi.booking_id = b.id
			  AND regexp_replace(lower(btrim(bi.item_type)), '_ticket$', '') = `+
			arg(models.TicketTypeKey(*query.ItemType))+`)`)
	}
	if query.BookingStatus != nil {
		where = append(where, "b.booking_status = "+arg(*query.BookingStatus))
	}
	if query.PaymentStatus != nil {
		where = append(where, "b.payment_status = "+arg(*query.PaymentStatus))
	}
	if query.Search != nil && *query.Search != "" {
		pattern := "%" + strings.TrimSpace(*query.Search) + "%"
		p := arg(pattern)
		where = append(where, `(
			b.confirmation_code ILIKE `+p+`
			OR b.customer_name ILIKE `+p+`
			OR b.customer_email ILIKE `+p+`
			OR COALESCE(b.customer_phone, '') ILIKE `+p+`)`)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.db.Get(&total, `SELECT COUNT(*) FROM bookings b WHERE `+whereClause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	orderBy := "b.created_at"
	switch query.SortBy {
	case "customer_name":
		orderBy = "b.customer_name"
	case "total":
		orderBy = "b.total_cents"
	case "status":
		orderBy = "b.booking_status"
	case "confirmation_code":
		orderBy = "b.confirmation_code"
	}
	direction := "ASC"
	if query.SortDesc {
		direction = "DESC"
	}

	// Limit -1 exports everything; anything else is clamped for paging.
	pagination := ""
	if query.Limit >= 0 {
		limit := query.Limit
		if limit == 0 || limit > 200 {
			limit = 50
		}
		pagination = fmt.Sprintf(" LIMIT %s OFFSET %s", arg(limit), arg(query.Offset))
	}
	listQuery := fmt.Sprintf(`
		SELECT b.* FROM bookings b
		WHERE %s
		ORDER BY %s %s, b.id ASC%s`,
		whereClause, orderBy, direction, pagination)

	var bookings []models.Booking
	if err := r.db.Select(&bookings, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	for i := range bookings {
		if err := r.loadItems(&bookings[i]); err != nil {
			return nil, 0, err
		}
	}
	return bookings, total, nil
}
