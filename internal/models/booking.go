package models

import (
	"errors"
	"sort"
	"time"
)

// PaymentStatus represents the payment status of a booking. A freshly
// admitted booking has no payment status at all (nil on the Booking).
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// BookingStatus represents the lifecycle status of a booking.
type BookingStatus string

const (
	BookingStatusDraft     BookingStatus = "draft"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BookingItemStatus represents the status of a single booking item.
type BookingItemStatus string

const (
	BookingItemStatusActive    BookingItemStatus = "active"
	BookingItemStatusRefunded  BookingItemStatus = "refunded"
	BookingItemStatusFulfilled BookingItemStatus = "fulfilled"
)

// bookingTransitions lists the allowed status transitions. Cancelled is
// terminal; completed bookings may still be cancelled (refund path).
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusDraft:     {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCheckedIn, BookingStatusCancelled},
	BookingStatusCheckedIn: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted: {BookingStatusCancelled},
	BookingStatusCancelled: {},
}

// CanTransition reports whether a booking may move from one status to
// another. Same-status "transitions" are not allowed here; idempotent
// operations such as repeat check-in are handled by their operations.
func CanTransition(from, to BookingStatus) bool {
	for _, allowed := range bookingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// mutableFieldsByStatus is the explicit allow-list of admin-editable fields
// per lifecycle state. Checked-in bookings accept no field edits at all;
// their only way forward is a status transition.
var mutableFieldsByStatus = map[BookingStatus]map[string]bool{
	BookingStatusDraft: {
		"customer_name": true, "customer_email": true, "customer_phone": true,
		"billing_address": true, "special_requests": true, "admin_notes": true,
		"launch_updates_pref": true, "payment_status": true, "payment_intent_id": true,
		"tip_cents": true, "item_quantities": true,
	},
	BookingStatusConfirmed: {
		"customer_name": true, "customer_email": true, "customer_phone": true,
		"billing_address": true, "special_requests": true, "admin_notes": true,
		"launch_updates_pref": true, "payment_status": true, "payment_intent_id": true,
		"tip_cents": true, "item_quantities": true,
	},
	BookingStatusCheckedIn: {},
	BookingStatusCompleted: {
		"admin_notes": true,
	},
	BookingStatusCancelled: {
		"admin_notes": true,
	},
}

// FieldMutable reports whether the named field may be edited while the
// booking is in the given status.
func FieldMutable(status BookingStatus, field string) bool {
	return mutableFieldsByStatus[status][field]
}

// Booking is a customer order for trip tickets and merchandise.
type Booking struct {
	ID                      string         `json:"id" db:"id"`
	ConfirmationCode        string         `json:"confirmation_code" db:"confirmation_code"`
	CustomerName            string         `json:"customer_name" db:"customer_name"`
	CustomerEmail           string         `json:"customer_email" db:"customer_email"`
	CustomerPhone           *string        `json:"customer_phone,omitempty" db:"customer_phone"`
	BillingAddress          *string        `json:"billing_address,omitempty" db:"billing_address"`
	SubtotalCents           int64          `json:"subtotal_cents" db:"subtotal_cents"`
	DiscountCents           int64          `json:"discount_cents" db:"discount_cents"`
	TaxCents                int64          `json:"tax_cents" db:"tax_cents"`
	TipCents                int64          `json:"tip_cents" db:"tip_cents"`
	TotalCents              int64          `json:"total_cents" db:"total_cents"`
	RefundedAmountCents     int64          `json:"refunded_amount_cents" db:"refunded_amount_cents"`
	RefundReason            *string        `json:"refund_reason,omitempty" db:"refund_reason"`
	RefundNotes             *string        `json:"refund_notes,omitempty" db:"refund_notes"`
	PaymentIntentID         *string        `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	PaymentStatus           *PaymentStatus `json:"payment_status,omitempty" db:"payment_status"`
	BookingStatus           BookingStatus  `json:"booking_status" db:"booking_status"`
	SpecialRequests         *string        `json:"special_requests,omitempty" db:"special_requests"`
	AdminNotes              *string        `json:"admin_notes,omitempty" db:"admin_notes"`
	LaunchUpdatesPref       bool           `json:"launch_updates_pref" db:"launch_updates_pref"`
	DiscountCodeID          *string        `json:"discount_code_id,omitempty" db:"discount_code_id"`
	QRCodeBase64            *string        `json:"qr_code_base64,omitempty" db:"qr_code_base64"`
	ConfirmationEmailSentAt *time.Time     `json:"confirmation_email_sent_at,omitempty" db:"confirmation_email_sent_at"`
	CreatedAt               time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at" db:"updated_at"`

	Items []BookingItem `json:"items,omitempty" db:"-"`
}

// BookingItem is one line of a booking: either a ticket line on a trip-boat
// or a merchandise line on a trip offer.
type BookingItem struct {
	ID                     string            `json:"id" db:"id"`
	BookingID              string            `json:"booking_id" db:"booking_id"`
	TripID                 string            `json:"trip_id" db:"trip_id"`
	BoatID                 *string           `json:"boat_id,omitempty" db:"boat_id"`
	TripMerchandiseID      *string           `json:"trip_merchandise_id,omitempty" db:"trip_merchandise_id"`
	MerchandiseVariationID *string           `json:"merchandise_variation_id,omitempty" db:"merchandise_variation_id"`
	ItemType               string            `json:"item_type" db:"item_type"`
	Quantity               int               `json:"quantity" db:"quantity"`
	PricePerUnitCents      int64             `json:"price_per_unit_cents" db:"price_per_unit_cents"`
	Status                 BookingItemStatus `json:"status" db:"status"`
	RefundReason           *string           `json:"refund_reason,omitempty" db:"refund_reason"`
	RefundNotes            *string           `json:"refund_notes,omitempty" db:"refund_notes"`
	VariantOption          *string           `json:"variant_option,omitempty" db:"variant_option"`
	CreatedAt              time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at" db:"updated_at"`
}

// IsTicket reports whether the item is a trip ticket line.
func (i *BookingItem) IsTicket() bool {
	return i.TripMerchandiseID == nil
}

// SortItemsForDisplay orders items the way they are presented: tickets
// before merchandise, then by item type, then by id for stability.
func SortItemsForDisplay(items []BookingItem) {
	sort.SliceStable(items, func(a, b int) bool {
		ia, ib := items[a], items[b]
		if ia.IsTicket() != ib.IsTicket() {
			return ia.IsTicket()
		}
		if ia.ItemType != ib.ItemType {
			return ia.ItemType < ib.ItemType
		}
		return ia.ID < ib.ID
	})
}

// FirstDisplayItem returns the item the booking is attributed to, or nil
// when the booking has no items.
func (b *Booking) FirstDisplayItem() *BookingItem {
	if len(b.Items) == 0 {
		return nil
	}
	items := make([]BookingItem, len(b.Items))
	copy(items, b.Items)
	SortItemsForDisplay(items)
	return &items[0]
}

// CountsAsPaid reports whether the booking's tickets occupy seats in the
// capacity ledger: confirmed, checked in or completed, and not refunded.
func (b *Booking) CountsAsPaid() bool {
	switch b.BookingStatus {
	case BookingStatusConfirmed, BookingStatusCheckedIn, BookingStatusCompleted:
	default:
		return false
	}
	return b.PaymentStatus == nil || *b.PaymentStatus != PaymentStatusRefunded
}

// RemainingRefundableCents returns how much may still be refunded.
func (b *Booking) RemainingRefundableCents() int64 {
	return b.TotalCents - b.RefundedAmountCents
}

// BookingItemRequest is one requested line in a create/duplicate payload.
// PricePerUnitCents is the price the customer saw and must match the
// effective price exactly.
type BookingItemRequest struct {
	TripID                 string  `json:"trip_id" binding:"required"`
	BoatID                 *string `json:"boat_id,omitempty"`
	TripMerchandiseID      *string `json:"trip_merchandise_id,omitempty"`
	MerchandiseVariationID *string `json:"merchandise_variation_id,omitempty"`
	ItemType               string  `json:"item_type" binding:"required"`
	Quantity               int     `json:"quantity" binding:"required,min=1"`
	PricePerUnitCents      int64   `json:"price_per_unit_cents"`
	VariantOption          *string `json:"variant_option,omitempty"`
}

// IsTicket reports whether the requested line is a ticket line.
func (r *BookingItemRequest) IsTicket() bool {
	return r.TripMerchandiseID == nil
}

// CreateBookingRequest is the public booking creation payload. A supplied
// ConfirmationCode is honored when free; otherwise one is generated.
type CreateBookingRequest struct {
	ConfirmationCode  *string              `json:"confirmation_code,omitempty"`
	CustomerName      string               `json:"customer_name" binding:"required"`
	CustomerEmail     string               `json:"customer_email" binding:"required,email"`
	CustomerPhone     *string              `json:"customer_phone,omitempty"`
	BillingAddress    *string              `json:"billing_address,omitempty"`
	SpecialRequests   *string              `json:"special_requests,omitempty"`
	LaunchUpdatesPref bool                 `json:"launch_updates_pref"`
	DiscountCode      *string              `json:"discount_code,omitempty"`
	AccessCode        *string              `json:"access_code,omitempty"`
	TipCents          int64                `json:"tip_cents"`
	Items             []BookingItemRequest `json:"items" binding:"required"`
}

// Validate validates the create booking request.
func (r *CreateBookingRequest) Validate() error {
	if len(r.Items) == 0 {
		return errors.New("at least one item is required")
	}
	if r.TipCents < 0 {
		return errors.New("tip_cents must not be negative")
	}
	for _, item := range r.Items {
		if item.Quantity < 1 {
			return errors.New("item quantity must be at least 1")
		}
		if item.PricePerUnitCents < 0 {
			return errors.New("price_per_unit_cents must not be negative")
		}
		if item.IsTicket() && item.BoatID == nil {
			return errors.New("ticket items require boat_id")
		}
	}
	return nil
}

// UpdateBookingRequest is the admin PATCH payload. Nil fields are left
// untouched. ItemQuantities maps booking item id to new quantity; zero
// removes the item.
type UpdateBookingRequest struct {
	CustomerName      *string        `json:"customer_name,omitempty"`
	CustomerEmail     *string        `json:"customer_email,omitempty"`
	CustomerPhone     *string        `json:"customer_phone,omitempty"`
	BillingAddress    *string        `json:"billing_address,omitempty"`
	SpecialRequests   *string        `json:"special_requests,omitempty"`
	AdminNotes        *string        `json:"admin_notes,omitempty"`
	LaunchUpdatesPref *bool          `json:"launch_updates_pref,omitempty"`
	PaymentStatus     *PaymentStatus `json:"payment_status,omitempty"`
	PaymentIntentID   *string        `json:"payment_intent_id,omitempty"`
	TipCents          *int64         `json:"tip_cents,omitempty"`
	BookingStatus     *BookingStatus `json:"booking_status,omitempty"`
	ItemQuantities    map[string]int `json:"item_quantities,omitempty"`
}

// UpdateBookingItemRequest changes a ticket item's type and/or boat within
// the same trip. Price is re-resolved from effective pricing.
type UpdateBookingItemRequest struct {
	ItemType *string `json:"item_type,omitempty"`
	BoatID   *string `json:"boat_id,omitempty"`
}

// RescheduleBookingRequest moves all ticket items to another trip of the
// same mission. BoatID may be omitted when the target trip has exactly one
// boat.
type RescheduleBookingRequest struct {
	TripID string  `json:"trip_id" binding:"required"`
	BoatID *string `json:"boat_id,omitempty"`
}

// CheckInRequest optionally scopes a check-in to a trip and boat; when
// given, the booking must hold a matching item.
type CheckInRequest struct {
	TripID *string `json:"trip_id,omitempty"`
	BoatID *string `json:"boat_id,omitempty"`
}

// RefundBookingRequest processes a refund. AmountCents nil refunds the
// whole remaining balance.
type RefundBookingRequest struct {
	Reason      string  `json:"reason" binding:"required"`
	Notes       *string `json:"notes,omitempty"`
	AmountCents *int64  `json:"amount_cents,omitempty"`
}

// ReassignPassengersRequest moves all ticket items booked on one boat of a
// trip to another boat on the same trip.
type ReassignPassengersRequest struct {
	FromBoatID string `json:"from_boat_id" binding:"required"`
	ToBoatID   string `json:"to_boat_id" binding:"required"`
}

// BookingListQuery carries admin list filters.
type BookingListQuery struct {
	MissionID     *string
	TripID        *string
	BoatID        *string
	ItemType      *string
	BookingStatus *BookingStatus
	PaymentStatus *PaymentStatus
	Search        *string
	SortBy        string
	SortDesc      bool
	Limit         int
	Offset        int
}
