package models

import "time"

// DiscountType is how a discount code's value is applied.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

// DiscountCode is a promotional or access code. Access codes
// (IsAccessCode) do not discount anything; they gate early-bird booking,
// optionally scoped to a single mission.
type DiscountCode struct {
	ID                  string       `json:"id" db:"id"`
	Code                string       `json:"code" db:"code"`
	Type                DiscountType `json:"type" db:"type"`
	Value               int64        `json:"value" db:"value"`
	IsActive            bool         `json:"is_active" db:"is_active"`
	IsAccessCode        bool         `json:"is_access_code" db:"is_access_code"`
	AccessCodeMissionID *string      `json:"access_code_mission_id,omitempty" db:"access_code_mission_id"`
	ValidFrom           *time.Time   `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil          *time.Time   `json:"valid_until,omitempty" db:"valid_until"`
	MaxUses             *int         `json:"max_uses,omitempty" db:"max_uses"`
	TimesUsed           int          `json:"times_used" db:"times_used"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// UsableAt reports whether the code may be applied at the given instant.
func (d *DiscountCode) UsableAt(asOf time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.ValidFrom != nil && asOf.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && asOf.After(*d.ValidUntil) {
		return false
	}
	if d.MaxUses != nil && d.TimesUsed >= *d.MaxUses {
		return false
	}
	return true
}

// GrantsAccessTo reports whether the code unlocks early-bird booking for
// the given mission.
func (d *DiscountCode) GrantsAccessTo(missionID string, asOf time.Time) bool {
	if !d.IsAccessCode || !d.UsableAt(asOf) {
		return false
	}
	return d.AccessCodeMissionID == nil || *d.AccessCodeMissionID == missionID
}

// DiscountCents returns the discount for a subtotal, never exceeding it.
func (d *DiscountCode) DiscountCents(subtotalCents int64) int64 {
	if d.IsAccessCode {
		return 0
	}
	var discount int64
	switch d.Type {
	case DiscountTypePercent:
		discount = subtotalCents * d.Value / 100
	case DiscountTypeFixed:
		discount = d.Value
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
