package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscountCodeUsableAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-24 * time.Hour)
	later := now.Add(24 * time.Hour)
	maxUses := 5

	t.Run("active code with no window", func(t *testing.T) {
		code := &DiscountCode{IsActive: true}
		assert.True(t, code.UsableAt(now))
	})

	t.Run("inactive code", func(t *testing.T) {
		code := &DiscountCode{IsActive: false}
		assert.False(t, code.UsableAt(now))
	})

	t.Run("not yet valid", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, ValidFrom: &later}
		assert.False(t, code.UsableAt(now))
	})

	t.Run("expired", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, ValidUntil: &earlier}
		assert.False(t, code.UsableAt(now))
	})

	t.Run("inside window", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, ValidFrom: &earlier, ValidUntil: &later}
		assert.True(t, code.UsableAt(now))
	})

	t.Run("uses exhausted", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, MaxUses: &maxUses, TimesUsed: 5}
		assert.False(t, code.UsableAt(now))
	})

	t.Run("uses remaining", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, MaxUses: &maxUses, TimesUsed: 4}
		assert.True(t, code.UsableAt(now))
	})
}

func TestDiscountCodeGrantsAccessTo(t *testing.T) {
	now := time.Now()
	missionID := "mission-1"

	t.Run("plain discount grants nothing", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, IsAccessCode: false}
		assert.False(t, code.GrantsAccessTo(missionID, now))
	})

	t.Run("unscoped access code grants any mission", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, IsAccessCode: true}
		assert.True(t, code.GrantsAccessTo(missionID, now))
	})

	t.Run("scoped access code grants its mission only", func(t *testing.T) {
		code := &DiscountCode{IsActive: true, IsAccessCode: true, AccessCodeMissionID: &missionID}
		assert.True(t, code.GrantsAccessTo(missionID, now))
		assert.False(t, code.GrantsAccessTo("mission-2", now))
	})

	t.Run("inactive access code grants nothing", func(t *testing.T) {
		code := &DiscountCode{IsActive: false, IsAccessCode: true}
		assert.False(t, code.GrantsAccessTo(missionID, now))
	})
}

func TestDiscountCents(t *testing.T) {
	t.Run("percent", func(t *testing.T) {
		code := &DiscountCode{Type: DiscountTypePercent, Value: 10}
		assert.Equal(t, int64(1000), code.DiscountCents(10000))
	})

	t.Run("percent truncates", func(t *testing.T) {
		code := &DiscountCode{Type: DiscountTypePercent, Value: 15}
		assert.Equal(t, int64(149), code.DiscountCents(999))
	})

	t.Run("fixed", func(t *testing.T) {
		code := &DiscountCode{Type: DiscountTypeFixed, Value: 2500}
		assert.Equal(t, int64(2500), code.DiscountCents(10000))
	})

	t.Run("fixed clamped to subtotal", func(t *testing.T) {
		code := &DiscountCode{Type: DiscountTypeFixed, Value: 2500}
		assert.Equal(t, int64(1000), code.DiscountCents(1000))
	})

	t.Run("access code discounts nothing", func(t *testing.T) {
		code := &DiscountCode{Type: DiscountTypePercent, Value: 100, IsAccessCode: true}
		assert.Equal(t, int64(0), code.DiscountCents(10000))
	})
}
