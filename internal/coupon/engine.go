package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the coupon code does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotEligible is returned when the coupon cannot be applied to the cart.
	ErrNotEligible = errors.New("coupon not eligible")
	// ErrUsageLimitReached indicates the coupon exhausted its global quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached indicates the caller exceeded the per-user allowance.
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
	// ErrInactive is returned when the coupon is used before its window opens.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned when the coupon window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumSpendUnmet indicates the cart subtotal is below the floor.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	Code           string
	Kind           string
	Value          int64
	PercentBps     *int32
	MinSpend       int64
	UsageLimit     *int32
	UsedCount      int32
	ValidFrom      *time.Time
	ValidTo        *time.Time
	ProductIDs     []uuid.UUID
	PerUserUsed    int32
	EffectiveLimit int32
}

// Item represents a line eligible for coupon calculation.
type Item struct {
	ProductID uuid.UUID
	Subtotal  int64
}

// Validate ensures the rule can be applied at the provided instant and total.
func (r Rule) Validate(now time.Time, cartTotal int64) error {
	if cartTotal < r.MinSpend {
		return ErrMinimumSpendUnmet
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	if r.EffectiveLimit > 0 && r.PerUserUsed >= r.EffectiveLimit {
		return ErrPerUserLimitReached
	}
	return nil
}

// EligibleSubtotal calculates the portion of the cart affected by the rule.
// An unscoped rule covers the whole cart.
func EligibleSubtotal(items []Item, r Rule) int64 {
	var total int64
	scoped := len(r.ProductIDs) > 0
	for _, it := range items {
		if it.Subtotal <= 0 {
			continue
		}
		if !scoped || ruleMatchesItem(r, it) {
			total += it.Subtotal
		}
	}
	return total
}

func ruleMatchesItem(r Rule, it Item) bool {
	for _, id := range r.ProductIDs {
		if id == it.ProductID {
			return true
		}
	}
	return false
}

// Compute determines the discount amount for the eligible subtotal. The
// discount never exceeds the eligible amount.
func Compute(eligible int64, r Rule) int64 {
	if eligible <= 0 {
		return 0
	}
	discount := r.Value
	if strings.EqualFold(r.Kind, "percent") {
		if r.PercentBps == nil || *r.PercentBps <= 0 {
			return 0
		}
		discount = (eligible * int64(*r.PercentBps)) / 10000
	}
	if discount > eligible {
		discount = eligible
	}
	if discount < 0 {
		return 0
	}
	return discount
}
