package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Coupon is the persisted coupon record.
type Coupon struct {
	ID           uuid.UUID
	Code         string
	Kind         string
	Value        int64
	PercentBps   *int32
	MinSpend     int64
	UsageLimit   *int32
	UsedCount    int32
	PerUserLimit *int32
	ValidFrom    *time.Time
	ValidTo      *time.Time
	ProductIDs   []uuid.UUID
}

// Store is the persistence surface required by the coupon service.
type Store interface {
	GetCouponByCode(ctx context.Context, code string) (Coupon, error)
	CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
	HasUsageForOrder(ctx context.Context, couponID, orderID uuid.UUID) (bool, error)
	InsertUsage(ctx context.Context, couponID, orderID, userID uuid.UUID, discount int64) error
	IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error
}

// Applied is the result of evaluating a coupon against a cart.
type Applied struct {
	Code               string `json:"code"`
	DiscountPercentBps int32  `json:"discountPercentBps"`
	Discount           int64  `json:"discount"`
	TotalAfterDiscount int64  `json:"totalAfterDiscount"`
}

// Service evaluates and settles coupons.
type Service struct {
	Store               Store
	Now                 func() time.Time
	DefaultPerUserLimit int
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Apply evaluates the coupon for the user and cart without mutating state.
func (s *Service) Apply(ctx context.Context, code string, userID uuid.UUID, items []Item) (Applied, error) {
	if s == nil || s.Store == nil {
		return Applied{}, errors.New("coupon service not configured")
	}
	if code == "" {
		return Applied{}, fmt.Errorf("coupon code required: %w", ErrNotEligible)
	}
	c, err := s.Store.GetCouponByCode(ctx, code)
	if err != nil {
		return Applied{}, err
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.Subtotal
	}

	rule := Rule{
		Code:       c.Code,
		Kind:       c.Kind,
		Value:      c.Value,
		PercentBps: c.PercentBps,
		MinSpend:   c.MinSpend,
		UsageLimit: c.UsageLimit,
		UsedCount:  c.UsedCount,
		ValidFrom:  c.ValidFrom,
		ValidTo:    c.ValidTo,
		ProductIDs: c.ProductIDs,
	}
	limit := int32(s.DefaultPerUserLimit)
	if c.PerUserLimit != nil {
		limit = *c.PerUserLimit
	}
	if limit > 0 && userID != uuid.Nil {
		used, err := s.Store.CountUsageByUser(ctx, c.ID, userID)
		if err != nil {
			return Applied{}, err
		}
		rule.PerUserUsed = int32(used)
		rule.EffectiveLimit = limit
	}
	if err := rule.Validate(s.now(), subtotal); err != nil {
		return Applied{}, err
	}

	eligible := EligibleSubtotal(items, rule)
	if eligible == 0 {
		return Applied{}, ErrNotEligible
	}
	discount := Compute(eligible, rule)
	applied := Applied{
		Code:               c.Code,
		Discount:           discount,
		TotalAfterDiscount: subtotal - discount,
	}
	if rule.PercentBps != nil {
		applied.DiscountPercentBps = *rule.PercentBps
	}
	return applied, nil
}

// Settle records coupon usage for a placed order. It is idempotent per
// coupon+order so payment webhooks can safely retry.
func (s *Service) Settle(ctx context.Context, code string, orderID, userID uuid.UUID, discount int64) error {
	if s == nil || s.Store == nil {
		return errors.New("coupon service not configured")
	}
	if code == "" {
		return nil
	}
	c, err := s.Store.GetCouponByCode(ctx, code)
	if err != nil {
		return err
	}
	exists, err := s.Store.HasUsageForOrder(ctx, c.ID, orderID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.Store.InsertUsage(ctx, c.ID, orderID, userID, discount); err != nil {
		return err
	}
	return s.Store.IncrementUsedCount(ctx, c.ID)
}
