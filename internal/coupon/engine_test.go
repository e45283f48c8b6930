package coupon

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestComputePercent(t *testing.T) {
	percent := int32(1500)
	rule := Rule{Kind: "percent", PercentBps: &percent}
	if got := Compute(100_000, rule); got != 15_000 {
		t.Fatalf("expected 15000 discount, got %d", got)
	}
}

func TestComputeFixedClampedToEligible(t *testing.T) {
	rule := Rule{Kind: "fixed", Value: 50_000}
	if got := Compute(30_000, rule); got != 30_000 {
		t.Fatalf("expected clamp to eligible, got %d", got)
	}
}

func TestEligibleSubtotalScoped(t *testing.T) {
	inScope := uuid.New()
	outOfScope := uuid.New()
	rule := Rule{ProductIDs: []uuid.UUID{inScope}}
	items := []Item{
		{ProductID: inScope, Subtotal: 50_000},
		{ProductID: outOfScope, Subtotal: 70_000},
	}
	if got := EligibleSubtotal(items, rule); got != 50_000 {
		t.Fatalf("expected eligible subtotal 50000, got %d", got)
	}
}

func TestValidateWindowAndLimits(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if err := (Rule{MinSpend: 10_000}).Validate(now, 5_000); err != ErrMinimumSpendUnmet {
		t.Fatalf("expected minimum spend error, got %v", err)
	}
	if err := (Rule{ValidFrom: &future}).Validate(now, 0); err != ErrInactive {
		t.Fatalf("expected inactive error, got %v", err)
	}
	if err := (Rule{ValidTo: &past}).Validate(now, 0); err != ErrExpired {
		t.Fatalf("expected expired error, got %v", err)
	}
	limit := int32(1)
	if err := (Rule{UsageLimit: &limit, UsedCount: 1}).Validate(now, 0); err != ErrUsageLimitReached {
		t.Fatalf("expected usage limit error, got %v", err)
	}
	if err := (Rule{EffectiveLimit: 2, PerUserUsed: 2}).Validate(now, 0); err != ErrPerUserLimitReached {
		t.Fatalf("expected per-user limit error, got %v", err)
	}
}
