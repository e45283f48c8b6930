package pricing

import (
	"testing"

	"github.com/google/uuid"
)

func TestResolveOriginalFallbackChain(t *testing.T) {
	product := ProductPricing{
		BasePrice:  40_000,
		SizePrices: map[string]Money{"M": 45_000},
	}

	explicit := LineItem{UnitPrice: 30_000, OriginalPrice: 50_000}
	if got := ResolveOriginal(explicit, product); got != 50_000 {
		t.Fatalf("explicit original: got %d", got)
	}

	derived := LineItem{UnitPrice: 30_000, DiscountPct: 25}
	if got := ResolveOriginal(derived, product); got != 40_000 {
		t.Fatalf("derived original: got %d", got)
	}

	sized := LineItem{UnitPrice: 30_000, Size: "M"}
	if got := ResolveOriginal(sized, product); got != 45_000 {
		t.Fatalf("size price original: got %d", got)
	}

	base := LineItem{UnitPrice: 30_000, Size: "XL"}
	if got := ResolveOriginal(base, product); got != 40_000 {
		t.Fatalf("base price original: got %d", got)
	}

	bare := LineItem{UnitPrice: 30_000}
	if got := ResolveOriginal(bare, ProductPricing{}); got != 30_000 {
		t.Fatalf("ultimate fallback: got %d", got)
	}
}

func TestComputeTotals(t *testing.T) {
	p1 := uuid.New()
	items := []LineItem{
		{ProductID: p1, Qty: 2, UnitPrice: 50_000, OriginalPrice: 60_000},
		{ProductID: p1, Qty: 1, UnitPrice: 20_000},
	}
	resolved, sum := Compute(items, map[uuid.UUID]ProductPricing{p1: {BasePrice: 25_000}})
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved items, got %d", len(resolved))
	}
	if sum.ItemsPrice != 120_000 {
		t.Fatalf("items price: got %d", sum.ItemsPrice)
	}
	if sum.OriginalItemsPrice != 145_000 {
		t.Fatalf("original items price: got %d", sum.OriginalItemsPrice)
	}
	if sum.CatalogDiscount != 25_000 {
		t.Fatalf("catalog discount: got %d", sum.CatalogDiscount)
	}
}

func TestComputeSkipsNonPositiveQty(t *testing.T) {
	items := []LineItem{{Qty: 0, UnitPrice: 10_000}}
	_, sum := Compute(items, nil)
	if sum.ItemsPrice != 0 {
		t.Fatalf("expected zero items price, got %d", sum.ItemsPrice)
	}
}

func TestTotalClampsCoupon(t *testing.T) {
	if got := Total(100_000, 150_000, 18_000, 9_900); got != 27_900 {
		t.Fatalf("clamped total: got %d", got)
	}
	if got := Total(100_000, 10_000, 16_200, 9_900); got != 116_100 {
		t.Fatalf("total: got %d", got)
	}
}
