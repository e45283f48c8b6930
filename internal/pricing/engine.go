package pricing

import (
	"math"

	"github.com/google/uuid"
)

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// LineItem is a cart line resolved against its catalog product.
type LineItem struct {
	ProductID     uuid.UUID
	Name          string
	Qty           int
	UnitPrice     Money
	OriginalPrice Money
	DiscountPct   float64
	Size          string
}

// ProductPricing is the slice of a catalog product needed to resolve prices.
type ProductPricing struct {
	BasePrice  Money
	SizePrices map[string]Money
}

// Resolved carries the per-item price pair used to build order lines.
type Resolved struct {
	OriginalPrice Money
	SellingPrice  Money
}

// Summary aggregates the computed totals for a set of line items.
type Summary struct {
	ItemsPrice         Money
	OriginalItemsPrice Money
	CatalogDiscount    Money
}

// ResolveOriginal derives the original (pre-discount) price for a line item.
// The chain degrades until a value exists: explicit original price, price
// derived from the advertised discount percentage, the matching variant size
// price, the product base price, and finally the current selling price.
func ResolveOriginal(item LineItem, product ProductPricing) Money {
	if item.OriginalPrice > 0 {
		return item.OriginalPrice
	}
	if item.DiscountPct > 0 && item.DiscountPct < 100 && item.UnitPrice > 0 {
		derived := float64(item.UnitPrice) / (1 - item.DiscountPct/100)
		return Money(math.Round(derived))
	}
	if item.Size != "" {
		if price, ok := product.SizePrices[item.Size]; ok && price > 0 {
			return price
		}
	}
	if product.BasePrice > 0 {
		return product.BasePrice
	}
	return item.UnitPrice
}

// Compute resolves every line item and returns the aggregate totals.
// It never fails; items with a non-positive quantity are skipped.
func Compute(items []LineItem, products map[uuid.UUID]ProductPricing) ([]Resolved, Summary) {
	resolved := make([]Resolved, 0, len(items))
	var sum Summary
	for _, it := range items {
		if it.Qty <= 0 {
			resolved = append(resolved, Resolved{})
			continue
		}
		original := ResolveOriginal(it, products[it.ProductID])
		if original < it.UnitPrice {
			original = it.UnitPrice
		}
		resolved = append(resolved, Resolved{OriginalPrice: original, SellingPrice: it.UnitPrice})
		sum.ItemsPrice += Money(it.Qty) * it.UnitPrice
		sum.OriginalItemsPrice += Money(it.Qty) * original
	}
	sum.CatalogDiscount = sum.OriginalItemsPrice - sum.ItemsPrice
	return resolved, sum
}

// Total combines the pipeline components into the amount charged to the
// customer. The coupon discount is clamped to the items subtotal.
func Total(items Money, couponDiscount Money, tax Money, shipping Money) Money {
	if couponDiscount > items {
		couponDiscount = items
	}
	if couponDiscount < 0 {
		couponDiscount = 0
	}
	return items - couponDiscount + tax + shipping
}
