package catalog

import (
	"github.com/google/uuid"

	"github.com/aranya-labs/backend-vastra/internal/pricing"
	"github.com/aranya-labs/backend-vastra/internal/shipping"
)

// SizeStock is one sellable size within a variant.
type SizeStock struct {
	Label string        `json:"label"`
	Qty   int           `json:"qty"`
	Price pricing.Money `json:"price,omitempty"`
}

// Variant is a specific SKU/style of a product with its own sizes and stock.
type Variant struct {
	SKU   string      `json:"sku"`
	Sizes []SizeStock `json:"sizes"`
}

// Product is the canonical internal product shape. Raw documents are
// normalised into it at ingress; pipeline code never sees the raw variants.
type Product struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Category    string              `json:"category"`
	BasePrice   pricing.Money       `json:"basePrice"`
	DiscountPct float64             `json:"discountPct,omitempty"`
	Images      []string            `json:"images,omitempty"`
	Dims        shipping.Dimensions `json:"dims"`
	Variants    []Variant           `json:"variants"`
}

// StockSnapshot is the read-only slice of a product used by stock validation:
// name plus per-variant size availability, fetched fresh per checkout attempt.
type StockSnapshot struct {
	ProductID uuid.UUID
	Name      string
	Variants  []Variant
}

// FirstAvailableSize returns the first size of the first variant that has
// stock, used when a cart line arrives without a size.
func (s StockSnapshot) FirstAvailableSize() (string, bool) {
	for _, v := range s.Variants {
		for _, size := range v.Sizes {
			if size.Qty > 0 {
				return size.Label, true
			}
		}
	}
	return "", false
}

// AvailableQty reports how much of a size a single order line can reserve.
// Stock is decremented from one variant row at a time, so the answer is the
// largest row, not the sum across variants. The second return value is false
// when the size is not sold at all.
func (s StockSnapshot) AvailableQty(sizeLabel string) (int, bool) {
	found := false
	best := 0
	for _, v := range s.Variants {
		for _, size := range v.Sizes {
			if size.Label == sizeLabel {
				found = true
				if size.Qty > best {
					best = size.Qty
				}
			}
		}
	}
	return best, found
}
