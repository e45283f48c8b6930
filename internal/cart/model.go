package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/aranya-labs/backend-vastra/internal/pricing"
)

// Cart is a user's open cart. One active cart per user.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Item is one cart line. OriginalPrice and DiscountPct are optional and feed
// the original-price fallback chain at checkout.
type Item struct {
	ID            uuid.UUID     `json:"id"`
	CartID        uuid.UUID     `json:"cartId"`
	ProductID     uuid.UUID     `json:"productId"`
	Name          string        `json:"name"`
	Size          string        `json:"size,omitempty"`
	Qty           int           `json:"qty"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	OriginalPrice pricing.Money `json:"originalPrice,omitempty"`
	DiscountPct   float64       `json:"discountPct,omitempty"`
}

// Lines converts cart items to pricing line items for the checkout pipeline.
func Lines(items []Item) []pricing.LineItem {
	lines := make([]pricing.LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.LineItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			Qty:           it.Qty,
			UnitPrice:     it.UnitPrice,
			OriginalPrice: it.OriginalPrice,
			DiscountPct:   it.DiscountPct,
			Size:          it.Size,
		})
	}
	return lines
}
