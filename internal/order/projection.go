package order

import (
	"github.com/aranya-labs/backend-vastra/internal/pricing"
)

// legacyLine mirrors the historical response item shape. Older storefront
// clients read "quantity", newer ones read "qty"; both carry the same value.
type legacyLine struct {
	ProductID     string        `json:"product"`
	Name          string        `json:"name"`
	Size          string        `json:"size,omitempty"`
	Qty           int           `json:"qty"`
	Quantity      int           `json:"quantity"`
	Price         pricing.Money `json:"price"`
	OriginalPrice pricing.Money `json:"originalPrice"`
	Status        Status        `json:"status"`
}

// LegacyView is the backwards-compatible order payload. The parallel
// "products" and "orderItems" arrays are projected from Order.Lines on the
// way out, never persisted.
type LegacyView struct {
	ID                 string        `json:"_id"`
	User               string        `json:"user"`
	Status             Status        `json:"orderStatus"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	Products           []legacyLine  `json:"products"`
	OrderItems         []legacyLine  `json:"orderItems"`
	ShippingAddress    Address       `json:"shippingAddress"`
	GSTInfo            string        `json:"gstInfo,omitempty"`
	ItemsPrice         pricing.Money `json:"itemsPrice"`
	OriginalItemsPrice pricing.Money `json:"originalItemsPrice"`
	DiscountAmount     pricing.Money `json:"discountAmount"`
	CouponDiscount     pricing.Money `json:"couponDiscount"`
	TaxPrice           pricing.Money `json:"taxPrice"`
	ShippingPrice      pricing.Money `json:"shippingPrice"`
	TotalPrice         pricing.Money `json:"totalPrice"`
	IsPaid             bool          `json:"isPaid"`
	IsDelivered        bool          `json:"isDelivered"`
	CreatedAt          string        `json:"createdAt"`
}

// ToLegacy projects an order into the historical response shape.
func ToLegacy(o Order) LegacyView {
	lines := make([]legacyLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		status := l.Status
		if status == "" {
			status = o.Status
		}
		lines = append(lines, legacyLine{
			ProductID:     l.ProductID.String(),
			Name:          l.Name,
			Size:          l.Size,
			Qty:           l.Qty,
			Quantity:      l.Qty,
			Price:         l.UnitPrice,
			OriginalPrice: l.OriginalPrice,
			Status:        status,
		})
	}
	return LegacyView{
		ID:                 o.ID.String(),
		User:               o.UserID.String(),
		Status:             o.Status,
		PaymentMethod:      o.PaymentMethod,
		Products:           lines,
		OrderItems:         lines,
		ShippingAddress:    o.Address,
		GSTInfo:            o.GSTIN,
		ItemsPrice:         o.Pricing.ItemsPrice,
		OriginalItemsPrice: o.Pricing.OriginalItemsPrice,
		DiscountAmount:     o.Pricing.CatalogDiscount,
		CouponDiscount:     o.Pricing.CouponDiscount,
		TaxPrice:           o.Pricing.Tax.Total,
		ShippingPrice:      o.Pricing.ShippingPrice,
		TotalPrice:         o.Pricing.TotalPrice,
		IsPaid:             o.IsPaid,
		IsDelivered:        o.IsDelivered,
		CreatedAt:          o.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}
