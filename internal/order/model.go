package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/aranya-labs/backend-vastra/internal/pricing"
	"github.com/aranya-labs/backend-vastra/internal/tax"
)

// PaymentMethod selects the settlement branch at checkout.
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "cod"
	PaymentPrepaid PaymentMethod = "prepaid"
)

// Address is the shipping destination captured at checkout.
type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	PIN     string `json:"pinCode"`
	Phone   string `json:"phone"`
	Country string `json:"country"`
}

// Line is one ordered product. The single canonical item record; legacy
// response shapes are projected from it, never stored.
type Line struct {
	ProductID     uuid.UUID     `json:"productId"`
	Name          string        `json:"name"`
	Size          string        `json:"size,omitempty"`
	Status        Status        `json:"status"`
	Qty           int           `json:"qty"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	OriginalPrice pricing.Money `json:"originalPrice"`
	Subtotal      pricing.Money `json:"subtotal"`
}

// PaymentInfo records the provider-side identifiers for prepaid orders.
type PaymentInfo struct {
	ProviderOrderID string `json:"providerOrderId,omitempty"`
	PaymentID       string `json:"paymentId,omitempty"`
	Status          string `json:"status,omitempty"`
}

// CodVerification tracks the hashed confirmation code for cash-on-delivery
// orders. The plaintext code exists only in the email sent to the customer.
type CodVerification struct {
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	Verified  bool      `json:"verified"`
	Tries     int       `json:"-"`
}

// Pricing is the full money breakdown persisted with the order. All values
// are paise.
type Pricing struct {
	ItemsPrice         pricing.Money `json:"itemsPrice"`
	OriginalItemsPrice pricing.Money `json:"originalItemsPrice"`
	CatalogDiscount    pricing.Money `json:"catalogDiscount"`
	CouponDiscount     pricing.Money `json:"couponDiscount"`
	CouponCode         string        `json:"couponCode,omitempty"`
	Tax                tax.Breakdown `json:"tax"`
	ShippingPrice      pricing.Money `json:"shippingPrice"`
	TotalPrice         pricing.Money `json:"totalPrice"`
}

// Order is the finalized checkout record.
type Order struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"userId"`
	Status        Status           `json:"status"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
	Lines         []Line           `json:"items"`
	Address       Address          `json:"shippingAddress"`
	GSTIN         string           `json:"gstin,omitempty"`
	Pricing       Pricing          `json:"pricing"`
	Payment       PaymentInfo      `json:"paymentInfo,omitempty"`
	Cod           *CodVerification `json:"codVerification,omitempty"`
	IsPaid        bool             `json:"isPaid"`
	PaidAt        *time.Time       `json:"paidAt,omitempty"`
	IsDelivered   bool             `json:"isDelivered"`
	DeliveredAt   *time.Time       `json:"deliveredAt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}
