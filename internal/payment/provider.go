package payment

import (
	"context"
	"net/http"
)

// OrderRequest captures the information required to open a provider-side
// order before the local order commits. Amount is in minor units (paise).
type OrderRequest struct {
	ReceiptID string
	Amount    int64
	Currency  string
	Notes     map[string]string
}

// ProviderOrder is the minimal provider response needed to drive client-side
// payment collection.
type ProviderOrder struct {
	Provider string
	OrderID  string
	Amount   int64
	Currency string
}

// WebhookResult contains the normalised data extracted from a webhook
// notification after signature verification.
type WebhookResult struct {
	Valid           bool
	ProviderOrderID string
	PaymentID       string
	Amount          int64
	Status          string
	ProviderPayload []byte
	Err             error
}

// Provider abstracts the upstream payment provider.
type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (ProviderOrder, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookResult, error)
}
