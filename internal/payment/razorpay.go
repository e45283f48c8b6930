package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aranya-labs/backend-vastra/internal/resilience"
)

// Razorpay implements Provider against the Razorpay Orders API.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *resilience.HTTPClient
}

func (rp Razorpay) baseURL() string {
	if strings.TrimSpace(rp.BaseURL) != "" {
		return strings.TrimRight(rp.BaseURL, "/")
	}
	return "https://api.razorpay.com"
}

// CreateOrder opens a provider order. Called before the local transaction
// commits so a provider failure aborts checkout instead of leaving an
// unpayable order behind.
func (rp Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (ProviderOrder, error) {
	if rp.KeyID == "" || rp.KeySecret == "" {
		return ProviderOrder{}, errors.New("razorpay: credentials not configured")
	}
	if req.Amount <= 0 {
		return ProviderOrder{}, errors.New("razorpay: amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	payload, err := json.Marshal(map[string]any{
		"amount":   req.Amount,
		"currency": currency,
		"receipt":  req.ReceiptID,
		"notes":    req.Notes,
	})
	if err != nil {
		return ProviderOrder{}, fmt.Errorf("razorpay: encode order: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, rp.baseURL()+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return ProviderOrder{}, fmt.Errorf("razorpay: build request: %w", err)
	}
	httpReq.SetBasicAuth(rp.KeyID, rp.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := rp.do(ctx, httpReq)
	if err != nil {
		return ProviderOrder{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ProviderOrder{}, fmt.Errorf("razorpay: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ProviderOrder{}, fmt.Errorf("razorpay: create order: status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	var decoded struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ProviderOrder{}, fmt.Errorf("razorpay: decode response: %w", err)
	}
	if decoded.ID == "" {
		return ProviderOrder{}, errors.New("razorpay: response missing order id")
	}
	return ProviderOrder{
		Provider: "razorpay",
		OrderID:  decoded.ID,
		Amount:   decoded.Amount,
		Currency: decoded.Currency,
	}, nil
}

func (rp Razorpay) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if rp.HTTP != nil {
		return rp.HTTP.Do(ctx, req)
	}
	return http.DefaultClient.Do(req)
}

// VerifyWebhook validates the X-Razorpay-Signature header (HMAC-SHA256 of the
// raw body with the webhook secret) and normalises the payload.
func (rp Razorpay) VerifyWebhook(r *http.Request, body []byte) (WebhookResult, error) {
	provided := strings.TrimSpace(r.Header.Get("X-Razorpay-Signature"))
	if provided == "" {
		return WebhookResult{Valid: false, Err: errors.New("missing signature header")}, nil
	}
	mac := hmac.New(sha256.New, []byte(rp.KeySecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	var payload struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Amount  int64  `json:"amount"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookResult{Valid: false, Err: err}, nil
	}
	entity := payload.Payload.Payment.Entity
	if entity.OrderID == "" {
		return WebhookResult{Valid: false, Err: errors.New("missing order id")}, nil
	}
	return WebhookResult{
		Valid:           true,
		ProviderOrderID: entity.OrderID,
		PaymentID:       entity.ID,
		Amount:          entity.Amount,
		Status:          normaliseRazorpayStatus(payload.Event, entity.Status),
		ProviderPayload: body,
	}, nil
}

func normaliseRazorpayStatus(event, status string) string {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "payment.captured":
		return StatusPaid
	case "payment.failed":
		return StatusFailed
	}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "captured":
		return StatusPaid
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
