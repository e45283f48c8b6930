package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/payment"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedWebhookBody(orderID, paymentID string, amount int64) []byte {
	body, _ := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       paymentID,
					"order_id": orderID,
					"amount":   amount,
					"status":   "captured",
				},
			},
		},
	})
	return body
}

func TestRazorpayCreateOrder(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_MvX1", "amount": 317560, "currency": "INR",
		})
	}))
	defer srv.Close()

	rp := payment.Razorpay{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL}
	po, err := rp.CreateOrder(context.Background(), payment.OrderRequest{
		ReceiptID: "rcpt_1", Amount: 317560, Currency: "INR",
	})
	require.NoError(t, err)
	require.Equal(t, "order_MvX1", po.OrderID)
	require.Equal(t, int64(317560), po.Amount)
	require.Equal(t, "/v1/orders", gotPath)
	require.NotEmpty(t, gotAuth)
	require.EqualValues(t, 317560, gotBody["amount"])
}

func TestRazorpayCreateOrderProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rp := payment.Razorpay{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}
	_, err := rp.CreateOrder(context.Background(), payment.OrderRequest{ReceiptID: "r", Amount: 100})
	require.Error(t, err)
}

func TestRazorpayVerifyWebhookValidSignature(t *testing.T) {
	rp := payment.Razorpay{KeyID: "k", KeySecret: "whsecret"}
	body := capturedWebhookBody("order_MvX1", "pay_9A", 317560)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Razorpay-Signature", signBody("whsecret", body))

	result, err := rp.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "order_MvX1", result.ProviderOrderID)
	require.Equal(t, "pay_9A", result.PaymentID)
	require.Equal(t, payment.StatusPaid, result.Status)
	require.Equal(t, int64(317560), result.Amount)
}

func TestRazorpayVerifyWebhookBadSignature(t *testing.T) {
	rp := payment.Razorpay{KeyID: "k", KeySecret: "whsecret"}
	body := capturedWebhookBody("order_MvX1", "pay_9A", 317560)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Razorpay-Signature", signBody("wrong", body))

	result, err := rp.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestRazorpayVerifyWebhookFailedEvent(t *testing.T) {
	rp := payment.Razorpay{KeyID: "k", KeySecret: "whsecret"}
	body, _ := json.Marshal(map[string]any{
		"event": "payment.failed",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{"id": "pay_9B", "order_id": "order_MvX2", "amount": 500, "status": "failed"},
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Razorpay-Signature", signBody("whsecret", body))

	result, err := rp.VerifyWebhook(req, body)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, payment.StatusFailed, result.Status)
}
