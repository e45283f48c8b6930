package payment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aranya-labs/backend-vastra/internal/common"
	"github.com/aranya-labs/backend-vastra/internal/events"
	"github.com/aranya-labs/backend-vastra/internal/obs"
	"github.com/aranya-labs/backend-vastra/internal/order"
)

func countWebhook(provider, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(provider, result).Inc()
	}
}

// CouponSettler records coupon usage once an order settles.
type CouponSettler interface {
	Settle(ctx context.Context, code string, orderID, userID uuid.UUID, discount int64) error
}

// OrderStore is the slice of the order service the webhook needs.
type OrderStore interface {
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (order.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, status string, paidAt time.Time) error
	Advance(ctx context.Context, orderID uuid.UUID, next order.Status) error
}

// CartClearer empties a user's cart once their payment is confirmed.
type CartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Webhook handles payment provider callbacks: signature verification, replay
// protection and settlement.
type Webhook struct {
	Providers map[string]Provider
	Orders    OrderStore
	Carts     CartClearer
	Coupons   CouponSettler
	Replay    *redis.Client
	ReplayTTL time.Duration
	Events    *events.Bus
	Logger    zerolog.Logger
}

// Handle processes POST /api/v1/webhooks/payment/{provider}.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Providers == nil || h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	result, err := provider.VerifyWebhook(r, body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "WEBHOOK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		countWebhook(providerKey, "invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:%s:%s", providerKey, common.Sha256HexBytes(body))
		fresh, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !fresh {
			countWebhook(providerKey, "replay")
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}

	ctx := r.Context()
	ord, err := h.Orders.GetByProviderOrderID(ctx, result.ProviderOrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "no order for provider reference", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
		return
	}
	if result.Amount > 0 && result.Amount != int64(ord.Pricing.TotalPrice) {
		common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "provider amount mismatch", nil)
		return
	}

	switch result.Status {
	case StatusPaid:
		if err := h.settle(ctx, ord, result); err != nil {
			countWebhook(providerKey, "error")
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
			return
		}
		countWebhook(providerKey, "paid")
	case StatusFailed:
		h.fail(ctx, ord, result)
		countWebhook(providerKey, "failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Webhook) settle(ctx context.Context, ord order.Order, result WebhookResult) error {
	if ord.IsPaid {
		return nil
	}
	if err := h.Orders.MarkPaid(ctx, ord.ID, result.PaymentID, StatusPaid, time.Now().UTC()); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			// Concurrent delivery already settled it.
			return nil
		}
		return err
	}
	// The cart lives until the charge is confirmed; this is the confirmation.
	if h.Carts != nil {
		if err := h.Carts.Clear(ctx, ord.UserID); err != nil {
			h.Logger.Warn().Err(err).Stringer("orderId", ord.ID).Msg("cart clear after settlement failed")
		}
	}
	if h.Coupons != nil && ord.Pricing.CouponCode != "" {
		discount := int64(ord.Pricing.CouponDiscount)
		if discount < 0 {
			discount = 0
		}
		if err := h.Coupons.Settle(ctx, ord.Pricing.CouponCode, ord.ID, ord.UserID, discount); err != nil {
			return fmt.Errorf("coupon settlement: %w", err)
		}
	}
	if h.Events != nil {
		if _, err := h.Events.Emit(ctx, events.TopicOrderPaid, ord.ID, map[string]any{
			"userId":    ord.UserID,
			"paymentId": result.PaymentID,
			"amount":    ord.Pricing.TotalPrice,
		}); err != nil {
			h.Logger.Warn().Err(err).Stringer("orderId", ord.ID).Msg("order paid event emit failed")
		}
	}
	return nil
}

// fail cancels the order while it is still cancellable, restoring the stock
// reserved at checkout. Failures here are logged, not surfaced: the provider
// retries on 5xx and the purge worker sweeps stragglers.
func (h Webhook) fail(ctx context.Context, ord order.Order, result WebhookResult) {
	if err := h.Orders.Advance(ctx, ord.ID, order.StatusCancelled); err != nil {
		if !errors.Is(err, order.ErrInvalidTransition) {
			h.Logger.Error().Err(err).Stringer("orderId", ord.ID).Msg("cancel after failed payment")
		}
	}
	if h.Events != nil {
		if _, err := h.Events.Emit(ctx, events.TopicPaymentFailed, ord.ID, map[string]any{
			"userId":    ord.UserID,
			"paymentId": result.PaymentID,
		}); err != nil {
			h.Logger.Warn().Err(err).Stringer("orderId", ord.ID).Msg("payment failed event emit failed")
		}
	}
}
