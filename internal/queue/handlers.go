package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/aranya-labs/backend-vastra/internal/common"
	"github.com/aranya-labs/backend-vastra/internal/notify"
	"github.com/aranya-labs/backend-vastra/internal/obs"
	"github.com/aranya-labs/backend-vastra/internal/order"
)

// Handlers implements the asynq task handlers for the worker process.
type Handlers struct {
	Mail       common.EmailSender
	Orders     *order.Service
	PurgeBatch int
	Logger     zerolog.Logger
}

// Register mounts all task handlers on the mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCodVerificationEmail, h.HandleCodEmail)
	mux.HandleFunc(TypePurgeExpiredCod, h.HandlePurgeExpiredCod)
}

// HandleCodEmail delivers the COD verification code. An expired code is
// dropped without retrying.
func (h *Handlers) HandleCodEmail(ctx context.Context, t *asynq.Task) error {
	var p CodEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode cod email payload: %v: %w", err, asynq.SkipRetry)
	}
	if !p.ExpiresAt.IsZero() && time.Now().After(p.ExpiresAt) {
		h.Logger.Warn().Str("orderId", p.OrderID).Msg("cod code expired before email delivery")
		return nil
	}
	if h.Mail == nil {
		return fmt.Errorf("mail sender not configured: %w", asynq.SkipRetry)
	}
	subject, body := notify.CodVerificationEmail(p.OrderID, p.Code, p.ExpiresAt)
	if err := h.Mail.Send(p.Email, subject, body); err != nil {
		return fmt.Errorf("send cod email: %w", err)
	}
	h.Logger.Info().Str("orderId", p.OrderID).Msg("cod verification email sent")
	return nil
}

// HandlePurgeExpiredCod cancels unverified COD orders past their window.
func (h *Handlers) HandlePurgeExpiredCod(ctx context.Context, _ *asynq.Task) error {
	if h.Orders == nil {
		return fmt.Errorf("order service not configured: %w", asynq.SkipRetry)
	}
	batch := h.PurgeBatch
	if batch <= 0 {
		batch = 100
	}
	purged, err := h.Orders.PurgeExpiredCod(ctx, batch)
	if err != nil {
		return fmt.Errorf("purge expired cod orders: %w", err)
	}
	if purged > 0 {
		if obs.CodPurgedTotal != nil {
			obs.CodPurgedTotal.Add(float64(purged))
		}
		h.Logger.Info().Int("purged", purged).Msg("expired cod orders cancelled")
	}
	return nil
}
