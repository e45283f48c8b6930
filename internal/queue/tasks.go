package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type identifiers registered with the asynq server.
const (
	TypeCodVerificationEmail = "email:cod_verification"
	TypePurgeExpiredCod      = "order:purge_expired_cod"
)

// CodEmailPayload carries the one-time verification code to the mail worker.
// It lives only in the task queue, never in the database.
type CodEmailPayload struct {
	OrderID   string    `json:"orderId"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewCodEmailTask builds the delivery task for a COD verification code. The
// retry window is capped at the code lifetime; delivering after expiry is
// useless.
func NewCodEmailTask(p CodEmailPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("queue: encode cod email payload: %w", err)
	}
	return asynq.NewTask(TypeCodVerificationEmail, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Retention(time.Hour),
	), nil
}

// NewPurgeExpiredCodTask builds the periodic sweep task that cancels COD
// orders whose verification window lapsed.
func NewPurgeExpiredCodTask() *asynq.Task {
	return asynq.NewTask(TypePurgeExpiredCod, nil,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	)
}
