package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aranya-labs/backend-vastra/internal/common"
	"github.com/aranya-labs/backend-vastra/internal/events"
)

// EmailNotifier sends transactional emails for selected topics. The COD
// verification email is not sent from here: its plaintext code never enters
// the event payload, so it goes through the queue instead.
type EmailNotifier struct {
	Mail         common.EmailSender
	Enabled      bool
	From         string
	TopicToggles map[string]bool
}

// Notify implements the events.Notifier interface.
func (n EmailNotifier) Notify(_ context.Context, ev events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[ev.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := extractRecipient(payload)
	if to == "" {
		return nil
	}
	return n.Mail.Send(to, subjectFor(ev.Topic), bodyFor(ev.Topic, payload, ev.OccurredAt))
}

func extractRecipient(payload map[string]any) string {
	for _, key := range []string{"email", "recipient", "userEmail", "customerEmail"} {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicOrderCreated:
		return "Order received"
	case events.TopicOrderCodVerified:
		return "Cash-on-delivery order confirmed"
	case events.TopicOrderPaid:
		return "Payment successful"
	case events.TopicOrderCanceled:
		return "Order cancelled"
	case events.TopicOrderDispatched:
		return "Order dispatched"
	case events.TopicOrderDelivered:
		return "Order delivered"
	case events.TopicPaymentFailed:
		return "Payment failed"
	default:
		return fmt.Sprintf("Update: %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	summary := fmt.Sprintf("Event %s occurred at %s.", topic, occurred.Format(time.RFC3339))
	if orderID, ok := payload["orderId"].(string); ok && orderID != "" {
		summary += fmt.Sprintf("\nOrder: %s", orderID)
	}
	if note, ok := payload["message"].(string); ok && note != "" {
		summary += "\n" + note
	}
	return summary
}

// CodVerificationEmail renders the email carrying the one-time COD code. The
// plaintext code exists only here and in the queued task that delivers it.
func CodVerificationEmail(orderID, code string, expiresAt time.Time) (subject, body string) {
	subject = "Confirm your cash-on-delivery order"
	body = fmt.Sprintf(
		"Your verification code for order %s is %s.\nIt expires at %s. Enter it on the order confirmation page to place your order.",
		orderID, code, expiresAt.Format(time.RFC3339))
	return subject, body
}
