package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated     = "order.created"
	TopicOrderCodPending  = "order.cod_pending"
	TopicOrderCodVerified = "order.cod_verified"
	TopicOrderPaid        = "order.paid"
	TopicOrderCanceled    = "order.canceled"
	TopicOrderDispatched  = "order.dispatched"
	TopicOrderDelivered   = "order.delivered"
	TopicPaymentFailed    = "payment.failed"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderCodPending,
		TopicOrderCodVerified,
		TopicOrderPaid,
		TopicOrderCanceled,
		TopicOrderDispatched,
		TopicOrderDelivered,
		TopicPaymentFailed,
	}
}
