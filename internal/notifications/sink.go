package notifications

import (
	"context"

	"github.com/google/uuid"
)

// Event is a best-effort notification about an order/payment fact. Delivery
// is fire-and-forget: sinks log failures and never surface them to the
// operation that produced the event.
type Event struct {
	Type       string         `json:"type"`
	MerchantID uuid.UUID      `json:"merchant_id"`
	OrderID    uuid.UUID      `json:"order_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Event types emitted by the engine.
const (
	EventOrderCreated         = "order_created"
	EventOrderStatusChanged   = "order_status_changed"
	EventPaymentProofUploaded = "payment_proof_uploaded"
	EventPaymentVerified      = "payment_verified"
	EventPaymentRejected      = "payment_rejected"
)

// Sink publishes events to whatever notification fan-out is configured.
type Sink interface {
	Publish(ctx context.Context, event Event)
}
