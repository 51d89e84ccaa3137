package rabbitmq

import (
	"context"
	"fmt"

	"cannapos/internal/infrastructure/storage/postgres"
	"cannapos/pkg/logger"
)

// Publisher sends a message body to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers map[string]any) error
}

// OutboxHandler relays outbox rows to the events exchange using the event
// type as routing key.
type OutboxHandler struct {
	pub      Publisher
	exchange string
}

var _ postgres.OutboxHandler = (*OutboxHandler)(nil)

// NewOutboxHandler creates a handler publishing to exchange.
func NewOutboxHandler(pub Publisher, exchange string) *OutboxHandler {
	return &OutboxHandler{pub: pub, exchange: exchange}
}

// Handle implements postgres.OutboxHandler.
func (h *OutboxHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	headers := map[string]any{
		"message_id":     msg.ID.String(),
		"aggregate_type": msg.AggregateType,
		"aggregate_id":   msg.AggregateID,
	}
	if err := h.pub.Publish(ctx, h.exchange, msg.EventType, msg.Payload, headers); err != nil {
		return fmt.Errorf("relay %s: %w", msg.EventType, err)
	}
	logger.Debug(ctx, "outbox message relayed", "event_type", msg.EventType, "aggregate_id", msg.AggregateID)
	return nil
}
