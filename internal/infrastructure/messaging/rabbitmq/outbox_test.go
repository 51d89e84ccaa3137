package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/core/id"
	"cannapos/internal/domain/events"
	"cannapos/internal/infrastructure/storage/postgres"
)

type published struct {
	exchange string
	key      string
	body     []byte
	headers  map[string]any
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, exchange, key string, body []byte, headers map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange, key, body, headers})
	return nil
}

func TestOutboxHandler_RoutesByEventType(t *testing.T) {
	pub := &fakePublisher{}
	h := NewOutboxHandler(pub, "cannapos.events")

	msg := &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: events.AggregateOrder,
		AggregateID:   12,
		EventType:     events.OrderCompleted,
		Payload:       []byte(`{"orderId":12}`),
	}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "cannapos.events", pub.sent[0].exchange)
	assert.Equal(t, "order.completed", pub.sent[0].key)
	assert.JSONEq(t, `{"orderId":12}`, string(pub.sent[0].body))
	assert.Equal(t, int64(12), pub.sent[0].headers["aggregate_id"])
	assert.Equal(t, msg.ID.String(), pub.sent[0].headers["message_id"])
}

func TestOutboxHandler_PropagatesFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	h := NewOutboxHandler(pub, "cannapos.events")

	err := h.Handle(context.Background(), &postgres.OutboxMessage{EventType: events.PackageAdjusted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package.adjusted")
}
