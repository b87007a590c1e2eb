package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/slotwise/internal/shared/domain"
)

type stubEvent struct {
	domain.BaseEvent
	Detail string `json:"detail"`
}

func TestNewMessage(t *testing.T) {
	aggregateID := uuid.New()
	event := &stubEvent{
		BaseEvent: domain.NewBaseEvent(aggregateID, "Booking", "booking.booking.created"),
		Detail:    "confirmed",
	}

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.EventID(), msg.EventID)
	assert.Equal(t, aggregateID, msg.AggregateID)
	assert.Equal(t, "Booking", msg.AggregateType)
	assert.Equal(t, "booking.booking.created", msg.RoutingKey)
	assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
	assert.JSONEq(t, `{"detail":"confirmed"}`, string(msg.Payload))
	assert.False(t, msg.IsPublished())
}

func TestMessage_IsPublished(t *testing.T) {
	msg := &Message{}
	assert.False(t, msg.IsPublished())

	now := time.Now().UTC()
	msg.PublishedAt = &now
	assert.True(t, msg.IsPublished())
}
