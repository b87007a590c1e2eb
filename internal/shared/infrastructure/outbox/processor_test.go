package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	pending   []*Message
	published []int64
	failed    []int64
	dead      []int64
}

func (r *memRepo) Save(ctx context.Context, msg *Message) error { return nil }

func (r *memRepo) SaveBatch(ctx context.Context, msgs []*Message) error { return nil }

func (r *memRepo) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *memRepo) MarkPublished(ctx context.Context, id int64) error {
	r.published = append(r.published, id)
	return nil
}

func (r *memRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *memRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	r.dead = append(r.dead, id)
	return nil
}

func (r *memRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) { return 0, nil }

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func pendingMessage(id int64, createdAt time.Time) *Message {
	return &Message{
		ID:            id,
		EventID:       uuid.New(),
		AggregateType: "Booking",
		AggregateID:   uuid.New(),
		RoutingKey:    "booking.booking.created",
		Payload:       json.RawMessage(`{}`),
		Metadata:      json.RawMessage(`{}`),
		CreatedAt:     createdAt,
	}
}

func TestProcessor_ProcessOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes pending messages and tracks lag", func(t *testing.T) {
		oldest := time.Now().Add(-2 * time.Minute)
		repo := &memRepo{pending: []*Message{
			pendingMessage(1, time.Now().Add(-time.Minute)),
			pendingMessage(2, oldest),
		}}
		publisher := &recordingPublisher{}
		processor := NewProcessor(repo, publisher, DefaultProcessorConfig(), nil)

		require.NoError(t, processor.ProcessOnce(ctx))

		assert.Equal(t, []int64{1, 2}, repo.published)
		stats := processor.GetStats()
		assert.Equal(t, uint64(2), stats.PublishedCount)
		require.NotNil(t, stats.OldestMessageAt)
		assert.Equal(t, oldest, *stats.OldestMessageAt)
		assert.Greater(t, stats.LagSeconds, 100.0)
		assert.NotNil(t, stats.LastProcessedAt)
	})

	t.Run("drained outbox reports zero lag", func(t *testing.T) {
		processor := NewProcessor(&memRepo{}, &recordingPublisher{}, DefaultProcessorConfig(), nil)

		require.NoError(t, processor.ProcessOnce(ctx))

		stats := processor.GetStats()
		assert.Zero(t, stats.LagSeconds)
		assert.Nil(t, stats.OldestMessageAt)
	})

	t.Run("failed publish schedules a retry", func(t *testing.T) {
		repo := &memRepo{pending: []*Message{pendingMessage(7, time.Now())}}
		processor := NewProcessor(repo, &recordingPublisher{err: assert.AnError}, DefaultProcessorConfig(), nil)

		require.NoError(t, processor.ProcessOnce(ctx))

		assert.Equal(t, []int64{7}, repo.failed)
		assert.Empty(t, repo.published)
		assert.Equal(t, uint64(1), processor.GetStats().FailedCount)
	})

	t.Run("exhausted retries dead-letter the message", func(t *testing.T) {
		msg := pendingMessage(9, time.Now())
		msg.RetryCount = DefaultProcessorConfig().MaxRetries - 1
		repo := &memRepo{pending: []*Message{msg}}
		processor := NewProcessor(repo, &recordingPublisher{err: assert.AnError}, DefaultProcessorConfig(), nil)

		require.NoError(t, processor.ProcessOnce(ctx))

		assert.Equal(t, []int64{9}, repo.dead)
		assert.Equal(t, uint64(1), processor.GetStats().DeadCount)
	})
}

func TestProcessor_RetryBackoff(t *testing.T) {
	processor := NewProcessor(&memRepo{}, &recordingPublisher{}, ProcessorConfig{
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
	}, nil)

	assert.Equal(t, time.Second, processor.retryBackoff(1))
	assert.Equal(t, 2*time.Second, processor.retryBackoff(2))
	assert.Equal(t, 8*time.Second, processor.retryBackoff(4))
	assert.Equal(t, time.Minute, processor.retryBackoff(20))
}
