package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	name      string
	err       error
	delivered []BookingNotification
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, notification BookingNotification) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, notification)
	return nil
}

func TestTrigger_Fire(t *testing.T) {
	ctx := context.Background()
	notification := BookingNotification{
		Kind:         KindConfirmation,
		BookingID:    uuid.New(),
		InviteeEmail: "grace@example.com",
		StartTime:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	t.Run("delivers to every sink", func(t *testing.T) {
		email := &recordingSink{name: "email"}
		webhook := &recordingSink{name: "webhook"}

		failed := NewTrigger([]Sink{email, webhook}, nil).Fire(ctx, notification)

		assert.Zero(t, failed)
		assert.Len(t, email.delivered, 1)
		assert.Len(t, webhook.delivered, 1)
	})

	t.Run("one failing sink does not stop the rest", func(t *testing.T) {
		broken := &recordingSink{name: "email", err: assert.AnError}
		webhook := &recordingSink{name: "webhook"}

		failed := NewTrigger([]Sink{broken, webhook}, nil).Fire(ctx, notification)

		assert.Equal(t, 1, failed)
		assert.Len(t, webhook.delivered, 1)
	})

	t.Run("no sinks", func(t *testing.T) {
		failed := NewTrigger(nil, nil).Fire(ctx, notification)
		assert.Zero(t, failed)
	})
}
