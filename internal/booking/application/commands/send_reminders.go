package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slotwise/slotwise/internal/booking/domain"
	sharedApplication "github.com/slotwise/slotwise/internal/shared/application"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/outbox"
)

// SendRemindersHandler scans for confirmed bookings starting soon and emits a
// reminder event for each, at most once per booking.
type SendRemindersHandler struct {
	bookings   domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	leadTime   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewSendRemindersHandler creates a new SendRemindersHandler.
func NewSendRemindersHandler(
	bookings domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	leadTime time.Duration,
	logger *slog.Logger,
) *SendRemindersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if leadTime <= 0 {
		leadTime = time.Hour
	}
	return &SendRemindersHandler{
		bookings:   bookings,
		outboxRepo: outboxRepo,
		uow:        uow,
		leadTime:   leadTime,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Used in tests.
func (h *SendRemindersHandler) WithClock(now func() time.Time) *SendRemindersHandler {
	h.now = now
	return h
}

// Handle marks due bookings as reminded and queues their reminder events.
// Returns how many reminders were queued. A failure on one booking does not
// block the rest; the next scan retries it.
func (h *SendRemindersHandler) Handle(ctx context.Context) (int, error) {
	now := h.now()
	due, err := h.bookings.FindConfirmedStartingWithin(ctx, now, now.Add(h.leadTime))
	if err != nil {
		return 0, fmt.Errorf("failed to scan for due reminders: %w", err)
	}

	sent := 0
	for _, booking := range due {
		err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			booking.MarkReminderSent(now)
			if err := h.bookings.Save(txCtx, booking); err != nil {
				return fmt.Errorf("failed to save booking: %w", err)
			}
			return saveEventsToOutbox(txCtx, h.outboxRepo, booking)
		})
		if err != nil {
			h.logger.Error("failed to queue reminder",
				"booking_id", booking.ID(),
				"error", err,
			)
			continue
		}
		sent++
	}

	if sent > 0 {
		h.logger.Info("reminders queued", "count", sent, "lead_time", h.leadTime)
	}
	return sent, nil
}
