package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/slotwise/internal/booking/domain"
	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
	"github.com/slotwise/slotwise/internal/shared/infrastructure/outbox"
)

type fakeBookingRepo struct {
	byToken   map[domain.ManageToken]*domain.Booking
	saved     []*domain.Booking
	dayCount  int
	findErr   error
	saveErr   error
	upcoming  []*domain.Booking
	reminders []*domain.Booking

	overlap          bool
	overlapErr       error
	overlapMemberID  uuid.UUID
	overlapExcludeID uuid.UUID
	overlapInTx      bool
	dayCountInTx     bool
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{byToken: map[domain.ManageToken]*domain.Booking{}}
}

func (r *fakeBookingRepo) Save(ctx context.Context, booking *domain.Booking) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, booking)
	r.byToken[booking.ManageToken()] = booking
	return nil
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	for _, b := range r.byToken {
		if b.ID() == id {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) FindByManageToken(ctx context.Context, token domain.ManageToken) (*domain.Booking, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.byToken[token], nil
}

func (r *fakeBookingRepo) CountConfirmedForDay(ctx context.Context, eventTypeID uuid.UUID, dayStart, dayEnd time.Time) (int, error) {
	r.dayCountInTx = inTransaction(ctx)
	return r.dayCount, nil
}

func (r *fakeBookingRepo) ExistsConfirmedOverlapping(ctx context.Context, memberID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	r.overlapMemberID = memberID
	r.overlapExcludeID = excludeID
	r.overlapInTx = inTransaction(ctx)
	if r.overlapErr != nil {
		return false, r.overlapErr
	}
	if r.overlap {
		return true, nil
	}
	for _, b := range r.saved {
		if b.ID() == excludeID || b.TeamMemberID() != memberID || b.Status() != domain.StatusConfirmed {
			continue
		}
		if b.StartTime().Before(end) && b.EndTime().After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookingRepo) ListUpcomingByMember(ctx context.Context, memberID uuid.UUID, from time.Time) ([]*domain.Booking, error) {
	return r.upcoming, nil
}

func (r *fakeBookingRepo) FindConfirmedStartingWithin(ctx context.Context, from, to time.Time) ([]*domain.Booking, error) {
	return r.reminders, nil
}

type stubEventTypes struct {
	bySlug map[string]*schedulingDomain.EventType
	byID   map[uuid.UUID]*schedulingDomain.EventType
}

func newStubEventTypes(eventTypes ...*schedulingDomain.EventType) *stubEventTypes {
	s := &stubEventTypes{
		bySlug: map[string]*schedulingDomain.EventType{},
		byID:   map[uuid.UUID]*schedulingDomain.EventType{},
	}
	for _, et := range eventTypes {
		s.bySlug[et.Slug()] = et
		s.byID[et.ID()] = et
	}
	return s
}

func (s *stubEventTypes) Save(ctx context.Context, eventType *schedulingDomain.EventType) error {
	return nil
}

func (s *stubEventTypes) FindByID(ctx context.Context, id uuid.UUID) (*schedulingDomain.EventType, error) {
	return s.byID[id], nil
}

func (s *stubEventTypes) FindBySlug(ctx context.Context, slug string) (*schedulingDomain.EventType, error) {
	return s.bySlug[slug], nil
}

func (s *stubEventTypes) FindEligibleMemberIDs(ctx context.Context, eventTypeID uuid.UUID, teamID *uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type stubMembers struct {
	claimed  *schedulingDomain.TeamMember
	claimErr error
	byID     map[uuid.UUID]*schedulingDomain.TeamMember

	claimedPool []uuid.UUID
	claimedAt   time.Time
}

func (s *stubMembers) Save(ctx context.Context, member *schedulingDomain.TeamMember) error {
	return nil
}

func (s *stubMembers) FindByID(ctx context.Context, id uuid.UUID) (*schedulingDomain.TeamMember, error) {
	return s.byID[id], nil
}

func (s *stubMembers) FindActiveOrderedByFairness(ctx context.Context, teamID *uuid.UUID) ([]*schedulingDomain.TeamMember, error) {
	return nil, nil
}

func (s *stubMembers) ClaimLeastRecentlyBooked(ctx context.Context, candidateIDs []uuid.UUID, at time.Time) (*schedulingDomain.TeamMember, error) {
	s.claimedPool = candidateIDs
	s.claimedAt = at
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	return s.claimed, nil
}

type stubAvailability struct {
	slots []schedulingDomain.TimeSlot
	err   error
}

func (s *stubAvailability) CombinedAvailability(
	ctx context.Context,
	eventType *schedulingDomain.EventType,
	date time.Time,
	timezone string,
	teamID *uuid.UUID,
) ([]schedulingDomain.TimeSlot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.slots, nil
}

type fakeCalendar struct {
	createResult *calendarApp.EventResult
	createErr    error
	updateErr    error
	deleteErr    error

	createCalls int
	updateCalls int
	deleteCalls int
	deletedID   string
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, member *schedulingDomain.TeamMember, spec calendarApp.EventSpec) (*calendarApp.EventResult, error) {
	c.createCalls++
	if c.createErr != nil {
		return nil, c.createErr
	}
	if c.createResult != nil {
		return c.createResult, nil
	}
	return &calendarApp.EventResult{EventID: "evt_fake"}, nil
}

func (c *fakeCalendar) UpdateEvent(ctx context.Context, member *schedulingDomain.TeamMember, eventID string, spec calendarApp.EventSpec) (string, error) {
	c.updateCalls++
	if c.updateErr != nil {
		return "", c.updateErr
	}
	return eventID, nil
}

func (c *fakeCalendar) DeleteEvent(ctx context.Context, member *schedulingDomain.TeamMember, eventID string) (bool, error) {
	c.deleteCalls++
	c.deletedID = eventID
	if c.deleteErr != nil {
		return false, c.deleteErr
	}
	return true, nil
}

type fakeOutbox struct {
	batches [][]*outbox.Message
	saveErr error
}

func (o *fakeOutbox) Save(ctx context.Context, msg *outbox.Message) error { return nil }

func (o *fakeOutbox) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	if o.saveErr != nil {
		return o.saveErr
	}
	o.batches = append(o.batches, msgs)
	return nil
}

func (o *fakeOutbox) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return nil, nil
}

func (o *fakeOutbox) MarkPublished(ctx context.Context, id int64) error { return nil }

func (o *fakeOutbox) MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error {
	return nil
}

func (o *fakeOutbox) MarkDead(ctx context.Context, id int64, reason string) error { return nil }

func (o *fakeOutbox) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) { return 0, nil }

func (o *fakeOutbox) messageCount() int {
	total := 0
	for _, batch := range o.batches {
		total += len(batch)
	}
	return total
}

type txMarker struct{}

func inTransaction(ctx context.Context) bool {
	return ctx.Value(txMarker{}) != nil
}

// noopUnitOfWork runs "transactional" code paths inline, marking the context
// so fakes can tell whether a query joined the unit of work.
type noopUnitOfWork struct {
	begins    int
	commits   int
	rollbacks int
}

func (u *noopUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	u.begins++
	return context.WithValue(ctx, txMarker{}, true), nil
}

func (u *noopUnitOfWork) Commit(ctx context.Context) error {
	u.commits++
	return nil
}

func (u *noopUnitOfWork) Rollback(ctx context.Context) error {
	u.rollbacks++
	return nil
}
