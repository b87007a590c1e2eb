package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/scheduling/domain"
	sharedPersistence "github.com/slotwise/slotwise/internal/shared/infrastructure/persistence"
)

// PostgresEventTypeRepository implements domain.EventTypeRepository using
// PostgreSQL. Durations and buffers are stored as minutes, notice as hours.
type PostgresEventTypeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventTypeRepository creates a new event type repository.
func NewPostgresEventTypeRepository(pool *pgxpool.Pool) *PostgresEventTypeRepository {
	return &PostgresEventTypeRepository{pool: pool}
}

type eventTypeRow struct {
	ID               uuid.UUID
	Slug             string
	Name             string
	DurationMinutes  int
	BeforeBufferMins int
	AfterBufferMins  int
	MinNoticeHours   int
	MaxDailyBookings *int
	MaxAdvanceDays   int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const eventTypeColumns = `
	id, slug, name, duration_minutes, before_buffer_minutes, after_buffer_minutes,
	min_notice_hours, max_daily_bookings, max_advance_days, created_at, updated_at
`

// Save persists an event type.
func (r *PostgresEventTypeRepository) Save(ctx context.Context, eventType *domain.EventType) error {
	query := `
		INSERT INTO event_types (
			id, slug, name, duration_minutes, before_buffer_minutes, after_buffer_minutes,
			min_notice_hours, max_daily_bookings, max_advance_days, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			before_buffer_minutes = EXCLUDED.before_buffer_minutes,
			after_buffer_minutes = EXCLUDED.after_buffer_minutes,
			min_notice_hours = EXCLUDED.min_notice_hours,
			max_daily_bookings = EXCLUDED.max_daily_bookings,
			max_advance_days = EXCLUDED.max_advance_days,
			updated_at = NOW()
	`
	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err := exec.Exec(ctx, query,
		eventType.ID(),
		eventType.Slug(),
		eventType.Name(),
		int(eventType.Duration().Minutes()),
		int(eventType.BeforeBuffer().Minutes()),
		int(eventType.AfterBuffer().Minutes()),
		int(eventType.MinNotice().Hours()),
		eventType.MaxDailyBookings(),
		eventType.MaxAdvanceDays(),
		eventType.CreatedAt(),
		eventType.UpdatedAt(),
	)
	return err
}

// FindByID retrieves an event type by id. Returns nil when absent.
func (r *PostgresEventTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.EventType, error) {
	return r.findOne(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE id = $1`, id)
}

// FindBySlug retrieves an event type by slug. Returns nil when absent.
func (r *PostgresEventTypeRepository) FindBySlug(ctx context.Context, slug string) (*domain.EventType, error) {
	return r.findOne(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE slug = $1`, slug)
}

// FindEligibleMemberIDs returns active members bookable for the event type.
// An event type with no explicit member association opens to every active
// member; a team scope narrows by team membership.
func (r *PostgresEventTypeRepository) FindEligibleMemberIDs(ctx context.Context, eventTypeID uuid.UUID, teamID *uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT m.id
		FROM team_members m
		WHERE m.active = TRUE
		  AND (
			NOT EXISTS (SELECT 1 FROM event_type_members em WHERE em.event_type_id = $1)
			OR EXISTS (SELECT 1 FROM event_type_members em WHERE em.event_type_id = $1 AND em.member_id = m.id)
		  )
	`
	args := []any{eventTypeID}
	if teamID != nil {
		query += ` AND m.id IN (SELECT member_id FROM team_memberships WHERE team_id = $2)`
		args = append(args, *teamID)
	}
	query += ` ORDER BY m.id ASC`

	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (r *PostgresEventTypeRepository) findOne(ctx context.Context, query string, arg any) (*domain.EventType, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)

	var row eventTypeRow
	err := exec.QueryRow(ctx, query, arg).Scan(
		&row.ID,
		&row.Slug,
		&row.Name,
		&row.DurationMinutes,
		&row.BeforeBufferMins,
		&row.AfterBufferMins,
		&row.MinNoticeHours,
		&row.MaxDailyBookings,
		&row.MaxAdvanceDays,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return domain.RehydrateEventType(
		row.ID,
		row.Slug,
		row.Name,
		time.Duration(row.DurationMinutes)*time.Minute,
		time.Duration(row.BeforeBufferMins)*time.Minute,
		time.Duration(row.AfterBufferMins)*time.Minute,
		time.Duration(row.MinNoticeHours)*time.Hour,
		row.MaxDailyBookings,
		row.MaxAdvanceDays,
		row.CreatedAt,
		row.UpdatedAt,
	), nil
}
