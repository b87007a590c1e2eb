// Package persistence implements the booking repository on PostgreSQL.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/booking/domain"
	sharedPersistence "github.com/slotwise/slotwise/internal/shared/infrastructure/persistence"
)

// PostgresBookingRepository implements domain.Repository using PostgreSQL.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgreSQL booking repository.
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

const bookingColumns = `
	id, event_type_id, team_member_id, team_id, invitee_name, invitee_email, invitee_phone,
	start_time, end_time, timezone, notes, status, manage_token,
	calendar_event_id, reminder_sent_at, created_at, updated_at
`

type bookingRow struct {
	ID              uuid.UUID
	EventTypeID     uuid.UUID
	TeamMemberID    uuid.UUID
	TeamID          *uuid.UUID
	InviteeName     string
	InviteeEmail    string
	InviteePhone    string
	StartTime       time.Time
	EndTime         time.Time
	Timezone        string
	Notes           string
	Status          string
	ManageToken     string
	CalendarEventID *string
	ReminderSentAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Save persists a booking.
func (r *PostgresBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, event_type_id, team_member_id, team_id, invitee_name, invitee_email, invitee_phone,
			start_time, end_time, timezone, notes, status, manage_token,
			calendar_event_id, reminder_sent_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			notes = EXCLUDED.notes,
			status = EXCLUDED.status,
			calendar_event_id = EXCLUDED.calendar_event_id,
			reminder_sent_at = EXCLUDED.reminder_sent_at,
			updated_at = NOW()
	`
	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err := exec.Exec(ctx, query,
		booking.ID(),
		booking.EventTypeID(),
		booking.TeamMemberID(),
		booking.TeamID(),
		booking.Invitee().Name,
		booking.Invitee().Email,
		booking.Invitee().Phone,
		booking.StartTime(),
		booking.EndTime(),
		booking.Timezone(),
		booking.Notes(),
		string(booking.Status()),
		booking.ManageToken().String(),
		booking.CalendarEventID(),
		booking.ReminderSentAt(),
		booking.CreatedAt(),
		booking.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a booking by id. Returns nil when absent.
func (r *PostgresBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// FindByManageToken resolves a booking by its self-service capability.
// Returns nil when no booking holds the token.
func (r *PostgresBookingRepository) FindByManageToken(ctx context.Context, token domain.ManageToken) (*domain.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE manage_token = $1`, token.String())
}

// CountConfirmedForDay counts confirmed bookings of the event type starting
// within [dayStart, dayEnd).
func (r *PostgresBookingRepository) CountConfirmedForDay(ctx context.Context, eventTypeID uuid.UUID, dayStart, dayEnd time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE event_type_id = $1 AND status = 'confirmed'
		  AND start_time >= $2 AND start_time < $3
	`
	exec := sharedPersistence.Executor(ctx, r.pool)
	var count int
	if err := exec.QueryRow(ctx, query, eventTypeID, dayStart, dayEnd).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsConfirmedOverlapping reports whether the member holds a confirmed
// booking intersecting [start, end), skipping excludeID. Half-open windows:
// touching endpoints do not overlap.
func (r *PostgresBookingRepository) ExistsConfirmedOverlapping(ctx context.Context, memberID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE team_member_id = $1 AND status = 'confirmed'
			  AND start_time < $3 AND end_time > $2
			  AND id <> $4
		)
	`
	exec := sharedPersistence.Executor(ctx, r.pool)
	var exists bool
	if err := exec.QueryRow(ctx, query, memberID, start, end, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListUpcomingByMember lists confirmed bookings for a member from the given
// instant on, start ascending.
func (r *PostgresBookingRepository) ListUpcomingByMember(ctx context.Context, memberID uuid.UUID, from time.Time) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE team_member_id = $1 AND status = 'confirmed' AND start_time >= $2
		ORDER BY start_time ASC
	`
	return r.findMany(ctx, query, memberID, from)
}

// FindConfirmedStartingWithin lists confirmed bookings starting inside
// [from, to) whose reminder has not fired yet.
func (r *PostgresBookingRepository) FindConfirmedStartingWithin(ctx context.Context, from, to time.Time) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed' AND reminder_sent_at IS NULL
		  AND start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC
	`
	return r.findMany(ctx, query, from, to)
}

func (r *PostgresBookingRepository) findOne(ctx context.Context, query string, arg any) (*domain.Booking, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	row, err := scanBookingRow(exec.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToBooking(row), nil
}

func (r *PostgresBookingRepository) findMany(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		var row bookingRow
		if err := rows.Scan(
			&row.ID,
			&row.EventTypeID,
			&row.TeamMemberID,
			&row.TeamID,
			&row.InviteeName,
			&row.InviteeEmail,
			&row.InviteePhone,
			&row.StartTime,
			&row.EndTime,
			&row.Timezone,
			&row.Notes,
			&row.Status,
			&row.ManageToken,
			&row.CalendarEventID,
			&row.ReminderSentAt,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, rowToBooking(row))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func scanBookingRow(row pgx.Row) (bookingRow, error) {
	var b bookingRow
	err := row.Scan(
		&b.ID,
		&b.EventTypeID,
		&b.TeamMemberID,
		&b.TeamID,
		&b.InviteeName,
		&b.InviteeEmail,
		&b.InviteePhone,
		&b.StartTime,
		&b.EndTime,
		&b.Timezone,
		&b.Notes,
		&b.Status,
		&b.ManageToken,
		&b.CalendarEventID,
		&b.ReminderSentAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func rowToBooking(row bookingRow) *domain.Booking {
	return domain.RehydrateBooking(
		row.ID,
		row.EventTypeID,
		row.TeamMemberID,
		row.TeamID,
		domain.Invitee{Name: row.InviteeName, Email: row.InviteeEmail, Phone: row.InviteePhone},
		row.StartTime,
		row.EndTime,
		row.Timezone,
		row.Notes,
		domain.Status(row.Status),
		domain.ManageToken(row.ManageToken),
		row.CalendarEventID,
		row.ReminderSentAt,
		row.CreatedAt,
		row.UpdatedAt,
	)
}
