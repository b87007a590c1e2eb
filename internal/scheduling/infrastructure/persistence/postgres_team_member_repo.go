// Package persistence implements the scheduling repositories on PostgreSQL.
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

// PostgresTeamMemberRepository implements domain.TeamMemberRepository using
// PostgreSQL.
type PostgresTeamMemberRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTeamMemberRepository creates a new PostgreSQL team member repository.
func NewPostgresTeamMemberRepository(pool *pgxpool.Pool) *PostgresTeamMemberRepository {
	return &PostgresTeamMemberRepository{pool: pool}
}

const teamMemberColumns = `
	id, name, email, calendar_provider, calendar_id, has_oauth_grant,
	active, fairness_cursor, created_at, updated_at
`

type teamMemberRow struct {
	ID               uuid.UUID
	Name             string
	Email            string
	CalendarProvider string
	CalendarID       string
	HasOAuthGrant    bool
	Active           bool
	FairnessCursor   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Save persists a team member.
func (r *PostgresTeamMemberRepository) Save(ctx context.Context, member *domain.TeamMember) error {
	query := `
		INSERT INTO team_members (
			id, name, email, calendar_provider, calendar_id, has_oauth_grant,
			active, fairness_cursor, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			calendar_provider = EXCLUDED.calendar_provider,
			calendar_id = EXCLUDED.calendar_id,
			has_oauth_grant = EXCLUDED.has_oauth_grant,
			active = EXCLUDED.active,
			fairness_cursor = EXCLUDED.fairness_cursor,
			updated_at = NOW()
	`
	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err := exec.Exec(ctx, query,
		member.ID(),
		member.Name(),
		member.Email(),
		string(member.CalendarProvider()),
		member.CalendarID(),
		member.HasOAuthGrant(),
		member.IsActive(),
		member.FairnessCursor(),
		member.CreatedAt(),
		member.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a team member by id. Returns nil when absent.
func (r *PostgresTeamMemberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + ` FROM team_members WHERE id = $1`

	exec := sharedPersistence.Executor(ctx, r.pool)
	row, err := scanTeamMemberRow(exec.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToTeamMember(row), nil
}

// FindActiveOrderedByFairness lists active members in fairness order:
// never-booked members first, then oldest cursor, member id as tiebreak.
func (r *PostgresTeamMemberRepository) FindActiveOrderedByFairness(ctx context.Context, teamID *uuid.UUID) ([]*domain.TeamMember, error) {
	query := `SELECT ` + teamMemberColumns + `
		FROM team_members
		WHERE active = TRUE
		ORDER BY fairness_cursor ASC NULLS FIRST, id ASC
	`
	args := []any{}
	if teamID != nil {
		query = `SELECT ` + teamMemberColumns + `
			FROM team_members
			WHERE active = TRUE
			  AND id IN (SELECT member_id FROM team_memberships WHERE team_id = $1)
			ORDER BY fairness_cursor ASC NULLS FIRST, id ASC
		`
		args = append(args, *teamID)
	}

	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTeamMembers(rows)
}

// ClaimLeastRecentlyBooked picks the fairest member of the candidate set and
// advances their cursor in one statement. FOR UPDATE SKIP LOCKED serializes
// concurrent claims without blocking: two requests racing over one member
// cannot both advance the same cursor.
func (r *PostgresTeamMemberRepository) ClaimLeastRecentlyBooked(ctx context.Context, candidateIDs []uuid.UUID, at time.Time) (*domain.TeamMember, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	query := `
		UPDATE team_members
		SET fairness_cursor = $2, updated_at = NOW()
		WHERE id = (
			SELECT id FROM team_members
			WHERE id = ANY($1) AND active = TRUE
			  AND (fairness_cursor IS NULL OR fairness_cursor < $2)
			ORDER BY fairness_cursor ASC NULLS FIRST, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + teamMemberColumns

	exec := sharedPersistence.Executor(ctx, r.pool)
	row, err := scanTeamMemberRow(exec.QueryRow(ctx, query, candidateIDs, at.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToTeamMember(row), nil
}

func scanTeamMemberRow(row pgx.Row) (teamMemberRow, error) {
	var m teamMemberRow
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Email,
		&m.CalendarProvider,
		&m.CalendarID,
		&m.HasOAuthGrant,
		&m.Active,
		&m.FairnessCursor,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func scanTeamMembers(rows pgx.Rows) ([]*domain.TeamMember, error) {
	members := make([]*domain.TeamMember, 0)
	for rows.Next() {
		var m teamMemberRow
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Email,
			&m.CalendarProvider,
			&m.CalendarID,
			&m.HasOAuthGrant,
			&m.Active,
			&m.FairnessCursor,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, rowToTeamMember(m))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return members, nil
}

func rowToTeamMember(row teamMemberRow) *domain.TeamMember {
	return domain.RehydrateTeamMember(
		row.ID,
		row.Name,
		row.Email,
		domain.CalendarProvider(row.CalendarProvider),
		row.CalendarID,
		row.HasOAuthGrant,
		row.Active,
		row.FairnessCursor,
		row.CreatedAt,
		row.UpdatedAt,
	)
}
