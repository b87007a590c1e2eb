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

// PostgresAvailabilityRuleRepository implements domain.AvailabilityRuleRepository
// using PostgreSQL. Wall-clock offsets are stored as minutes from midnight.
type PostgresAvailabilityRuleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAvailabilityRuleRepository creates a new rule repository.
func NewPostgresAvailabilityRuleRepository(pool *pgxpool.Pool) *PostgresAvailabilityRuleRepository {
	return &PostgresAvailabilityRuleRepository{pool: pool}
}

type ruleRow struct {
	ID           uuid.UUID
	MemberID     uuid.UUID
	Weekday      int
	StartMinutes int
	EndMinutes   int
	Available    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Save persists a rule. One rule per member and weekday.
func (r *PostgresAvailabilityRuleRepository) Save(ctx context.Context, rule *domain.AvailabilityRule) error {
	query := `
		INSERT INTO availability_rules (
			id, member_id, weekday, start_minutes, end_minutes, available,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (member_id, weekday) DO UPDATE SET
			start_minutes = EXCLUDED.start_minutes,
			end_minutes = EXCLUDED.end_minutes,
			available = EXCLUDED.available,
			updated_at = NOW()
	`
	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err := exec.Exec(ctx, query,
		rule.ID(),
		rule.MemberID(),
		int(rule.Weekday()),
		int(rule.Start().Minutes()),
		int(rule.End().Minutes()),
		rule.IsAvailable(),
		rule.CreatedAt(),
		rule.UpdatedAt(),
	)
	return err
}

// FindByMember lists a member's rules ordered by weekday.
func (r *PostgresAvailabilityRuleRepository) FindByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.AvailabilityRule, error) {
	query := `
		SELECT id, member_id, weekday, start_minutes, end_minutes, available,
		       created_at, updated_at
		FROM availability_rules
		WHERE member_id = $1
		ORDER BY weekday ASC
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]*domain.AvailabilityRule, 0)
	for rows.Next() {
		var row ruleRow
		if err := rows.Scan(
			&row.ID,
			&row.MemberID,
			&row.Weekday,
			&row.StartMinutes,
			&row.EndMinutes,
			&row.Available,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rowToRule(row))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

// FindByMemberAndWeekday returns the one applicable rule, nil when the member
// has none for that weekday.
func (r *PostgresAvailabilityRuleRepository) FindByMemberAndWeekday(ctx context.Context, memberID uuid.UUID, weekday time.Weekday) (*domain.AvailabilityRule, error) {
	query := `
		SELECT id, member_id, weekday, start_minutes, end_minutes, available,
		       created_at, updated_at
		FROM availability_rules
		WHERE member_id = $1 AND weekday = $2
	`

	exec := sharedPersistence.Executor(ctx, r.pool)
	var row ruleRow
	err := exec.QueryRow(ctx, query, memberID, int(weekday)).Scan(
		&row.ID,
		&row.MemberID,
		&row.Weekday,
		&row.StartMinutes,
		&row.EndMinutes,
		&row.Available,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToRule(row), nil
}

func rowToRule(row ruleRow) *domain.AvailabilityRule {
	return domain.RehydrateAvailabilityRule(
		row.ID,
		row.MemberID,
		time.Weekday(row.Weekday),
		time.Duration(row.StartMinutes)*time.Minute,
		time.Duration(row.EndMinutes)*time.Minute,
		row.Available,
		row.CreatedAt,
		row.UpdatedAt,
	)
}
