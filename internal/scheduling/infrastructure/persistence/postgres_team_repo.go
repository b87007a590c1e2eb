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

// PostgresTeamRepository implements domain.TeamRepository using PostgreSQL.
type PostgresTeamRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTeamRepository creates a new team repository.
func NewPostgresTeamRepository(pool *pgxpool.Pool) *PostgresTeamRepository {
	return &PostgresTeamRepository{pool: pool}
}

// Save persists a team.
func (r *PostgresTeamRepository) Save(ctx context.Context, team *domain.Team) error {
	query := `
		INSERT INTO teams (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			updated_at = NOW()
	`
	exec := sharedPersistence.Executor(ctx, r.pool)
	_, err := exec.Exec(ctx, query,
		team.ID(),
		team.Name(),
		team.Slug(),
		team.CreatedAt(),
		team.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a team by id. Returns nil when absent.
func (r *PostgresTeamRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	return r.findOne(ctx, `SELECT id, name, slug, created_at, updated_at FROM teams WHERE id = $1`, id)
}

// FindBySlug retrieves a team by slug. Returns nil when absent.
func (r *PostgresTeamRepository) FindBySlug(ctx context.Context, slug string) (*domain.Team, error) {
	return r.findOne(ctx, `SELECT id, name, slug, created_at, updated_at FROM teams WHERE slug = $1`, slug)
}

func (r *PostgresTeamRepository) findOne(ctx context.Context, query string, arg any) (*domain.Team, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)

	var (
		id        uuid.UUID
		name      string
		slug      string
		createdAt time.Time
		updatedAt time.Time
	)
	err := exec.QueryRow(ctx, query, arg).Scan(&id, &name, &slug, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return domain.RehydrateTeam(id, name, slug, createdAt, updatedAt), nil
}
