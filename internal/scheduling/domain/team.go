package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/slotwise/slotwise/internal/shared/domain"
)

var ErrTeamEmptyName = errors.New("team name cannot be empty")

// Team groups members for scoped round-robin selection.
type Team struct {
	sharedDomain.BaseAggregateRoot
	name string
	slug string
}

// NewTeam creates a new team.
func NewTeam(name, slug string) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamEmptyName
	}
	if slug == "" {
		slug = slugify(name)
	}
	return &Team{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		name:              name,
		slug:              slug,
	}, nil
}

func (t *Team) Name() string { return t.name }
func (t *Team) Slug() string { return t.slug }

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(s), "-")
}

// RehydrateTeam recreates a team from persisted state.
func RehydrateTeam(id uuid.UUID, name, slug string, createdAt, updatedAt time.Time) *Team {
	return &Team{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		name: name,
		slug: slug,
	}
}
