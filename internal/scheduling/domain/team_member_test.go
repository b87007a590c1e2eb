package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTeamMember(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m, err := NewTeamMember("Ada", "ada@example.com", ProviderGoogle, "")
		require.NoError(t, err)

		assert.Equal(t, "Ada", m.Name())
		assert.Equal(t, "ada@example.com", m.Email())
		assert.Equal(t, ProviderGoogle, m.CalendarProvider())
		// Calendar id defaults to the email.
		assert.Equal(t, "ada@example.com", m.CalendarID())
		assert.True(t, m.IsActive())
		assert.Nil(t, m.FairnessCursor())
		assert.False(t, m.HasOAuthGrant())
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NewTeamMember("  ", "ada@example.com", ProviderGoogle, "")
		assert.ErrorIs(t, err, ErrMemberEmptyName)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := NewTeamMember("Ada", "not-an-email", ProviderGoogle, "")
		assert.ErrorIs(t, err, ErrMemberInvalidEmail)
	})

	t.Run("unknown provider defaults to google", func(t *testing.T) {
		m, err := NewTeamMember("Ada", "ada@example.com", CalendarProvider("outlook"), "")
		require.NoError(t, err)
		assert.Equal(t, ProviderGoogle, m.CalendarProvider())
	})
}

func TestTeamMember_AdvanceFairnessCursor(t *testing.T) {
	m, err := NewTeamMember("Ada", "ada@example.com", ProviderGoogle, "")
	require.NoError(t, err)

	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, m.AdvanceFairnessCursor(first))
	require.NotNil(t, m.FairnessCursor())
	assert.Equal(t, first, *m.FairnessCursor())

	t.Run("moves forward", func(t *testing.T) {
		later := first.Add(time.Hour)
		require.NoError(t, m.AdvanceFairnessCursor(later))
		assert.Equal(t, later, *m.FairnessCursor())
	})

	t.Run("never moves backwards", func(t *testing.T) {
		err := m.AdvanceFairnessCursor(first)
		assert.ErrorIs(t, err, ErrMemberCursorBackwards)
	})

	t.Run("inactive member cannot be assigned", func(t *testing.T) {
		m.Deactivate()
		err := m.AdvanceFairnessCursor(first.Add(2 * time.Hour))
		assert.ErrorIs(t, err, ErrMemberInactive)
	})
}

func TestTeamMember_ActivationCycle(t *testing.T) {
	m, err := NewTeamMember("Ada", "ada@example.com", ProviderCalDAV, "/calendars/ada/default/")
	require.NoError(t, err)

	m.Deactivate()
	assert.False(t, m.IsActive())

	m.Activate()
	assert.True(t, m.IsActive())
}
