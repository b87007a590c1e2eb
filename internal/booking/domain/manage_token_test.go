package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManageToken(t *testing.T) {
	token, err := NewManageToken()
	require.NoError(t, err)

	// 32 bytes of entropy encode to 43 unpadded base64url characters.
	assert.Len(t, token.String(), 43)

	other, err := NewManageToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestParseManageToken(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		token, err := NewManageToken()
		require.NoError(t, err)

		parsed, err := ParseManageToken(token.String())
		require.NoError(t, err)
		assert.Equal(t, token, parsed)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, input := range []string{
			"",
			"short",
			"not base64url at all!!!",
			"AAAA", // valid encoding, wrong length
		} {
			_, err := ParseManageToken(input)
			assert.ErrorIs(t, err, ErrInvalidManageToken, "input %q", input)
		}
	})
}
