package domain

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// manageTokenBytes is the entropy of a manage token before encoding.
const manageTokenBytes = 32

// ErrInvalidManageToken signals a token that cannot have been issued by us.
var ErrInvalidManageToken = errors.New("invalid manage token")

// ManageToken is the opaque capability an invitee holds to cancel or
// reschedule their booking. Possession is authorization; it is distinct from
// the booking's primary identifier and never derived from it.
type ManageToken string

// NewManageToken generates a fresh token from cryptographically strong
// randomness.
func NewManageToken() (ManageToken, error) {
	raw := make([]byte, manageTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate manage token: %w", err)
	}
	return ManageToken(base64.RawURLEncoding.EncodeToString(raw)), nil
}

// ParseManageToken validates the shape of a caller-supplied token.
func ParseManageToken(value string) (ManageToken, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(decoded) != manageTokenBytes {
		return "", ErrInvalidManageToken
	}
	return ManageToken(value), nil
}

func (t ManageToken) String() string { return string(t) }
