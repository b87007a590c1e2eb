// Package oauth stores team member OAuth grants encrypted at rest and hands
// out refreshing token sources for calendar access.
package oauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	sharedCrypto "github.com/slotwise/slotwise/internal/shared/infrastructure/crypto"
)

var (
	// ErrTokenNotFound signals the member has no stored grant for the provider.
	ErrTokenNotFound = errors.New("oauth token not found")

	// ErrTokenRevoked signals the provider rejected the stored grant as revoked.
	ErrTokenRevoked = errors.New("oauth token revoked")
)

// TokenRepository defines persistence for encrypted OAuth tokens.
type TokenRepository interface {
	Save(ctx context.Context, token StoredToken) error
	FindByMemberAndProvider(ctx context.Context, memberID uuid.UUID, provider string) (*StoredToken, error)
	DeleteByMemberAndProvider(ctx context.Context, memberID uuid.UUID, provider string) error
}

// StoredToken is the encrypted representation of an OAuth token.
type StoredToken struct {
	MemberID     uuid.UUID
	Provider     string
	AccessToken  []byte
	RefreshToken []byte
	TokenType    string
	Expiry       time.Time
	Scopes       []string
}

// Vault manages OAuth flows and encrypted token storage for team members.
type Vault struct {
	oauthConfig *oauth2.Config
	provider    string
	scopes      []string
	repo        TokenRepository
	encrypter   sharedCrypto.Encrypter
}

// NewVault creates a token vault for one OAuth provider.
func NewVault(
	provider string,
	clientID string,
	clientSecret string,
	authURL string,
	tokenURL string,
	redirectURL string,
	scopes []string,
	repo TokenRepository,
	encrypter sharedCrypto.Encrypter,
) (*Vault, error) {
	if provider == "" {
		return nil, errors.New("oauth provider is required")
	}
	if clientID == "" || clientSecret == "" || authURL == "" || tokenURL == "" || redirectURL == "" {
		return nil, errors.New("oauth configuration is incomplete")
	}
	if repo == nil || encrypter == nil {
		return nil, errors.New("oauth dependencies are required")
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      scopes,
	}

	return &Vault{
		oauthConfig: cfg,
		provider:    provider,
		scopes:      scopes,
		repo:        repo,
		encrypter:   encrypter,
	}, nil
}

// AuthURL returns the provider authorization URL for the consent redirect.
func (v *Vault) AuthURL(state string) string {
	return v.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeAndStore exchanges a consent code for a token and stores it encrypted.
func (v *Vault) ExchangeAndStore(ctx context.Context, memberID uuid.UUID, code string) (*oauth2.Token, error) {
	token, err := v.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := v.store(ctx, memberID, token); err != nil {
		return nil, err
	}
	return token, nil
}

// TokenSource returns a refreshing token source for the member. Refreshed
// tokens are written back so the stored grant stays current.
func (v *Vault) TokenSource(ctx context.Context, memberID uuid.UUID) (oauth2.TokenSource, error) {
	token, err := v.loadToken(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return &persistingTokenSource{
		vault:    v,
		ctx:      ctx,
		memberID: memberID,
		inner:    v.oauthConfig.TokenSource(ctx, token),
		last:     token,
	}, nil
}

// Revoke removes the member's stored grant.
func (v *Vault) Revoke(ctx context.Context, memberID uuid.UUID) error {
	return v.repo.DeleteByMemberAndProvider(ctx, memberID, v.provider)
}

func (v *Vault) store(ctx context.Context, memberID uuid.UUID, token *oauth2.Token) error {
	accessEnc, err := v.encrypter.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return err
	}

	var refreshEnc []byte
	if token.RefreshToken != "" {
		refreshEnc, err = v.encrypter.Encrypt([]byte(token.RefreshToken))
		if err != nil {
			return err
		}
	}

	return v.repo.Save(ctx, StoredToken{
		MemberID:     memberID,
		Provider:     v.provider,
		AccessToken:  accessEnc,
		RefreshToken: refreshEnc,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		Scopes:       v.scopes,
	})
}

func (v *Vault) loadToken(ctx context.Context, memberID uuid.UUID) (*oauth2.Token, error) {
	stored, err := v.repo.FindByMemberAndProvider(ctx, memberID, v.provider)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrTokenNotFound
	}

	access, err := v.encrypter.Decrypt(stored.AccessToken)
	if err != nil {
		return nil, err
	}

	refresh := ""
	if len(stored.RefreshToken) > 0 {
		refreshBytes, err := v.encrypter.Decrypt(stored.RefreshToken)
		if err != nil {
			return nil, err
		}
		refresh = string(refreshBytes)
	}

	return &oauth2.Token{
		AccessToken:  string(access),
		RefreshToken: refresh,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}, nil
}

// persistingTokenSource writes refreshed tokens back to the vault and maps an
// invalid_grant refresh failure to ErrTokenRevoked.
type persistingTokenSource struct {
	vault    *Vault
	ctx      context.Context
	memberID uuid.UUID
	inner    oauth2.TokenSource
	last     *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.inner.Token()
	if err != nil {
		if isInvalidGrant(err) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	if s.last == nil || token.AccessToken != s.last.AccessToken {
		// Best effort; a failed write only costs an extra refresh later.
		_ = s.vault.store(s.ctx, s.memberID, token)
		s.last = token
	}
	return token, nil
}

func isInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.ErrorCode == "invalid_grant" ||
			strings.Contains(string(retrieveErr.Body), "invalid_grant")
	}
	return false
}

// ScopesFromEnv parses a comma-separated list of scopes.
func ScopesFromEnv(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}
