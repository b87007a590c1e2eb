// Package persistence implements identity repositories on PostgreSQL.
package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/slotwise/internal/identity/application/oauth"
)

// OAuthTokenRepository handles persistence for encrypted OAuth tokens.
type OAuthTokenRepository struct {
	pool *pgxpool.Pool
}

// NewOAuthTokenRepository creates a new OAuthTokenRepository.
func NewOAuthTokenRepository(pool *pgxpool.Pool) *OAuthTokenRepository {
	return &OAuthTokenRepository{pool: pool}
}

// Save upserts a token for a member/provider.
func (r *OAuthTokenRepository) Save(ctx context.Context, token oauth.StoredToken) error {
	query := `
		INSERT INTO oauth_tokens (
			member_id, provider, access_token, refresh_token, token_type, expiry, scopes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (member_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			scopes = EXCLUDED.scopes,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		token.MemberID,
		token.Provider,
		token.AccessToken,
		token.RefreshToken,
		token.TokenType,
		token.Expiry,
		token.Scopes,
	)
	return err
}

// FindByMemberAndProvider fetches a token for a member/provider. Returns nil
// when no grant is stored.
func (r *OAuthTokenRepository) FindByMemberAndProvider(ctx context.Context, memberID uuid.UUID, provider string) (*oauth.StoredToken, error) {
	query := `
		SELECT member_id, provider, access_token, refresh_token, token_type, expiry, scopes
		FROM oauth_tokens
		WHERE member_id = $1 AND provider = $2
	`

	var token oauth.StoredToken
	err := r.pool.QueryRow(ctx, query, memberID, provider).Scan(
		&token.MemberID,
		&token.Provider,
		&token.AccessToken,
		&token.RefreshToken,
		&token.TokenType,
		&token.Expiry,
		&token.Scopes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// DeleteByMemberAndProvider removes a member's stored grant.
func (r *OAuthTokenRepository) DeleteByMemberAndProvider(ctx context.Context, memberID uuid.UUID, provider string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM oauth_tokens WHERE member_id = $1 AND provider = $2`,
		memberID, provider,
	)
	return err
}
