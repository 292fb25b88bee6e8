package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iperka/paporg-sub001/internal/model"
)

// OAuthTokenRepository stores one token row per discovery source.
type OAuthTokenRepository struct {
	s *Store
}

// Upsert inserts or replaces the token for a source.
func (r *OAuthTokenRepository) Upsert(ctx context.Context, t model.OAuthToken) error {
	return r.s.withLock(func() error {
		_, err := r.s.db.ExecContext(ctx, `INSERT INTO oauth_tokens (source, provider, access_token, refresh_token, expires_at)
			VALUES (?,?,?,?,?)
			ON CONFLICT(source) DO UPDATE SET provider=excluded.provider, access_token=excluded.access_token,
				refresh_token=excluded.refresh_token, expires_at=excluded.expires_at`,
			t.Source, t.Provider, t.AccessToken, t.RefreshToken, formatTime(t.ExpiresAt))
		if err != nil {
			return fmt.Errorf("upserting oauth token for %s: %w", t.Source, err)
		}
		return nil
	})
}

// Get fetches the token for a source, if any.
func (r *OAuthTokenRepository) Get(ctx context.Context, source string) (*model.OAuthToken, error) {
	var t model.OAuthToken
	var refresh sql.NullString
	var expiresAt string
	err := r.s.withLock(func() error {
		row := r.s.db.QueryRowContext(ctx,
			`SELECT source, provider, access_token, refresh_token, expires_at FROM oauth_tokens WHERE source = ?`, source)
		return row.Scan(&t.Source, &t.Provider, &t.AccessToken, &refresh, &expiresAt)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting oauth token for %s: %w", source, err)
	}
	t.RefreshToken = nullableString(refresh)
	parsed, err := parseTime(expiresAt)
	if err != nil {
		return nil, fmt.Errorf("parsing oauth expires_at: %w", err)
	}
	t.ExpiresAt = parsed
	return &t, nil
}
