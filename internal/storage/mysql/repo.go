package mysql

import (
	"context"
	"database/sql"
	"errors"

	"hostiq/internal/adapters/observability"
)

// TokenRepo is a TokenStore over the client_tokens table, one row per
// (profile, token name).
type TokenRepo struct {
	db      *sql.DB
	profile string
}

func New(db *sql.DB, profile string) *TokenRepo {
	if profile == "" {
		profile = "default"
	}
	return &TokenRepo{db: db, profile: profile}
}

// EnsureSchema creates client_tokens when missing.
func (r *TokenRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createTokensSQL)
	return err
}

func (r *TokenRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, getTokenSQL, r.profile, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveTokenStore("mysql", "miss")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	observability.ObserveTokenStore("mysql", "hit")
	return v, true, nil
}

func (r *TokenRepo) Set(ctx context.Context, key, value string) error {
	observability.ObserveTokenStore("mysql", "set")
	_, err := r.db.ExecContext(ctx, upsertTokenSQL, r.profile, key, value)
	return err
}

func (r *TokenRepo) Delete(ctx context.Context, key string) error {
	observability.ObserveTokenStore("mysql", "del")
	_, err := r.db.ExecContext(ctx, deleteTokenSQL, r.profile, key)
	return err
}
