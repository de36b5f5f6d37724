// Package storage picks the token store named by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/go-sql-driver/mysql"

	redisad "hostiq/internal/adapters/redis"
	"hostiq/internal/domain"
	"hostiq/internal/shared"
	"hostiq/internal/storage/memory"
	mysqlrepo "hostiq/internal/storage/mysql"
	"hostiq/internal/storage/tokenfile"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the configured TokenStore and a closer releasing its
// connections.
func Open(ctx context.Context, cfg shared.Config) (domain.TokenStore, io.Closer, error) {
	switch cfg.TokenStore {
	case "memory":
		return memory.New(), nopCloser{}, nil
	case "file":
		s, err := tokenfile.New(cfg.TokenFile, cfg.Profile)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case "redis":
		s := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.Profile)
		return s, s, nil
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		repo := mysqlrepo.New(db, cfg.Profile)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure token schema: %w", err)
		}
		return repo, db, nil
	}
	return nil, nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
}
