// Package storage opens the pending-state and session stores selected by
// configuration.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-okta-login/authflow"
	authflowredis "github.com/jrsteele09/go-okta-login/authflow/redisrepo"
	"github.com/jrsteele09/go-okta-login/internal/config"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/jrsteele09/go-okta-login/sessions/gormrepo"
	sessionsredis "github.com/jrsteele09/go-okta-login/sessions/redisrepo"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Stores are the repositories the login flow runs on.
type Stores struct {
	Backend  string
	States   authflow.Repo
	Sessions sessions.Repo

	closers []func() error
}

// Close releases every connection opened by Open.
func (s *Stores) Close() error {
	var result *multierror.Error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result.ErrorOrNil()
}

// Open connects the configured backend. With "sql" only sessions are kept in
// the database; pending states stay in memory.
func Open(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch backend := cfg.GetStoreBackend(); backend {
	case config.StoreBackendMemory:
		return &Stores{
			Backend:  backend,
			States:   authflow.NewInMemoryRepo(),
			Sessions: sessions.NewInMemoryRepo(),
		}, nil

	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, apperrors.Wrapf(err, "[storage Open] redis %s", cfg.GetRedisAddr())
		}
		return &Stores{
			Backend:  backend,
			States:   authflowredis.New(client),
			Sessions: sessionsredis.New(client),
			closers:  []func() error{client.Close},
		}, nil

	case config.StoreBackendSQL:
		db, closeDB, err := openSQLite(cfg.GetSQLPath())
		if err != nil {
			return nil, fmt.Errorf("[storage Open] %w", err)
		}
		repo, err := gormrepo.New(db)
		if err != nil {
			_ = closeDB()
			return nil, fmt.Errorf("[storage Open] %w", err)
		}
		return &Stores{
			Backend:  backend,
			States:   authflow.NewInMemoryRepo(),
			Sessions: repo,
			closers:  []func() error{closeDB},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q: %w", backend, apperrors.ErrConfig)
	}
}

func openSQLite(path string) (*gorm.DB, func() error, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("sql path is required: %w", apperrors.ErrConfig)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite handle: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, sqlDB.Close, nil
}
