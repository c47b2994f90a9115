// Package database opens the Postgres pool behind the SQL consent backend.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"attrconsent/internal/platform/config"
	"attrconsent/migrations"
)

// ApplicationName is reported to Postgres in pg_stat_activity.
const ApplicationName = "attrconsent"

const (
	pingAttempts = 3
	pingTimeout  = 5 * time.Second
)

// ErrNotConfigured is returned when no database URL is set.
var ErrNotConfigured = errors.New("database not configured")

// Pool owns the *sql.DB used by the consent repository.
type Pool struct {
	db *sql.DB
}

// New parses the URL, opens the pool and waits for the server to answer.
// Pool statistics are registered on reg when it is non-nil.
func New(ctx context.Context, cfg config.DatabaseConfig, reg prometheus.Registerer) (*Pool, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}

	connCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if _, ok := connCfg.RuntimeParams["application_name"]; !ok {
		connCfg.RuntimeParams["application_name"] = ApplicationName
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ping(ctx, db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, err
	}

	if reg != nil {
		if err := reg.Register(collectors.NewDBStatsCollector(db, "consent")); err != nil {
			db.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, fmt.Errorf("register database metrics: %w", err)
		}
	}
	return &Pool{db: db}, nil
}

// ping retries a few times with a growing pause so a database that is still
// starting does not fail the service.
func ping(ctx context.Context, db *sql.DB) error {
	var err error
	for attempt := range pingAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("ping database: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("ping database: %w", err)
}

// Migrate applies the embedded consent schema.
func (p *Pool) Migrate(ctx context.Context) error {
	return migrations.Up(ctx, p.db)
}

// DB returns the underlying *sql.DB.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health pings the database.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return ErrNotConfigured
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
