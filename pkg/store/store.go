// Package store is the relational datastore layer. Repositories are
// thin pgx wrappers; all queries are tenant-scoped and the only write
// this subsystem performs on its own behalf is the conditional
// escalated_at update on tasks.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Config holds the database connection settings.
type Config struct {
	DSN             string `yaml:"dsn"`
	MaxConns        int32  `yaml:"maxConns"`
	ConnectTimeout  string `yaml:"connectTimeout"`
	StatementWindow string `yaml:"statementWindow"`
}

// Store owns the connection pool and hands out repositories.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger

	Tasks    *TaskRepository
	Projects *ProjectRepository
	Tenants  *TenantRepository
}

// Connect opens the pool and pings it once so misconfiguration is
// surfaced at start-up rather than on the first scheduled run.
func Connect(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout != "" {
		d, err := time.ParseDuration(cfg.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing connectTimeout: %w", err)
		}
		poolCfg.ConnConfig.ConnectTimeout = d
	}
	if cfg.StatementWindow != "" {
		d, err := time.ParseDuration(cfg.StatementWindow)
		if err != nil {
			return nil, fmt.Errorf("parsing statementWindow: %w", err)
		}
		// server-side statement_timeout, caps every query issued by the pool
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(d.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Infow("Connected to database", "maxConns", poolCfg.MaxConns)

	s := &Store{pool: pool, log: log}
	s.Tasks = &TaskRepository{pool: pool}
	s.Projects = &ProjectRepository{pool: pool}
	s.Tenants = &TenantRepository{pool: pool}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
