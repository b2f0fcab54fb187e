package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Backends accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend      string
	SnapshotPath string // memory
	DatabaseURL  string // postgres
}

// Open opens the configured backend. The returned func closes the store and
// any connection pool it opened.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Backend {
	case BackendMemory, "":
		m, err := NewMemory(opts.SnapshotPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {
			if err := m.Close(); err != nil {
				logger.Error("close store failed", zap.Error(err))
			}
		}, nil
	case BackendPostgres:
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		p, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return p, func() {
			p.Close()
			pool.Close()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
