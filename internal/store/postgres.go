package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	notifyChannel   = "store_changes"
	relistenBackoff = time.Second
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS store_nodes (
	path  TEXT PRIMARY KEY,
	value JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS store_nodes_path_prefix ON store_nodes (path text_pattern_ops);
`

// Postgres keeps one row per leaf in store_nodes and uses LISTEN/NOTIFY to
// push change signals to subscribers in every process sharing the database.
type Postgres struct {
	pool     *pgxpool.Pool
	watchers *watchers
	newKey   func() string
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPostgres ensures the schema and starts the notification listener.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	listenCtx, cancel := context.WithCancel(context.Background())
	p := &Postgres{
		pool:     pool,
		watchers: newWatchers(),
		newKey:   newPushKey,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.listen(listenCtx)
	return p, nil
}

func (p *Postgres) Get(ctx context.Context, path string) (Snapshot, error) {
	path, err := Clean(path)
	if err != nil {
		return Snapshot{}, err
	}
	l, err := p.load(ctx, p.pool, path)
	if err != nil {
		return Snapshot{}, err
	}
	v, err := assemble(path, l)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, value: v}, nil
}

func (p *Postgres) Set(ctx context.Context, path string, value any) error {
	path, err := Clean(path)
	if err != nil {
		return err
	}
	norm, err := normalize(value)
	if err != nil {
		return err
	}
	staged := leaves{}
	if err := flatten(path, norm, staged); err != nil {
		return err
	}
	return p.write(ctx, path, func(ctx context.Context, tx pgx.Tx) error {
		if err := deleteUnder(ctx, tx, path); err != nil {
			return err
		}
		return insertLeaves(ctx, tx, staged)
	})
}

func (p *Postgres) Update(ctx context.Context, path string, fields map[string]any) error {
	path, err := Clean(path)
	if err != nil {
		return err
	}
	type child struct {
		path   string
		leaves leaves
	}
	children := make([]child, 0, len(fields))
	for k, v := range fields {
		if err := validKey(k); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPath, Join(path, k), err)
		}
		norm, err := normalize(v)
		if err != nil {
			return err
		}
		c := child{path: Join(path, k), leaves: leaves{}}
		if err := flatten(c.path, norm, c.leaves); err != nil {
			return err
		}
		children = append(children, c)
	}
	return p.write(ctx, path, func(ctx context.Context, tx pgx.Tx) error {
		for _, c := range children {
			if err := deleteUnder(ctx, tx, c.path); err != nil {
				return err
			}
			if err := insertLeaves(ctx, tx, c.leaves); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) Remove(ctx context.Context, path string) error {
	path, err := Clean(path)
	if err != nil {
		return err
	}
	return p.write(ctx, path, func(ctx context.Context, tx pgx.Tx) error {
		return deleteUnder(ctx, tx, path)
	})
}

func (p *Postgres) Push(ctx context.Context, path string, value any) (string, error) {
	path, err := Clean(path)
	if err != nil {
		return "", err
	}
	key := p.newKey()
	if err := p.Set(ctx, Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (p *Postgres) Subscribe(ctx context.Context, path string, fn Listener) (func(), error) {
	path, err := Clean(path)
	if err != nil {
		return nil, err
	}
	return p.watchers.add(ctx, path, p.Get, fn), nil
}

// Close stops the listener and all subscriptions. The pool belongs to the caller.
func (p *Postgres) Close() error {
	p.cancel()
	<-p.done
	p.watchers.closeAll()
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (p *Postgres) load(ctx context.Context, q querier, path string) (leaves, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if path == "" {
		rows, err = q.Query(ctx, `SELECT path, value::text FROM store_nodes`)
	} else {
		rows, err = q.Query(ctx,
			`SELECT path, value::text FROM store_nodes WHERE path = $1 OR path LIKE $2 ESCAPE '\'`,
			path, escapeLike(path)+"/%")
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	defer rows.Close()

	out := leaves{}
	for rows.Next() {
		var leafPath, raw string
		if err := rows.Scan(&leafPath, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out[leafPath] = []byte(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", path, err)
	}
	return out, nil
}

// write runs fn in a transaction and emits the change notification before
// commit, so NOTIFY is delivered only if the write lands.
func (p *Postgres) write(ctx context.Context, path string, fn func(context.Context, pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func deleteUnder(ctx context.Context, tx pgx.Tx, path string) error {
	var err error
	if path == "" {
		_, err = tx.Exec(ctx, `DELETE FROM store_nodes`)
	} else {
		_, err = tx.Exec(ctx,
			`DELETE FROM store_nodes WHERE path = $1 OR path LIKE $2 ESCAPE '\' OR path = ANY($3)`,
			path, escapeLike(path)+"/%", ancestors(path))
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func insertLeaves(ctx context.Context, tx pgx.Tx, l leaves) error {
	if len(l) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for path, raw := range l {
		batch.Queue(
			`INSERT INTO store_nodes (path, value) VALUES ($1, $2::jsonb)
			 ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value`,
			path, string(raw))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert leaves: %w", err)
	}
	return nil
}

// listen holds one pooled connection in LISTEN mode and re-establishes it
// after connection loss.
func (p *Postgres) listen(ctx context.Context) {
	defer close(p.done)
	for {
		err := p.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("store listener lost, reconnecting", zap.Error(err))
		select {
		case <-time.After(relistenBackoff):
		case <-ctx.Done():
			return
		}
		// Changes may have landed while disconnected.
		p.watchers.notify("")
	}
}

func (p *Postgres) listenOnce(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("wait: %w", err)
		}
		p.watchers.notify(n.Payload)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
