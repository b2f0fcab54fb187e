package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errClosed = errors.New("store is closed")

// Memory keeps the whole tree in process. When snapshotPath is set, every
// mutation queues a JSON snapshot that a background goroutine writes to disk,
// and NewMemory reloads it on start.
type Memory struct {
	mu     sync.RWMutex
	leaves leaves
	closed bool

	watchers *watchers
	newKey   func() string
	logger   *zap.Logger

	snapshotPath    string
	persistRequests chan leaves
	stopPersist     chan struct{}
	persistDone     chan struct{}
}

// NewMemory creates an in-memory store. snapshotPath may be empty for a purely
// volatile store.
func NewMemory(snapshotPath string, logger *zap.Logger) (*Memory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Memory{
		leaves:          leaves{},
		watchers:        newWatchers(),
		newKey:          newPushKey,
		logger:          logger,
		snapshotPath:    snapshotPath,
		persistRequests: make(chan leaves, 1),
		stopPersist:     make(chan struct{}),
		persistDone:     make(chan struct{}),
	}
	if snapshotPath != "" {
		loaded, err := readSnapshot(snapshotPath)
		if err != nil {
			return nil, err
		}
		if loaded != nil {
			m.leaves = loaded
		}
	}
	go m.persistenceLoop()
	return m, nil
}

// newPushKey returns a UUIDv7 so keys sort by creation time like the hosted
// store's push ids.
func newPushKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (m *Memory) Get(ctx context.Context, path string) (Snapshot, error) {
	path, err := Clean(path)
	if err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Snapshot{}, errClosed
	}
	v, err := assemble(path, m.leaves)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Path: path, value: v}, nil
}

func (m *Memory) Set(ctx context.Context, path string, value any) error {
	path, err := Clean(path)
	if err != nil {
		return err
	}
	return m.mutate(ctx, path, func(l leaves) error {
		return writeValue(l, path, value)
	})
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	path, err := Clean(path)
	if err != nil {
		return err
	}
	for k := range fields {
		if err := validKey(k); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPath, Join(path, k), err)
		}
	}
	return m.mutate(ctx, path, func(l leaves) error {
		for k, v := range fields {
			if err := writeValue(l, Join(path, k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	path, err := Clean(path)
	if err != nil {
		return err
	}
	return m.mutate(ctx, path, func(l leaves) error {
		removeUnder(l, path)
		return nil
	})
}

func (m *Memory) Push(ctx context.Context, path string, value any) (string, error) {
	path, err := Clean(path)
	if err != nil {
		return "", err
	}
	var key string
	err = m.mutate(ctx, path, func(l leaves) error {
		for {
			key = m.newKey()
			if !hasAny(l, Join(path, key)) {
				break
			}
		}
		return writeValue(l, Join(path, key), value)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Subscribe(ctx context.Context, path string, fn Listener) (func(), error) {
	path, err := Clean(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, errClosed
	}
	return m.watchers.add(ctx, path, m.Get, fn), nil
}

// Close stops subscriptions and writes a final snapshot.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	final := cloneLeaves(m.leaves)
	m.mu.Unlock()

	m.watchers.closeAll()
	close(m.stopPersist)
	<-m.persistDone
	if m.snapshotPath == "" {
		return nil
	}
	return writeSnapshot(m.snapshotPath, final)
}

// mutate applies fn to a copy of the tree so a failed write leaves the tree
// untouched, then swaps it in and notifies subscribers.
func (m *Memory) mutate(ctx context.Context, path string, fn func(leaves) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errClosed
	}
	next := cloneLeaves(m.leaves)
	if err := fn(next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.leaves = next
	m.queuePersist()
	m.mu.Unlock()

	m.watchers.notify(path)
	return nil
}

// queuePersist hands the latest tree to the writer, replacing any snapshot it
// has not picked up yet. Callers hold m.mu.
func (m *Memory) queuePersist() {
	if m.snapshotPath == "" {
		return
	}
	snap := cloneLeaves(m.leaves)
	select {
	case m.persistRequests <- snap:
	default:
		select {
		case <-m.persistRequests:
		default:
		}
		m.persistRequests <- snap
	}
}

func (m *Memory) persistenceLoop() {
	defer close(m.persistDone)
	for {
		select {
		case snap := <-m.persistRequests:
			if err := writeSnapshot(m.snapshotPath, snap); err != nil {
				m.logger.Warn("store snapshot write failed", zap.String("path", m.snapshotPath), zap.Error(err))
			}
		case <-m.stopPersist:
			return
		}
	}
}

func hasAny(l leaves, path string) bool {
	for p := range l {
		if under(p, path) {
			return true
		}
	}
	return false
}

func cloneLeaves(src leaves) leaves {
	out := make(leaves, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func readSnapshot(path string) (leaves, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var out leaves
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return out, nil
}

// writeSnapshot replaces the file atomically so a crash never leaves half a tree.
func writeSnapshot(path string, l leaves) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
