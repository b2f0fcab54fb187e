package store

import (
	"context"
	"sync"
)

type getFunc func(ctx context.Context, path string) (Snapshot, error)

// watcher is one live subscription. wake has capacity 1 so any number of
// changes between two reads collapse into a single re-read.
type watcher struct {
	path string
	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func (w *watcher) stop() {
	w.once.Do(func() { close(w.done) })
}

// watchers fans change notifications out to subscriptions. Both backends
// share it; they differ only in where the change signal comes from.
type watchers struct {
	mu  sync.Mutex
	set map[*watcher]struct{}
}

func newWatchers() *watchers {
	return &watchers{set: make(map[*watcher]struct{})}
}

// add starts delivering the value at path to fn until cancel is called or ctx
// ends.
func (ws *watchers) add(ctx context.Context, path string, get getFunc, fn Listener) func() {
	w := &watcher{
		path: path,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	ws.mu.Lock()
	ws.set[w] = struct{}{}
	ws.mu.Unlock()

	go func() {
		defer ws.remove(w)
		for {
			snap, err := get(ctx, path)
			select {
			case <-w.done:
				return
			case <-ctx.Done():
				return
			default:
			}
			fn(snap, err)

			select {
			case <-w.wake:
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return w.stop
}

func (ws *watchers) remove(w *watcher) {
	ws.mu.Lock()
	delete(ws.set, w)
	ws.mu.Unlock()
}

// notify wakes every subscription whose view may have changed.
func (ws *watchers) notify(changed string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for w := range ws.set {
		if !related(w.path, changed) {
			continue
		}
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

// closeAll stops every subscription.
func (ws *watchers) closeAll() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for w := range ws.set {
		w.stop()
	}
}
