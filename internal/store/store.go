// Package store implements the hierarchical real-time document store every
// other component persists through.
//
// Values live at slash-separated paths ("customers/asha_98480", "menus/2024-05-01/lunch").
// Writes are JSON-encoded and flattened into leaf paths so that a write at any
// depth is visible to readers and subscribers at every other depth. Arrays are
// stored as index-keyed children and come back as arrays when their keys are the
// contiguous range 0..n-1.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tiffindesk/api/internal/apperr"
)

// ErrInvalidPath is returned for paths containing empty or reserved segments.
// It is a validation error: the key came from user input.
var ErrInvalidPath = fmt.Errorf("%w: invalid store path", apperr.ErrValidation)

// Store is the persistence collaborator. Every method may fail; callers treat
// failures as retryable by the operator.
type Store interface {
	// Get reads the subtree at path. A missing path yields a Snapshot whose
	// Exists reports false, not an error.
	Get(ctx context.Context, path string) (Snapshot, error)

	// Set overwrites the subtree at path. A nil value removes it.
	Set(ctx context.Context, path string, value any) error

	// Update shallow-merges fields into the node at path. Nil field values
	// remove that child.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Remove deletes the subtree at path.
	Remove(ctx context.Context, path string) error

	// Push stores value under a freshly generated, time-ordered child key of
	// path and returns the key.
	Push(ctx context.Context, path string, value any) (string, error)

	// Subscribe calls fn with the current value at path and again after every
	// change at, above or below it. Notifications are coalesced: fn always sees
	// the latest state. The returned cancel func stops delivery.
	Subscribe(ctx context.Context, path string, fn Listener) (cancel func(), err error)

	Close() error
}

// Listener receives subscription updates. err is non-nil when re-reading the
// subscribed path failed; snap is then the zero Snapshot.
type Listener func(snap Snapshot, err error)

// Snapshot is an immutable view of the value stored at Path.
type Snapshot struct {
	Path  string
	value any
}

// NewSnapshot builds a snapshot around an already-normalised value.
func NewSnapshot(path string, value any) Snapshot {
	return Snapshot{Path: path, value: value}
}

// Exists reports whether anything is stored at the path.
func (s Snapshot) Exists() bool { return s.value != nil }

// Value returns the raw assembled value: map[string]any, []any, json.Number,
// string or bool.
func (s Snapshot) Value() any { return s.value }

// Key is the last path segment.
func (s Snapshot) Key() string {
	if i := strings.LastIndexByte(s.Path, '/'); i >= 0 {
		return s.Path[i+1:]
	}
	return s.Path
}

// Decode unmarshals the snapshot into v. Decoding a missing value leaves v
// untouched.
func (s Snapshot) Decode(v any) error {
	if s.value == nil {
		return nil
	}
	raw, err := json.Marshal(s.value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return nil
}

// Keys returns the child keys in ascending order. Array children are returned
// in index order.
func (s Snapshot) Keys() []string {
	switch v := s.value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	case []any:
		keys := make([]string, 0, len(v))
		for i, item := range v {
			if item != nil {
				keys = append(keys, strconv.Itoa(i))
			}
		}
		return keys
	}
	return nil
}

// Child returns the snapshot of a direct child.
func (s Snapshot) Child(key string) Snapshot {
	path := Join(s.Path, key)
	switch v := s.value.(type) {
	case map[string]any:
		return Snapshot{Path: path, value: v[key]}
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(v) {
			return Snapshot{Path: path}
		}
		return Snapshot{Path: path, value: v[i]}
	}
	return Snapshot{Path: path}
}

// Children returns the direct child snapshots in Keys order.
func (s Snapshot) Children() []Snapshot {
	keys := s.Keys()
	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Child(k))
	}
	return out
}

// Join joins path segments, ignoring empty ones.
func Join(parts ...string) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, "/")
}

// Clean normalises path and rejects reserved characters. The empty path is
// the root.
func Clean(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", nil
	}
	for _, seg := range strings.Split(path, "/") {
		if err := validKey(seg); err != nil {
			return "", fmt.Errorf("%w %q: %v", ErrInvalidPath, path, err)
		}
	}
	return path, nil
}

func validKey(key string) error {
	if key == "" {
		return errors.New("empty segment")
	}
	if strings.ContainsAny(key, ".#$[]") {
		return fmt.Errorf("segment %q contains one of . # $ [ ]", key)
	}
	return nil
}

// related reports whether a change at b can alter the value observed at a.
func related(a, b string) bool {
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// under reports whether leaf lies at or below path.
func under(leaf, path string) bool {
	return path == "" || leaf == path || strings.HasPrefix(leaf, path+"/")
}

// ancestors returns every proper ancestor of path, nearest last.
func ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}
