package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// leaves maps a full leaf path to the JSON encoding of a scalar.
type leaves map[string]json.RawMessage

// normalize round-trips v through JSON so structs, decimals and maps all end up
// as the same generic shapes. Numbers are kept as json.Number.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

// flatten writes every scalar under v into out, keyed by its full path.
func flatten(path string, v any, out leaves) error {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, child := range val {
			if err := validKey(k); err != nil {
				return fmt.Errorf("%w %q: %v", ErrInvalidPath, Join(path, k), err)
			}
			if err := flatten(Join(path, k), child, out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, child := range val {
			if err := flatten(Join(path, strconv.Itoa(i)), child, out); err != nil {
				return err
			}
		}
		return nil
	default:
		if path == "" {
			return fmt.Errorf("%w: cannot store a scalar at the root", ErrInvalidPath)
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		out[path] = raw
		return nil
	}
}

// assemble rebuilds the value at base from the leaves at or below it.
func assemble(base string, src leaves) (any, error) {
	var root any
	paths := make([]string, 0, len(src))
	for p := range src {
		if under(p, base) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		scalar, err := decodeScalar(src[p])
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, base), "/")
		if rel == "" {
			return scalar, nil
		}
		m, ok := root.(map[string]any)
		if !ok {
			m = map[string]any{}
			root = m
		}
		segs := strings.Split(rel, "/")
		for _, seg := range segs[:len(segs)-1] {
			next, ok := m[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[seg] = next
			}
			m = next
		}
		m[segs[len(segs)-1]] = scalar
	}
	return arrayify(root), nil
}

func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// arrayify turns maps keyed by exactly 0..n-1 back into slices.
func arrayify(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = arrayify(child)
	}
	if len(m) == 0 {
		return m
	}
	arr := make([]any, len(m))
	for k, child := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return m
		}
		arr[i] = child
	}
	return arr
}

// removeUnder deletes every leaf at or below path plus any scalar leaf that sits
// on one of path's ancestors, since a write at path replaces it.
func removeUnder(src leaves, path string) {
	for p := range src {
		if under(p, path) {
			delete(src, p)
		}
	}
	for _, a := range ancestors(path) {
		delete(src, a)
	}
}

// writeValue replaces the subtree at path with v inside src.
func writeValue(src leaves, path string, v any) error {
	norm, err := normalize(v)
	if err != nil {
		return err
	}
	staged := leaves{}
	if err := flatten(path, norm, staged); err != nil {
		return err
	}
	removeUnder(src, path)
	for p, raw := range staged {
		src[p] = raw
	}
	return nil
}
