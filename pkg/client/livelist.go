// Package client consumes the console's live update channel: it keeps in-memory lists in step
// with row changes pushed over the /ws endpoint.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Change types as sent by the server.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Change is one row-level event pushed by the server.
type Change struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Key    string          `json:"key"`
	Record json.RawMessage `json:"record,omitempty"`
}

// ErrUnknownChange is returned by Apply for change types it does not understand.
var ErrUnknownChange = errors.New("unknown change type")

// LiveList is an in-memory copy of a table's rows patched by change events.
// Rows must encode to JSON objects so updates can be merged field by field.
type LiveList[T any] struct {
	mu      sync.RWMutex
	rows    []T
	keyOf   func(T) string
	refetch func(ctx context.Context) ([]T, error)
}

// NewLiveList creates a list seeded with initial rows. keyOf returns a row's primary key as
// the server renders it in Change.Key.
func NewLiveList[T any](initial []T, keyOf func(T) string) *LiveList[T] {
	rows := make([]T, len(initial))
	copy(rows, initial)
	return &LiveList[T]{rows: rows, keyOf: keyOf}
}

// WithRefetch marks the list as carrying joined data the change record lacks. Inserts then
// reload the whole list through fn instead of appending the bare record.
func (l *LiveList[T]) WithRefetch(fn func(ctx context.Context) ([]T, error)) *LiveList[T] {
	l.mu.Lock()
	l.refetch = fn
	l.mu.Unlock()
	return l
}

// Rows returns a snapshot of the current rows.
func (l *LiveList[T]) Rows() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.rows))
	copy(out, l.rows)
	return out
}

// Len returns the number of rows.
func (l *LiveList[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

// Replace swaps the whole row set, e.g. after an explicit reload.
func (l *LiveList[T]) Replace(rows []T) {
	cp := make([]T, len(rows))
	copy(cp, rows)
	l.mu.Lock()
	l.rows = cp
	l.mu.Unlock()
}

// Apply patches the list with one change.
//   - INSERT appends the record unless a row with the same key exists; refetching lists reload instead.
//   - UPDATE merges the emitted fields into the matching row.
//   - DELETE removes the row matching the key.
func (l *LiveList[T]) Apply(ctx context.Context, ch Change) error {
	switch ch.Type {
	case ChangeInsert:
		return l.insert(ctx, ch)
	case ChangeUpdate:
		return l.update(ch)
	case ChangeDelete:
		l.remove(ch.Key)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChange, ch.Type)
	}
}

func (l *LiveList[T]) insert(ctx context.Context, ch Change) error {
	l.mu.RLock()
	refetch := l.refetch
	l.mu.RUnlock()
	if refetch != nil {
		rows, err := refetch(ctx)
		if err != nil {
			return fmt.Errorf("refetch %s: %w", ch.Table, err)
		}
		l.Replace(rows)
		return nil
	}

	var row T
	if err := json.Unmarshal(ch.Record, &row); err != nil {
		return fmt.Errorf("decode %s record: %w", ch.Table, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(ch.Key) >= 0 {
		return nil
	}
	l.rows = append(l.rows, row)
	return nil
}

func (l *LiveList[T]) update(ch Change) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(ch.Key)
	if i < 0 {
		return nil
	}
	merged, err := mergeFields(l.rows[i], ch.Record)
	if err != nil {
		return fmt.Errorf("merge %s record: %w", ch.Table, err)
	}
	l.rows[i] = merged
	return nil
}

func (l *LiveList[T]) remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(key); i >= 0 {
		l.rows = append(l.rows[:i], l.rows[i+1:]...)
	}
}

func (l *LiveList[T]) indexLocked(key string) int {
	for i, r := range l.rows {
		if l.keyOf(r) == key {
			return i
		}
	}
	return -1
}

// mergeFields overlays the top-level fields of patch onto row.
func mergeFields[T any](row T, patch json.RawMessage) (T, error) {
	var out T
	if len(patch) == 0 {
		return row, nil
	}
	base, err := json.Marshal(row)
	if err != nil {
		return out, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return out, err
	}
	var changed map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changed); err != nil {
		return out, err
	}
	for k, v := range changed {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, err
	}
	return out, nil
}
