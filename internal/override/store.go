// Package override persists which automatically derived insights a user
// has read or dismissed. Automatic insights have no server row, so these
// two id sets are their only lifecycle state.
package override

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
)

// KeyPrefix is the namespace of every key the override store writes.
const KeyPrefix = "overrides:"

type setKind string

const (
	setRead      setKind = "read"
	setDismissed setKind = "dismissed"
)

// IDSet is a set of insight ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// entries maps an insight id to the time it was marked.
type entries map[string]time.Time

// Store keeps the read and dismissed id sets per scope. Writes are
// serialized by a mutex, so concurrent marks of the same set never lose an
// id; across processes the last write wins.
type Store struct {
	kv  KeyValueStore
	now func() time.Time
	mu  sync.Mutex
}

// NewStore creates an override Store. A nil now uses time.Now.
func NewStore(kv KeyValueStore, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, now: now}
}

// key escapes both ids, so no pair of scopes can share a key even when an
// id contains the separator.
func key(kind setKind, scope types.Scope) string {
	return KeyPrefix + string(kind) + ":" + url.QueryEscape(scope.UserID) + ":" + url.QueryEscape(scope.WorkspaceID)
}

// GetRead returns the ids marked read in scope. It never fails: a missing
// or unreadable value yields an empty set.
func (s *Store) GetRead(ctx context.Context, scope types.Scope) IDSet {
	return s.getSet(ctx, key(setRead, scope))
}

// GetDismissed returns the ids dismissed in scope, or an empty set.
func (s *Store) GetDismissed(ctx context.Context, scope types.Scope) IDSet {
	return s.getSet(ctx, key(setDismissed, scope))
}

// MarkRead adds id to the read set. Marking twice is a no-op.
func (s *Store) MarkRead(ctx context.Context, scope types.Scope, id string) error {
	return s.add(ctx, key(setRead, scope), []string{id})
}

// MarkReadMany adds ids to the read set in a single write.
func (s *Store) MarkReadMany(ctx context.Context, scope types.Scope, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.add(ctx, key(setRead, scope), ids)
}

// MarkDismissed adds id to the dismissed set. Marking twice is a no-op.
func (s *Store) MarkDismissed(ctx context.Context, scope types.Scope, id string) error {
	return s.add(ctx, key(setDismissed, scope), []string{id})
}

func (s *Store) getSet(ctx context.Context, k string) IDSet {
	e := s.load(ctx, k)
	set := make(IDSet, len(e))
	for id := range e {
		set[id] = struct{}{}
	}
	return set
}

// load reads one set for display. Errors are logged and treated as empty.
func (s *Store) load(ctx context.Context, k string) entries {
	e, err := s.loadStrict(ctx, k)
	if err != nil {
		slog.Warn("override set unreadable, treating as empty",
			"component", "override",
			"key", k,
			"error", err,
		)
		return entries{}
	}
	return e
}

// loadStrict reads one set before a write. A missing key or a corrupt
// payload is an empty set; any other backend failure is returned, since
// saving over a set that could not be read would drop its ids.
func (s *Store) loadStrict(ctx context.Context, k string) (entries, error) {
	data, err := s.kv.Get(ctx, k)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return entries{}, nil
		}
		return nil, fmt.Errorf("read override set: %w", err)
	}

	var e entries
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Warn("override set corrupt, treating as empty",
			"component", "override",
			"key", k,
			"error", err,
		)
		return entries{}, nil
	}
	if e == nil {
		e = entries{}
	}
	return e, nil
}

func (s *Store) save(ctx context.Context, k string, e entries) error {
	if len(e) == 0 {
		if err := s.kv.Remove(ctx, k); err != nil {
			return fmt.Errorf("remove override set: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal override set: %w", err)
	}
	if err := s.kv.Set(ctx, k, data); err != nil {
		return fmt.Errorf("persist override set: %w", err)
	}
	return nil
}

func (s *Store) add(ctx context.Context, k string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.loadStrict(ctx, k)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	changed := false
	for _, id := range ids {
		if _, ok := e[id]; ok {
			continue
		}
		e[id] = now
		changed = true
	}
	if !changed {
		return nil
	}
	return s.save(ctx, k, e)
}

// Prune drops ids marked before cutoff that can never be derived again,
// across all scopes, and returns how many were removed. Ids without a
// month bucket (tip-emergency-fund, goal-stagnant-<id>, ...) are kept no
// matter how old, so a dismissal holds as long as its id is unchanged.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := s.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("list override sets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, k := range keys {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		e, err := s.loadStrict(ctx, k)
		if err != nil {
			return removed, err
		}
		before := len(e)
		for id, markedAt := range e {
			if markedAt.Before(cutoff) && Expired(id, markedAt, cutoff) {
				delete(e, id)
			}
		}
		if len(e) == before {
			continue
		}
		if err := s.save(ctx, k, e); err != nil {
			return removed, err
		}
		removed += before - len(e)
	}
	return removed, nil
}
