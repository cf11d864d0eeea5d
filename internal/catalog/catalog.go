// Package catalog holds the in-memory catalog of items and their per-window
// entries. It is loaded once at startup and flushed after every mutation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/zonebot/core/logger"
	"github.com/m3rciful/zonebot/internal/domain"
	"github.com/m3rciful/zonebot/internal/storage"
)

// ErrUnknownItem is returned when an operation names an item not in the catalog.
var ErrUnknownItem = errors.New("catalog: unknown item")

// Store is the process-wide catalog. Mutations are serialized with the flush.
type Store struct {
	mu      sync.RWMutex
	persist storage.CatalogStore
	order   []string
	items   map[string]domain.Item
}

// Load reads the catalog from persist.
func Load(ctx context.Context, persist storage.CatalogStore) (*Store, error) {
	items, err := persist.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	s := &Store{
		persist: persist,
		items:   make(map[string]domain.Item, len(items)),
	}
	for _, it := range items {
		if _, dup := s.items[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate catalog item %q", storage.ErrMalformed, it.ID)
		}
		s.order = append(s.order, it.ID)
		s.items[it.ID] = it.Clone()
	}
	logger.Info(ctx, "catalog", "catalog.loaded", slog.Int("count", len(s.order)))
	return s, nil
}

// Items returns item ids in load order.
func (s *Store) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Has reports whether id is a known item.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Lookup returns the entry for (id, w).
func (s *Store) Lookup(id string, w domain.Window) (domain.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return domain.Entry{}, false
	}
	e, ok := it.Entries[w]
	return e, ok
}

// Commit sets price and image of (id, w) together and flushes the catalog.
// The in-memory copy only changes once the flush succeeded.
func (s *Store) Commit(ctx context.Context, id string, w domain.Window, e domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	next := cur.Clone()
	next.Entries[w] = e

	snapshot := s.snapshotWith(next)
	if err := s.persist.SaveCatalog(ctx, snapshot); err != nil {
		logger.Error(ctx, "catalog", "catalog.commit",
			slog.String("status", "fail"),
			slog.String("item", id),
			slog.String("window", string(w)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("flush catalog: %w", err)
	}
	s.items[id] = next
	logger.Info(ctx, "catalog", "catalog.commit",
		slog.String("status", "ok"),
		slog.String("item", id),
		slog.String("window", string(w)),
		slog.Float64("price", e.Price),
	)
	return nil
}

// Ensure adds every id not yet present with empty entries and flushes once
// when anything was added. It returns the number of items created.
func (s *Store) Ensure(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []domain.Item
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.items[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, domain.NewItem(id))
	}
	if len(added) == 0 {
		return 0, nil
	}

	snapshot := s.snapshotWith(added...)
	if err := s.persist.SaveCatalog(ctx, snapshot); err != nil {
		return 0, fmt.Errorf("flush catalog: %w", err)
	}
	for _, it := range added {
		s.order = append(s.order, it.ID)
		s.items[it.ID] = it
	}
	return len(added), nil
}

// snapshotWith returns the ordered catalog with replacements or additions applied.
// Callers hold the write lock.
func (s *Store) snapshotWith(changed ...domain.Item) []domain.Item {
	repl := make(map[string]domain.Item, len(changed))
	for _, it := range changed {
		repl[it.ID] = it
	}
	out := make([]domain.Item, 0, len(s.order)+len(changed))
	for _, id := range s.order {
		if it, ok := repl[id]; ok {
			out = append(out, it)
			delete(repl, id)
			continue
		}
		out = append(out, s.items[id])
	}
	for _, it := range changed {
		if _, ok := repl[it.ID]; ok {
			out = append(out, it)
		}
	}
	return out
}
