// Package audience tracks every counterparty that ever reached the bot.
// The set only grows and doubles as the broadcast audience.
package audience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/zonebot/core/logger"
	"github.com/m3rciful/zonebot/internal/storage"
)

// Registry is the in-memory view of the persisted counterparty list.
type Registry struct {
	mu      sync.Mutex
	persist storage.CounterpartyStore
	seen    map[int64]struct{}
	order   []int64
}

// Load reads the persisted list. Duplicate lines collapse to one entry.
func Load(ctx context.Context, persist storage.CounterpartyStore) (*Registry, error) {
	ids, err := persist.LoadCounterparties(ctx)
	if err != nil {
		return nil, fmt.Errorf("load counterparties: %w", err)
	}
	r := &Registry{
		persist: persist,
		seen:    make(map[int64]struct{}, len(ids)),
	}
	for _, id := range ids {
		if _, ok := r.seen[id]; ok {
			continue
		}
		r.seen[id] = struct{}{}
		r.order = append(r.order, id)
	}
	logger.Info(ctx, "audience", "audience.loaded", slog.Int("count", len(r.order)))
	return r, nil
}

// Register appends id when it is unseen. It reports whether id was added.
func (r *Registry) Register(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[id]; ok {
		return false, nil
	}
	if err := r.persist.AppendCounterparty(ctx, id); err != nil {
		return false, fmt.Errorf("append counterparty %d: %w", id, err)
	}
	r.seen[id] = struct{}{}
	r.order = append(r.order, id)
	logger.Info(ctx, "audience", "audience.register",
		slog.Int64("user_id", id),
		slog.Int("count", len(r.order)),
	)
	return true, nil
}

// List returns every known id in first-seen order.
func (r *Registry) List() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.order...)
}

// Count returns the number of known ids.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
