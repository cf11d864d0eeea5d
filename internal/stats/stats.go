// Package stats aggregates delivery counters with a weekly rollover.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/zonebot/core/logger"
	"github.com/m3rciful/zonebot/internal/domain"
	"github.com/m3rciful/zonebot/internal/storage"
)

// AudienceCounter reports how many counterparties are known.
type AudienceCounter interface {
	Count() int
}

// Snapshot is a point-in-time view of the counters for reporting.
type Snapshot struct {
	domain.StatsRecord
	Audience int
}

// Aggregator owns the statistics record. Increments and flushes are serialized.
type Aggregator struct {
	mu       sync.Mutex
	rec      domain.StatsRecord
	persist  storage.StatsStore
	audience AudienceCounter
	now      func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source used for the week identifier.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Load reads the persisted record and returns a ready aggregator.
func Load(ctx context.Context, persist storage.StatsStore, audience AudienceCounter, opts ...Option) (*Aggregator, error) {
	rec, err := persist.LoadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	a := &Aggregator{
		rec:      rec,
		persist:  persist,
		audience: audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// RecordDelivery applies the weekly rollover, increments every counter by one
// and persists the record. On a failed flush the in-memory record is unchanged.
func (a *Aggregator) RecordDelivery(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := Advance(a.rec, domain.WeekID(a.now()))
	if err := a.persist.SaveStats(ctx, next); err != nil {
		logger.Error(ctx, "stats", "stats.record",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("flush stats: %w", err)
	}
	rolled := next.LastUpdateWeek != a.rec.LastUpdateWeek
	a.rec = next
	logger.Debug(ctx, "stats", "stats.record",
		slog.String("status", "ok"),
		slog.Int64("total", next.Total),
		slog.Int64("week_count", next.Week),
		slog.Bool("rollover", rolled),
	)
	return nil
}

// Snapshot returns the current counters and audience size.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	rec := a.rec
	a.mu.Unlock()

	snap := Snapshot{StatsRecord: rec}
	if a.audience != nil {
		snap.Audience = a.audience.Count()
	}
	return snap
}

// Advance returns rec after one delivery in week. The week counter restarts
// from zero when week differs from the last recorded one; day and month never reset.
func Advance(rec domain.StatsRecord, week string) domain.StatsRecord {
	if rec.LastUpdateWeek != week {
		rec.Week = 0
		rec.LastUpdateWeek = week
	}
	rec.Day++
	rec.Week++
	rec.Month++
	rec.Total++
	return rec
}
