// Package sqlstore persists bot data through sqlx. Queries are written with
// '?' placeholders and rebound for the connected driver (postgres or sqlite3).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/zonebot/internal/domain"
	"github.com/m3rciful/zonebot/internal/storage"
)

// Store implements storage.Store on a SQL database.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps an open connection. The schema must already be migrated.
func New(db *sqlx.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: db must not be nil")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCounterparties returns every stored id in insertion-independent order.
func (s *Store) LoadCounterparties(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM counterparties ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select counterparties: %w", err)
	}
	return ids, nil
}

// AppendCounterparty inserts id; repeated inserts are no-ops.
func (s *Store) AppendCounterparty(ctx context.Context, id int64) error {
	q := s.db.Rebind(`INSERT INTO counterparties (id) VALUES (?) ON CONFLICT (id) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("insert counterparty %d: %w", id, err)
	}
	return nil
}

type entryRow struct {
	ItemID   string  `db:"item_id"`
	Window   string  `db:"time_window"`
	Price    float64 `db:"price"`
	ImageRef string  `db:"image_ref"`
}

// LoadCatalog groups entry rows by item, ordered by item id.
func (s *Store) LoadCatalog(ctx context.Context) ([]domain.Item, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT item_id, time_window, price, image_ref FROM catalog_entries ORDER BY item_id, time_window`)
	if err != nil {
		return nil, fmt.Errorf("select catalog: %w", err)
	}

	var (
		items []domain.Item
		index = make(map[string]int)
	)
	for _, r := range rows {
		w, err := domain.ParseWindow(r.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: catalog item %s: %v", storage.ErrMalformed, r.ItemID, err)
		}
		i, ok := index[r.ItemID]
		if !ok {
			i = len(items)
			index[r.ItemID] = i
			items = append(items, domain.NewItem(r.ItemID))
		}
		items[i].Entries[w] = domain.Entry{Price: r.Price, Image: r.ImageRef}
	}
	return items, nil
}

// SaveCatalog upserts every entry of every item in one transaction.
func (s *Store) SaveCatalog(ctx context.Context, items []domain.Item) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind(`INSERT INTO catalog_entries (item_id, time_window, price, image_ref)
VALUES (?, ?, ?, ?)
ON CONFLICT (item_id, time_window) DO UPDATE SET price = excluded.price, image_ref = excluded.image_ref`)
	for _, it := range items {
		for _, w := range domain.Windows {
			e := it.Entries[w]
			if _, err := tx.ExecContext(ctx, q, it.ID, string(w), e.Price, e.Image); err != nil {
				return fmt.Errorf("upsert catalog %s/%s: %w", it.ID, w, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

type statsRow struct {
	Day            int64  `db:"day_count"`
	Week           int64  `db:"week_count"`
	Month          int64  `db:"month_count"`
	Total          int64  `db:"total_count"`
	LastUpdateWeek string `db:"last_update_week"`
}

// LoadStats returns the singleton row, or zero counters when absent.
func (s *Store) LoadStats(ctx context.Context) (domain.StatsRecord, error) {
	var row statsRow
	err := s.db.GetContext(ctx, &row,
		`SELECT day_count, week_count, month_count, total_count, last_update_week FROM usage_stats WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StatsRecord{}, nil
	}
	if err != nil {
		return domain.StatsRecord{}, fmt.Errorf("select stats: %w", err)
	}
	return domain.StatsRecord(row), nil
}

// SaveStats upserts the singleton row.
func (s *Store) SaveStats(ctx context.Context, rec domain.StatsRecord) error {
	q := s.db.Rebind(`INSERT INTO usage_stats (id, day_count, week_count, month_count, total_count, last_update_week)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    day_count = excluded.day_count,
    week_count = excluded.week_count,
    month_count = excluded.month_count,
    total_count = excluded.total_count,
    last_update_week = excluded.last_update_week`)
	if _, err := s.db.ExecContext(ctx, q, rec.Day, rec.Week, rec.Month, rec.Total, rec.LastUpdateWeek); err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}
	return nil
}
