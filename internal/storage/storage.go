// Package storage defines the persistent store shared by the catalog,
// statistics and audience components.
package storage

import (
	"context"
	"errors"

	"github.com/m3rciful/zonebot/internal/domain"
)

// ErrMalformed marks stored data that cannot be parsed. It is fatal at load.
var ErrMalformed = errors.New("storage: malformed data")

// CounterpartyStore persists known counterparty identifiers.
type CounterpartyStore interface {
	LoadCounterparties(ctx context.Context) ([]int64, error)
	AppendCounterparty(ctx context.Context, id int64) error
}

// CatalogStore persists catalog items. SaveCatalog replaces the whole catalog.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) ([]domain.Item, error)
	SaveCatalog(ctx context.Context, items []domain.Item) error
}

// StatsStore persists the singleton statistics record.
type StatsStore interface {
	LoadStats(ctx context.Context) (domain.StatsRecord, error)
	SaveStats(ctx context.Context, rec domain.StatsRecord) error
}

// Store aggregates every persistence concern of the bot.
type Store interface {
	CounterpartyStore
	CatalogStore
	StatsStore
	Close() error
}
