// Package app opens the stores shared by every zonebot entry point.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/zonebot/core/bootstrap"
	coreconfig "github.com/m3rciful/zonebot/core/config"
	coredatabase "github.com/m3rciful/zonebot/core/database"
	"github.com/m3rciful/zonebot/core/logger"
	"github.com/m3rciful/zonebot/internal/audience"
	"github.com/m3rciful/zonebot/internal/catalog"
	"github.com/m3rciful/zonebot/internal/config"
	"github.com/m3rciful/zonebot/internal/images"
	"github.com/m3rciful/zonebot/internal/stats"
	"github.com/m3rciful/zonebot/internal/storage"
	"github.com/m3rciful/zonebot/internal/storage/filestore"
	"github.com/m3rciful/zonebot/internal/storage/sqlstore"
)

// Services are the loaded stores. Close releases the persistence backend.
type Services struct {
	Store    storage.Store
	Catalog  *catalog.Store
	Audience *audience.Registry
	Stats    *stats.Aggregator
	Images   *images.Store
}

// Options tweak Open for tests and offline tools.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
	// SkipSeed leaves the catalog as stored.
	SkipSeed bool
}

// Open initialises logging, opens the configured store, loads the catalog,
// audience and statistics, and seeds the configured items.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	var dbCfg *coredatabase.Config
	if cfg.Storage.Driver != config.DriverFile {
		dbCfg = &cfg.Storage.Database
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   dbCfg,
		LoggerInit: opts.LoggerInit,
	})
	if err != nil {
		return nil, err
	}

	var store storage.Store
	if res.DB != nil {
		store, err = sqlstore.New(res.DB)
	} else {
		store, err = filestore.New(filestore.Paths{
			Counterparties: cfg.Storage.CounterpartiesFile,
			Catalog:        cfg.Storage.CatalogFile,
			Stats:          cfg.Storage.StatsFile,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	svc, err := load(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !opts.SkipSeed {
		mods := bootstrap.Modules{Seeders: []bootstrap.Seeder{catalogSeeder(cfg.Bot.Items)}}
		if err := mods.Seed(ctx, svc.Catalog); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return svc, nil
}

func load(ctx context.Context, cfg *config.Config, store storage.Store) (*Services, error) {
	aud, err := audience.Load(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("app: load audience: %w", err)
	}
	agg, err := stats.Load(ctx, store, aud)
	if err != nil {
		return nil, fmt.Errorf("app: load stats: %w", err)
	}
	cat, err := catalog.Load(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("app: load catalog: %w", err)
	}
	imgs, err := images.New(cfg.Storage.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("app: image store: %w", err)
	}
	return &Services{Store: store, Catalog: cat, Audience: aud, Stats: agg, Images: imgs}, nil
}

type ensurer interface {
	Ensure(ctx context.Context, ids []string) (int, error)
}

// catalogSeeder creates every listed item missing from the catalog.
func catalogSeeder(items []string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, st bootstrap.Storage) error {
		cat, ok := st.(ensurer)
		if !ok {
			return fmt.Errorf("catalog seeder: unsupported storage %T", st)
		}
		added, err := cat.Ensure(ctx, items)
		if err != nil {
			return err
		}
		logger.Info(ctx, "catalog.seed", "catalog.seeded",
			slog.String("status", "ok"),
			slog.Int("count", len(items)),
			slog.Int("added", added),
		)
		return nil
	})
}

// Close releases the persistence backend.
func (s *Services) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
