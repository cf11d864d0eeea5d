package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/zonebot/core/config"
	coredatabase "github.com/m3rciful/zonebot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			t.Fatal("connect must not be called")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.Nil(t, res.DB)
}

func TestRunMigratesSQLite(t *testing.T) {
	dbCfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: t.TempDir() + "/zonebot.db"}
	res, err := Run(Options{Config: &coreconfig.Config{}, Database: &dbCfg, LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.DB.Close() })

	var n int
	require.NoError(t, res.DB.Get(&n, `SELECT COUNT(*) FROM usage_stats`))
}

func TestRunClosesDBWhenMigrationFails(t *testing.T) {
	boom := errors.New("dirty schema")
	dbCfg := coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: ":memory:"}
	var db *sqlx.DB
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   &dbCfg,
		LoggerInit: noLogger,
		Connect: func(c coredatabase.Config) (*sqlx.DB, error) {
			var err error
			db, err = sqlx.Open(c.DriverName(), c.DSN())
			return db, err
		},
		Migrate: func(coredatabase.Config) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	require.Error(t, db.Ping())
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(Options{})
	require.Error(t, err)
}

func TestModulesSeedStopsAtFirstFailure(t *testing.T) {
	var ran []int
	boom := errors.New("boom")
	m := Modules{Seeders: []Seeder{
		SeederFunc(func(context.Context, Storage) error { ran = append(ran, 0); return nil }),
		nil,
		SeederFunc(func(context.Context, Storage) error { ran = append(ran, 2); return boom }),
		SeederFunc(func(context.Context, Storage) error { ran = append(ran, 3); return nil }),
	}}
	err := m.Seed(context.Background(), "store")
	require.ErrorIs(t, err, boom)
	require.Equal(t, []int{0, 2}, ran)
}
