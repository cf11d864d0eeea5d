// Package config loads the zonebot configuration: the core transport and
// logging sections plus the bot and storage sections.
package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/zonebot/core/config"
	"github.com/m3rciful/zonebot/core/database"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// BotConfig holds conversation settings. Environment keys are prefixed
// with BOT_, e.g. BOT_ADMIN_PASSWORD.
type BotConfig struct {
	AdminPassword string   `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
	WelcomeText   string   `yaml:"welcome_text" envconfig:"WELCOME_TEXT"`
	Items         []string `yaml:"items" envconfig:"ITEMS"`
}

// StorageConfig selects and configures the Persistent Store. Environment
// keys are prefixed with STORAGE_.
type StorageConfig struct {
	Driver             string          `yaml:"driver" envconfig:"DRIVER"`
	CounterpartiesFile string          `yaml:"counterparties_file" envconfig:"COUNTERPARTIES_FILE"`
	CatalogFile        string          `yaml:"catalog_file" envconfig:"CATALOG_FILE"`
	StatsFile          string          `yaml:"stats_file" envconfig:"STATS_FILE"`
	ImageDir           string          `yaml:"image_dir" envconfig:"IMAGE_DIR"`
	Database           database.Config `yaml:"database"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Bot     BotConfig     `yaml:"bot"`
	Storage StorageConfig `yaml:"storage"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// DefaultWelcomeText greets users on /start when bot.welcome_text is empty.
const DefaultWelcomeText = "Welcome! Choose your role:"

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Bot.AdminPassword) == "" {
		return fmt.Errorf("bot.admin_password is required")
	}
	if strings.TrimSpace(cfg.Bot.WelcomeText) == "" {
		cfg.Bot.WelcomeText = DefaultWelcomeText
	}
	items := cfg.Bot.Items[:0]
	for _, it := range cfg.Bot.Items {
		if it = strings.TrimSpace(it); it != "" {
			items = append(items, it)
		}
	}
	cfg.Bot.Items = items

	s := &cfg.Storage
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = DriverFile
	}
	if strings.TrimSpace(s.ImageDir) == "" {
		s.ImageDir = "images"
	}
	switch s.Driver {
	case DriverFile:
		if s.CounterpartiesFile == "" || s.CatalogFile == "" || s.StatsFile == "" {
			return fmt.Errorf("storage.counterparties_file, storage.catalog_file and storage.stats_file are required for the file driver")
		}
	case DriverPostgres:
		s.Database.Driver = database.DriverPostgres
		if s.Database.Host == "" || s.Database.Name == "" {
			return fmt.Errorf("storage.database.host and storage.database.name are required for the postgres driver")
		}
		if s.Database.SSLMode == "" {
			s.Database.SSLMode = "disable"
		}
	case DriverSQLite:
		s.Database.Driver = database.DriverSQLite
		if s.Database.Path == "" {
			return fmt.Errorf("storage.database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres, sqlite", cfg.Storage.Driver)
	}
	return nil
}
