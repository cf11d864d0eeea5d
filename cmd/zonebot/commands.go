package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/zonebot/core/buildinfo"
	corecmd "github.com/m3rciful/zonebot/core/cmd"
	coreconfig "github.com/m3rciful/zonebot/core/config"
	"github.com/m3rciful/zonebot/internal/app"
	"github.com/m3rciful/zonebot/internal/bot"
	"github.com/m3rciful/zonebot/internal/config"
	"github.com/m3rciful/zonebot/internal/conversation"
)

const defaultConfigPath = "config.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

func (o *RootOptions) runnerOptions() corecmd.Options {
	return corecmd.Options{
		ConfigPath:        o.ConfigPath,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: defaultConfigPath,
	}
}

// NewRootCommand creates the zonebot command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "zonebot",
		Short:         "Telegram bot publishing price zones per coin and timeframe",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $CONFIG_PATH or config.yaml)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ro := opts.runnerOptions()
			ro.LoadConfig = func(path string) (corecmd.ConfigCarrier, error) {
				return config.Load(path)
			}
			ro.Bootstrap = func(c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
				cfg, ok := c.(*config.Config)
				if !ok {
					return nil, fmt.Errorf("unexpected config type %T", c)
				}
				return bot.Bootstrap(cfg)
			}
			return corecmd.Run(ro)
		},
	}
}

type statsOptions struct {
	JSON bool
}

func newStatsCommand(root *RootOptions) *cobra.Command {
	opts := &statsOptions{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print usage statistics from the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := corecmd.ResolveConfigPath(root.runnerOptions())
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			svc, err := app.Open(cmd.Context(), cfg, app.Options{
				// Keep stdout clean for the report.
				LoggerInit: func(*coreconfig.Config) error { return nil },
				SkipSeed:   true,
			})
			if err != nil {
				return err
			}
			defer svc.Close()

			snap := svc.Stats.Snapshot()
			if !opts.JSON {
				fmt.Fprintln(cmd.OutOrStdout(), conversation.StatsText(snap))
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"day":              snap.Day,
				"week":             snap.Week,
				"month":            snap.Month,
				"total":            snap.Total,
				"last_update_week": snap.LastUpdateWeek,
				"users":            snap.Audience,
			})
		},
	}
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zonebot %s (%s)", buildinfo.Version, buildinfo.Commit)
			if buildinfo.Date != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " built %s", buildinfo.Date)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		},
	}
}

