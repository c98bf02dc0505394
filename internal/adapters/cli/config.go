package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/rts-production/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage production-sim configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (RTS_* prefix)
2. Config file (config.yaml)
3. Default values

User preferences (default slot and faction) are stored in ~/.rts-production/config.json

Examples:
  production-sim config show
  production-sim config set-slot skirmish
  production-sim config set-faction 2
  production-sim config clear`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetSlotCommand())
	cmd.AddCommand(newConfigSetFactionCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				warnColor.Fprintf(out, "Warning: failed to load config: %v\nUsing default configuration.\n", err)
				cfg = config.Default()
			}

			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			userCfg, err := handler.Load()
			if err != nil {
				warnColor.Fprintf(out, "Warning: failed to load user config: %v\n", err)
				userCfg = &config.UserConfig{}
			}

			titleColor.Fprintln(out, "production-sim Configuration")
			fmt.Fprintln(out, "============================")

			fmt.Fprintln(out, "User Preferences:")
			fmt.Fprintf(out, "  Config file:      %s\n", handler.GetConfigPath())
			fmt.Fprintf(out, "  Default slot:     %s\n", orNotSet(userCfg.DefaultSlot))
			if userCfg.DefaultFactionID != nil {
				fmt.Fprintf(out, "  Default faction:  %d\n", *userCfg.DefaultFactionID)
			} else {
				fmt.Fprintln(out, "  Default faction:  (not set)")
			}

			fmt.Fprintln(out, "\nDatabase:")
			fmt.Fprintf(out, "  Type:             %s\n", cfg.Database.Type)
			switch {
			case cfg.Database.URL != "":
				fmt.Fprintf(out, "  URL:              %s\n", maskPassword(cfg.Database.URL))
			case cfg.Database.Type == "sqlite":
				fmt.Fprintf(out, "  Path:             %s\n", cfg.Database.Path)
			default:
				fmt.Fprintf(out, "  Host:             %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
			}

			fmt.Fprintln(out, "\nSimulation:")
			fmt.Fprintf(out, "  Tick rate:        %.0f Hz\n", cfg.Simulation.TickRate)
			fmt.Fprintf(out, "  Queue capacity:   %d\n", cfg.Simulation.QueueCapacity)
			fmt.Fprintf(out, "  Resource wait:    %.1fs\n", cfg.Simulation.MaxResourceWait)
			fmt.Fprintf(out, "  Max overclock:    %.2fx (meltdown %.0fs)\n", cfg.Simulation.MaxOverclock, cfg.Simulation.MeltdownDuration)

			fmt.Fprintln(out, "\nEconomy:")
			fmt.Fprintf(out, "  Catalog:          %s\n", orNotSet(cfg.Economy.CatalogPath))
			fmt.Fprintf(out, "  Sandbox:          %t\n", cfg.Economy.Sandbox)
			fmt.Fprintf(out, "  Seeded factions:  %d\n", len(cfg.Economy.Factions))

			fmt.Fprintln(out, "\nConstruction:")
			fmt.Fprintf(out, "  Build time:       %.0fs (+%.0f%% per extra builder)\n", cfg.Construction.BaseBuildTime, cfg.Construction.BuilderBonus*100)
			fmt.Fprintf(out, "  Spacing / cap:    %.0f / %d\n", cfg.Construction.MinFactoryDistance, cfg.Construction.MaxFactoriesPerFaction)

			fmt.Fprintln(out, "\nServer:")
			fmt.Fprintf(out, "  Save slot:        %s\n", cfg.Server.SaveSlot)
			fmt.Fprintf(out, "  Save interval:    %s\n", cfg.Server.SaveInterval)
			fmt.Fprintf(out, "  PID file:         %s\n", cfg.Server.PIDFile)

			fmt.Fprintln(out, "\nMetrics:")
			fmt.Fprintf(out, "  Enabled:          %t\n", cfg.Metrics.Enabled)
			if cfg.Metrics.Enabled {
				fmt.Fprintf(out, "  Endpoint:         http://%s:%d%s\n", cfg.Metrics.Host, cfg.Metrics.Port, cfg.Metrics.Path)
			}

			fmt.Fprintln(out, "\nLogging:")
			fmt.Fprintf(out, "  Level / format:   %s / %s\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
}

func newConfigSetSlotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-slot <slot>",
		Short: "Set the default save slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return err
			}
			if err := handler.SetDefaultSlot(args[0]); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Default slot set to %s\n", args[0])
			return nil
		},
	}
}

func newConfigSetFactionCommand() *cobra.Command {
	var factionID int

	cmd := &cobra.Command{
		Use:   "set-faction <id>",
		Short: "Set the default faction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := fmt.Sscanf(args[0], "%d", &factionID); err != nil || factionID <= 0 {
				return fmt.Errorf("faction id must be a positive integer, got %q", args[0])
			}
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return err
			}
			if err := handler.SetDefaultFaction(factionID); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Default faction set to %d\n", factionID)
			return nil
		},
	}
	return cmd
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear stored preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return err
			}
			if err := handler.Clear(); err != nil {
				return err
			}
			successColor.Fprintln(cmd.OutOrStdout(), "User preferences cleared")
			return nil
		},
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
