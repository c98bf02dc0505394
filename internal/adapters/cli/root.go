package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	slotFlag   string
	verbose    bool
	noColor    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "production-sim",
		Short: "RTS factory production simulator",
		Long: `production-sim runs the factory production and economy pipeline of an RTS
match without a renderer: scripted scenarios, realtime serving with Prometheus
metrics, and save slots stored in SQLite or PostgreSQL.

Examples:
  production-sim catalog show
  production-sim simulate run scenarios/skirmish.yaml --save skirmish
  production-sim simulate advance --slot skirmish --seconds 30
  production-sim saves list
  production-sim saves show skirmish
  production-sim serve --slot autosave`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				disableColor()
			}
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search ./config.yaml, ./configs, /etc/rts-production)")
	rootCmd.PersistentFlags().StringVar(&slotFlag, "slot", "",
		"Save slot (default: user preference, then server.save_slot)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable coloured output")

	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewCatalogCommand())
	rootCmd.AddCommand(NewSimulateCommand())
	rootCmd.AddCommand(NewSavesCommand())
	rootCmd.AddCommand(NewServeCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
