package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/rts-production/internal/adapters/persistence"
	"github.com/andrescamacho/rts-production/internal/adapters/server"
	"github.com/andrescamacho/rts-production/internal/infrastructure/pidfile"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var (
		force    bool
		unpaced  bool
		tickRate float64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation continuously against a save slot",
		Long: `Load the save slot (or start a seeded world), tick it at the configured
rate, save it periodically and on shutdown, and serve Prometheus metrics
when metrics are enabled.

Only one server may run per PID file. Stop it with Ctrl+C or SIGTERM.

Examples:
  production-sim serve
  production-sim serve --slot skirmish --tick-rate 60
  production-sim serve --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			if tickRate > 0 {
				env.cfg.Simulation.TickRate = tickRate
			}

			pf := pidfile.New(env.cfg.Server.PIDFile)
			if err := pf.Acquire(); err != nil {
				var running *pidfile.ErrAlreadyRunning
				if !errors.As(err, &running) || !force {
					return fmt.Errorf("failed to acquire PID file lock: %w", err)
				}
				warnColor.Fprintf(out, "Force mode: stopping server PID %d\n", running.PID)
				if err := pf.KillExisting(env.cfg.Server.ShutdownTimeout); err != nil {
					return fmt.Errorf("failed to kill existing server: %w", err)
				}
				if err := pf.Acquire(); err != nil {
					return fmt.Errorf("failed to acquire PID file lock after killing existing server: %w", err)
				}
			}
			defer func() {
				if err := pf.Release(); err != nil {
					env.logger.Warn().Err(err).Msg("Failed to release PID file")
				}
			}()

			ctx := contextOrBackground(cmd.Context())
			db, err := env.openDatabase()
			if err != nil {
				return err
			}
			repo := persistence.NewGormSaveRepository(db)
			slot := env.resolveSlot()
			world, restored, err := env.loadWorld(ctx, repo, slot)
			if err != nil {
				return err
			}
			if restored {
				fmt.Fprintf(out, "Restored slot %s at %.2fs\n", slot, world.Clock.Elapsed())
			} else {
				warnColor.Fprintf(out, "Slot %s is empty; starting a new world\n", slot)
			}

			journal := persistence.NewEventJournal(db, slot, world.Clock)
			if err := journal.Resume(ctx); err != nil {
				return err
			}
			world.Bus.SubscribeAll(journal.Publish)

			opts := []server.Option{server.WithLogger(env.logger), server.WithJournal(journal)}
			if unpaced {
				opts = append(opts, server.WithUnpacedTicks())
			}
			srv, err := server.NewSimulationServer(world, repo, slot, env.cfg.Simulation, env.cfg.Server, env.cfg.Metrics, opts...)
			if err != nil {
				return err
			}

			if env.cfg.Metrics.Enabled {
				fmt.Fprintf(out, "Metrics on http://%s%s\n", srv.MetricsAddress(), env.cfg.Metrics.Path)
			}
			successColor.Fprintf(out, "Simulation running at %.0f ticks/s. Press Ctrl+C to stop\n", env.cfg.Simulation.TickRate)

			if err := srv.Start(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Stopped after %d ticks at %.2fs; saved to slot %s\n", srv.Ticks(), world.Clock.Elapsed(), slot)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Stop a running server and take over its PID file")
	cmd.Flags().BoolVar(&unpaced, "unpaced", false, "Tick as fast as possible instead of at the tick rate")
	cmd.Flags().Float64Var(&tickRate, "tick-rate", 0, "Override simulation.tick_rate")

	return cmd
}
