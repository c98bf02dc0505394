package cli

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/andrescamacho/rts-production/internal/adapters/persistence"
	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/application/production/commands"
	"github.com/andrescamacho/rts-production/internal/application/production/queries"
	"github.com/andrescamacho/rts-production/internal/application/scenario"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/internal/infrastructure/config"
)

// NewSimulateCommand creates the simulate command with subcommands
func NewSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run scenarios or drive a saved world",
		Long: `Run scripted scenarios, or issue orders against the world stored in a save slot.

Orders load the slot (or a freshly seeded world when the slot is empty), apply
the change, journal the events it raised and save the slot again.

Examples:
  production-sim simulate run scenarios/skirmish.yaml
  production-sim simulate run scenarios/skirmish.yaml --save skirmish
  production-sim simulate place --faction 1 --type combat --pos 0,0,0
  production-sim simulate queue --factory 1 --unit tank --count 2
  production-sim simulate overclock --factory 1 --target 1.5
  production-sim simulate advance --seconds 30`,
	}

	cmd.AddCommand(newSimulateRunCommand())
	cmd.AddCommand(newSimulateAdvanceCommand())
	cmd.AddCommand(newSimulatePlaceCommand())
	cmd.AddCommand(newSimulateConstructCommand())
	cmd.AddCommand(newSimulateQueueCommand())
	cmd.AddCommand(newSimulateOverclockCommand())

	return cmd
}

func newSimulateRunCommand() *cobra.Command {
	var saveSlot string

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario file and check its expectations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), cmd.OutOrStdout(), args[0], saveSlot)
		},
	}
	cmd.Flags().StringVar(&saveSlot, "save", "", "Store the final world and its event journal in this slot")

	return cmd
}

func runScenario(ctx context.Context, out io.Writer, path, saveSlot string) error {
	ctx = contextOrBackground(ctx)
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	world, err := scenario.NewWorld(s, env.costs, env.worldConfig(), env.worldOptions()...)
	if err != nil {
		return err
	}
	runner, err := scenario.NewRunner(world, env.logger)
	if err != nil {
		return err
	}
	runner.Mediator().Use(mediator.LoggingMiddleware(env.logger))

	var (
		repo    *persistence.GormSaveRepository
		journal *persistence.EventJournal
	)
	if saveSlot != "" {
		db, err := env.openDatabase()
		if err != nil {
			return err
		}
		if err := persistence.TruncateJournal(ctx, db, saveSlot); err != nil {
			return err
		}
		repo = persistence.NewGormSaveRepository(db)
		journal = persistence.NewEventJournal(db, saveSlot, world.Clock)
		world.Bus.SubscribeAll(journal.Publish)
	}

	report, err := runner.Run(ctx, s)
	if err != nil {
		return err
	}
	if err := renderReport(out, report); err != nil {
		return err
	}

	if repo != nil {
		if err := journal.Flush(ctx); err != nil {
			return err
		}
		if err := repo.Save(ctx, saveSlot, world.Snapshot()); err != nil {
			return err
		}
		successColor.Fprintf(out, "Saved to slot %s\n", saveSlot)
	}

	if !report.Passed() {
		for _, v := range report.Violations {
			failColor.Fprintf(out, "  ✗ %s\n", v)
		}
		return fmt.Errorf("scenario %s failed: %d expectation(s) not met", report.Name, len(report.Violations))
	}
	successColor.Fprintf(out, "Scenario %s passed\n", report.Name)
	return nil
}

func renderReport(out io.Writer, report *scenario.Report) error {
	titleColor.Fprintf(out, "Scenario %s\n", report.Name)
	fmt.Fprintf(out, "  Steps: %d  Ticks: %d  Simulated: %.2fs\n", report.Steps, report.Ticks, report.Elapsed)
	fmt.Fprintf(out, "  Units: %d  Factories built: %d  Refused orders: %d  REE drawn progressively: %.1f\n",
		report.UnitsCompleted, report.FactoriesBuilt, report.Denied, report.REEConsumed)
	return renderStatistics(out, report.Statistics)
}

func renderStatistics(out io.Writer, stats appProduction.Statistics) error {
	table := tablewriter.NewTable(out, tablewriter.WithHeader([]string{"Unit", "Produced"}))
	for _, unit := range stats.UnitTypes() {
		if err := table.Append([]string{unit, fmt.Sprintf("%d", stats.ProducedByType[unit])}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "  Total %d, failed spawns %d, failed commits %d, REE %.1f, power %.1f\n",
		stats.TotalProduced, stats.FailedSpawns, stats.FailedCommits, stats.REEConsumed, stats.PowerConsumed)
	return nil
}

// session is a slot-backed world with its command bus
type session struct {
	env   *environment
	world *appProduction.World
	m     mediator.Mediator
}

// withSlotWorld loads the slot, lets fn issue commands, then journals and saves
func withSlotWorld(ctx context.Context, out io.Writer, fn func(ctx context.Context, s *session) error) error {
	ctx = contextOrBackground(ctx)
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

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
	if !restored {
		warnColor.Fprintf(out, "Slot %s is empty; starting a new world\n", slot)
	}

	journal := persistence.NewEventJournal(db, slot, world.Clock)
	if err := journal.Resume(ctx); err != nil {
		return err
	}
	world.Bus.SubscribeAll(journal.Publish)

	m := mediator.NewMediator()
	m.Use(mediator.LoggingMiddleware(env.logger))
	if err := commands.RegisterHandlers(m, world); err != nil {
		return err
	}
	if err := queries.RegisterHandlers(m, world); err != nil {
		return err
	}

	if err := fn(ctx, &session{env: env, world: world, m: m}); err != nil {
		return err
	}
	if err := journal.Flush(ctx); err != nil {
		return err
	}
	return repo.Save(ctx, slot, world.Snapshot())
}

func newSimulateAdvanceCommand() *cobra.Command {
	var (
		seconds float64
		ticks   int
	)

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance the saved world by fixed ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withSlotWorld(cmd.Context(), out, func(ctx context.Context, s *session) error {
				delta := s.env.cfg.Simulation.TickDelta()
				n := ticks
				if seconds > 0 {
					n += int(math.Ceil(seconds/delta - 1e-9))
				}
				resp, err := s.m.Send(ctx, &commands.AdvanceCommand{Ticks: n, Delta: delta})
				if err != nil {
					return err
				}
				adv := resp.(*commands.AdvanceResponse)
				successColor.Fprintf(out, "Advanced %d ticks (%.2fs simulated)\n", n, adv.SimulatedSeconds)
				fmt.Fprintf(out, "  Units completed: %d  Factories built: %d  REE drawn: %.1f\n",
					adv.UnitsCompleted, adv.FactoriesBuilt, adv.REEConsumed)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "Simulated seconds to advance")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "Additional ticks to advance")

	return cmd
}

func newSimulatePlaceCommand() *cobra.Command {
	var (
		factionID   int
		factoryType string
		pos         []float64
		district    string
	)

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a finished factory immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withSlotWorld(cmd.Context(), out, func(ctx context.Context, s *session) error {
				resp, err := s.m.Send(ctx, &commands.PlaceFactoryCommand{
					FactionID: resolveFaction(cmd, factionID), FactoryType: factoryType, Position: vectorFlag(pos), DistrictID: district,
				})
				if err != nil {
					return err
				}
				successColor.Fprintf(out, "Placed factory %d\n", resp.(*commands.PlaceFactoryResponse).FactoryID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&factionID, "faction", 1, "Owning faction (default: user preference, then 1)")
	cmd.Flags().StringVar(&factoryType, "type", "combat", "Factory type (combat, harvester, support)")
	cmd.Flags().Float64SliceVar(&pos, "pos", []float64{0, 0, 0}, "Position x,y,z")
	cmd.Flags().StringVar(&district, "district", "", "District id")

	return cmd
}

func newSimulateConstructCommand() *cobra.Command {
	var (
		factionID   int
		factoryType string
		pos         []float64
		district    string
		builders    []int64
	)

	cmd := &cobra.Command{
		Use:   "construct",
		Short: "Open a construction site",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withSlotWorld(cmd.Context(), out, func(ctx context.Context, s *session) error {
				resp, err := s.m.Send(ctx, &commands.StartConstructionCommand{
					FactionID: resolveFaction(cmd, factionID), FactoryType: factoryType, Position: vectorFlag(pos), DistrictID: district, Builders: builders,
				})
				if err != nil {
					return err
				}
				successColor.Fprintf(out, "Opened site %d with %d builder(s)\n", resp.(*commands.StartConstructionResponse).SiteID, len(builders))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&factionID, "faction", 1, "Owning faction (default: user preference, then 1)")
	cmd.Flags().StringVar(&factoryType, "type", "combat", "Factory type (combat, harvester, support)")
	cmd.Flags().Float64SliceVar(&pos, "pos", []float64{0, 0, 0}, "Position x,y,z")
	cmd.Flags().StringVar(&district, "district", "", "District id")
	cmd.Flags().Int64SliceVar(&builders, "builders", []int64{1}, "Builder unit ids")

	return cmd
}

func newSimulateQueueCommand() *cobra.Command {
	var (
		factoryID int64
		unitType  string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue units on a factory",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withSlotWorld(cmd.Context(), out, func(ctx context.Context, s *session) error {
				queued := 0
				for i := 0; i < count; i++ {
					resp, err := s.m.Send(ctx, &commands.QueueUnitCommand{FactoryID: factoryID, UnitType: unitType})
					if err != nil {
						warnColor.Fprintf(out, "Refused: %v\n", err)
						continue
					}
					job := resp.(*commands.QueueUnitResponse)
					fmt.Fprintf(out, "  job %d at position %d (reservation %s)\n", job.JobID, job.Position, job.TransactionID)
					queued++
				}
				successColor.Fprintf(out, "Queued %d/%d %s\n", queued, count, unitType)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&factoryID, "factory", 0, "Factory id")
	cmd.Flags().StringVar(&unitType, "unit", "", "Unit type")
	cmd.Flags().IntVar(&count, "count", 1, "Number of units")
	_ = cmd.MarkFlagRequired("factory")
	_ = cmd.MarkFlagRequired("unit")

	return cmd
}

func newSimulateOverclockCommand() *cobra.Command {
	var (
		factoryID int64
		target    float64
	)

	cmd := &cobra.Command{
		Use:   "overclock",
		Short: "Set a factory's overclock target",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withSlotWorld(cmd.Context(), out, func(ctx context.Context, s *session) error {
				if _, err := s.m.Send(ctx, &commands.SetOverclockCommand{FactoryID: factoryID, Target: target}); err != nil {
					return err
				}
				successColor.Fprintf(out, "Factory %d overclock target %.2fx\n", factoryID, target)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&factoryID, "factory", 0, "Factory id")
	cmd.Flags().Float64Var(&target, "target", 1.0, "Target speed multiplier (1.0 stops overclocking)")
	_ = cmd.MarkFlagRequired("factory")

	return cmd
}

// resolveFaction prefers an explicit --faction, then the stored default faction
func resolveFaction(cmd *cobra.Command, flagValue int) int {
	if cmd.Flags().Changed("faction") {
		return flagValue
	}
	if handler, err := config.NewUserConfigHandler(); err == nil {
		if userCfg, err := handler.Load(); err == nil && userCfg.DefaultFactionID != nil {
			return *userCfg.DefaultFactionID
		}
	}
	return flagValue
}

func vectorFlag(v []float64) shared.Vector3 {
	var xyz [3]float64
	copy(xyz[:], v)
	return shared.NewVector3(xyz[0], xyz[1], xyz[2])
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
