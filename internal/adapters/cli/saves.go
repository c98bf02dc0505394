package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/andrescamacho/rts-production/internal/adapters/persistence"
	"github.com/andrescamacho/rts-production/internal/domain/events"
)

// NewSavesCommand creates the saves command with subcommands
func NewSavesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "Manage save slots",
		Long: `List, inspect and delete stored worlds and their event journals.

Examples:
  production-sim saves list
  production-sim saves show skirmish
  production-sim saves events skirmish --type PRODUCTION_DENIED --limit 20
  production-sim saves delete skirmish`,
	}

	cmd.AddCommand(newSavesListCommand())
	cmd.AddCommand(newSavesShowCommand())
	cmd.AddCommand(newSavesEventsCommand())
	cmd.AddCommand(newSavesDeleteCommand())

	return cmd
}

func newSavesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List save slots, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			repo, closeFn, err := openSaveRepository()
			if err != nil {
				return err
			}
			defer closeFn()

			saves, err := repo.List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(saves) == 0 {
				fmt.Fprintln(out, "No saves")
				return nil
			}
			table := tablewriter.NewTable(out,
				tablewriter.WithHeader([]string{"Slot", "Version", "Simulated (s)", "Factories", "Reservations", "Updated"}),
			)
			for _, s := range saves {
				row := []string{
					s.Slot,
					strconv.Itoa(s.Version),
					formatFloat(s.ElapsedSeconds),
					strconv.Itoa(s.Factories),
					strconv.Itoa(s.PendingCount),
					s.UpdatedAt.Format("2006-01-02 15:04:05"),
				}
				if err := table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}

func newSavesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <slot>",
		Short: "Show factions, factories and queues stored in a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
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
			world, restored, err := env.loadWorld(ctx, repo, args[0])
			if err != nil {
				return err
			}
			if !restored {
				return &persistence.ErrSaveSlotNotFound{Slot: args[0]}
			}

			out := cmd.OutOrStdout()
			titleColor.Fprintf(out, "Slot %s at %.2fs\n", args[0], world.Clock.Elapsed())
			fmt.Fprint(out, NewTreeFormatter(!color.NoColor).FormatWorld(world))
			fmt.Fprintln(out)
			return renderStatistics(out, world.Controller.Statistics())
		},
	}
}

func newSavesEventsCommand() *cobra.Command {
	var (
		eventType string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "events <slot>",
		Short: "Print the event journal of a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			db, err := env.openDatabase()
			if err != nil {
				return err
			}
			journal, err := persistence.Replay(ctx, db, args[0])
			if err != nil {
				return err
			}
			return renderEvents(cmd.OutOrStdout(), filterEvents(journal, events.EventType(eventType), limit))
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "Only show this event type")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the last N events")

	return cmd
}

func newSavesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slot>",
		Short: "Delete a slot and its event journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()
			db, err := env.openDatabase()
			if err != nil {
				return err
			}
			if err := persistence.NewGormSaveRepository(db).Delete(ctx, args[0]); err != nil {
				return err
			}
			if err := persistence.TruncateJournal(ctx, db, args[0]); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Deleted slot %s\n", args[0])
			return nil
		},
	}
}

func openSaveRepository() (*persistence.GormSaveRepository, func(), error) {
	env, err := newEnvironment()
	if err != nil {
		return nil, nil, err
	}
	db, err := env.openDatabase()
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	return persistence.NewGormSaveRepository(db), env.Close, nil
}

func filterEvents(all []events.Event, eventType events.EventType, limit int) []events.Event {
	filtered := all
	if eventType != "" {
		filtered = make([]events.Event, 0, len(all))
		for _, e := range all {
			if e.Type == eventType {
				filtered = append(filtered, e)
			}
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

func renderEvents(out io.Writer, journal []events.Event) error {
	if len(journal) == 0 {
		fmt.Fprintln(out, "No events")
		return nil
	}
	table := tablewriter.NewTable(out,
		tablewriter.WithHeader([]string{"Type", "Faction", "Factory", "Job", "Unit", "Value", "Reason"}),
	)
	for _, e := range journal {
		row := []string{
			e.Type.String(),
			e.FactionID.String(),
			strconv.FormatInt(e.FactoryID, 10),
			strconv.FormatInt(e.JobID, 10),
			e.UnitType,
			strconv.FormatFloat(e.Value, 'f', 2, 64),
			e.Reason,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
