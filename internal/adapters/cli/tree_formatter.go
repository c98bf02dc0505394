package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// TreeFormatter renders a world as factions, their factories and queued jobs
type TreeFormatter struct {
	useColors bool
}

// NewTreeFormatter creates a new tree formatter
func NewTreeFormatter(useColors bool) *TreeFormatter {
	return &TreeFormatter{useColors: useColors}
}

// FormatWorld renders every faction that owns a factory, has economy history or was eliminated
func (f *TreeFormatter) FormatWorld(w *appProduction.World) string {
	byFaction := make(map[shared.FactionID][]*production.Factory)
	for _, factory := range w.Manager.Factories() {
		byFaction[factory.FactionID()] = append(byFaction[factory.FactionID()], factory)
	}
	for _, id := range append(w.Validator.AnalyticsFactions(), w.Manager.EliminatedFactions()...) {
		if _, ok := byFaction[id]; !ok {
			byFaction[id] = nil
		}
	}
	if len(byFaction) == 0 {
		return "(empty world)\n"
	}

	factions := make([]shared.FactionID, 0, len(byFaction))
	for id := range byFaction {
		factions = append(factions, id)
	}
	sort.Slice(factions, func(i, j int) bool { return factions[i].Value() < factions[j].Value() })

	var b strings.Builder
	for _, id := range factions {
		balance := w.Ledger.Available(id)
		header := fmt.Sprintf("Faction %s  REE %.1f (reserved %.1f)  power %.1f", id, balance.REE, w.Validator.ReservedREE(id), balance.Power)
		if w.Manager.IsEliminated(id) {
			header += "  " + f.paint(color.FgRed, "ELIMINATED")
		}
		b.WriteString(f.paint(color.Bold, header))
		b.WriteString("\n")
		factories := byFaction[id]
		for i, factory := range factories {
			f.formatFactory(&b, factory, i == len(factories)-1)
		}
	}
	return b.String()
}

func (f *TreeFormatter) formatFactory(b *strings.Builder, factory *production.Factory, isLast bool) {
	branch, prefix := "├── ", "│   "
	if isLast {
		branch, prefix = "└── ", "    "
	}
	pos := factory.Position()
	fmt.Fprintf(b, "%sFactory %d %s (%.0f,%.0f,%.0f) hp %.0f/%.0f L%d %s heat %.1f [%d/%d]\n",
		branch, factory.ID(), factory.Type(), pos.X, pos.Y, pos.Z,
		factory.Health(), factory.MaxHealth(), factory.UpgradeLevel(),
		f.overclockState(factory.OverclockState()), factory.Overclock().Heat(),
		factory.Queue().Len(), factory.Queue().Capacity())

	jobs := factory.QueuedJobs()
	for i, job := range jobs {
		jobBranch := "├── "
		if i == len(jobs)-1 {
			jobBranch = "└── "
		}
		reserved := ""
		if job.IsReserved() {
			reserved = " reserved"
		}
		fmt.Fprintf(b, "%s%s#%d %s %s %.0f%%%s\n", prefix, jobBranch, job.ID(), job.UnitType(), f.jobState(job.State()), job.Progress()*100, reserved)
	}
}

func (f *TreeFormatter) overclockState(state production.OverclockState) string {
	switch state {
	case production.OverclockMeltdown:
		return f.paint(color.FgRed, string(state))
	case production.OverclockOverclocked, production.OverclockCooldown:
		return f.paint(color.FgYellow, string(state))
	default:
		return string(state)
	}
}

func (f *TreeFormatter) jobState(state production.JobState) string {
	switch state {
	case production.JobStateInProgress:
		return f.paint(color.FgGreen, string(state))
	case production.JobStateAwaitingResources:
		return f.paint(color.FgYellow, string(state))
	default:
		return string(state)
	}
}

func (f *TreeFormatter) paint(attr color.Attribute, s string) string {
	if !f.useColors {
		return s
	}
	return color.New(attr).Sprint(s)
}
