package scenario

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/application/production/commands"
	"github.com/andrescamacho/rts-production/internal/application/production/queries"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/construction"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

const balanceTolerance = 1e-6

// Report summarises one scenario run
type Report struct {
	Name           string
	Steps          int
	Ticks          int
	UnitsCompleted int
	FactoriesBuilt int
	REEConsumed    float64
	Denied         int
	Statistics     appProduction.Statistics
	Elapsed        float64
	Violations     []string
}

// Passed reports whether every expectation held
func (r *Report) Passed() bool { return len(r.Violations) == 0 }

func (r *Report) violate(format string, args ...any) {
	r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
}

type siteRef struct {
	id       construction.SiteID
	faction  int
	position shared.Vector3
}

type jobRef struct {
	factoryID int64
	jobID     int64
}

// Runner executes a scenario against a world through the mediator
type Runner struct {
	mediator mediator.Mediator
	world    *appProduction.World
	logger   zerolog.Logger

	factories map[string]int64
	sites     map[string]siteRef
	jobs      map[string]jobRef
}

// NewWorld builds a world for s, honouring its sandbox flag
func NewWorld(s *Scenario, costs *catalog.Catalog, cfg appProduction.WorldConfig, opts ...appProduction.WorldOption) (*appProduction.World, error) {
	if s.Sandbox {
		opts = append(opts, appProduction.WithSandbox())
	}
	return appProduction.NewWorld(costs, cfg, opts...)
}

// NewRunner wires the production commands and queries for world into a fresh mediator.
// Middleware can be added to Mediator() before Run.
func NewRunner(world *appProduction.World, logger zerolog.Logger) (*Runner, error) {
	m := mediator.NewMediator()
	if err := commands.RegisterHandlers(m, world); err != nil {
		return nil, err
	}
	if err := queries.RegisterHandlers(m, world); err != nil {
		return nil, err
	}
	return &Runner{
		mediator:  m,
		world:     world,
		logger:    logger.With().Str("component", "scenario").Logger(),
		factories: make(map[string]int64),
		sites:     make(map[string]siteRef),
		jobs:      make(map[string]jobRef),
	}, nil
}

func (r *Runner) Mediator() mediator.Mediator { return r.mediator }

// Run seeds the factions, executes every step in order, then checks expectations.
// A step that fails unexpectedly aborts the run; unmet expectations are reported
// in Report.Violations.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Report, error) {
	report := &Report{Name: s.Name}

	for _, f := range s.Factions {
		if _, err := r.mediator.Send(ctx, &commands.DepositCommand{FactionID: f.ID, REE: f.REE, Power: f.Power}); err != nil {
			return report, fmt.Errorf("seeding faction %d: %w", f.ID, err)
		}
		if f.CostModifier != 0 {
			if _, err := r.mediator.Send(ctx, &commands.SetFactionModifierCommand{FactionID: f.ID, Modifier: f.CostModifier}); err != nil {
				return report, fmt.Errorf("seeding faction %d: %w", f.ID, err)
			}
		}
	}

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := r.execute(ctx, s, step, report)
		report.Steps++
		switch {
		case err != nil && !step.ExpectError:
			return report, fmt.Errorf("step %d: %w", i+1, err)
		case err == nil && step.ExpectError:
			report.violate("step %d: expected an error, got none", i+1)
		case err != nil:
			r.logger.Debug().Int("step", i+1).Err(err).Msg("Step failed as expected")
		}
	}

	resp, err := r.mediator.Send(ctx, &queries.GetStatisticsQuery{})
	if err != nil {
		return report, err
	}
	stats := resp.(*queries.GetStatisticsResponse)
	report.Statistics = stats.Statistics
	report.Elapsed = stats.Elapsed

	if s.Expect != nil {
		if err := r.check(ctx, s.Expect, report); err != nil {
			return report, err
		}
	}

	r.logger.Info().
		Str("scenario", s.Name).
		Int("steps", report.Steps).
		Int("ticks", report.Ticks).
		Int("units", report.UnitsCompleted).
		Int("violations", len(report.Violations)).
		Msg("Scenario finished")
	return report, nil
}

func (r *Runner) execute(ctx context.Context, s *Scenario, step Step, report *Report) error {
	switch {
	case step.PlaceFactory != nil:
		p := step.PlaceFactory
		resp, err := r.mediator.Send(ctx, &commands.PlaceFactoryCommand{
			FactionID: p.Faction, FactoryType: p.Type, Position: p.Position.Vector(), DistrictID: p.DistrictID,
		})
		if err != nil {
			return err
		}
		if p.As != "" {
			r.factories[p.As] = resp.(*commands.PlaceFactoryResponse).FactoryID
		}
		return nil

	case step.Construct != nil:
		c := step.Construct
		resp, err := r.mediator.Send(ctx, &commands.StartConstructionCommand{
			FactionID: c.Faction, FactoryType: c.Type, Position: c.Position.Vector(), DistrictID: c.DistrictID, Builders: c.Builders,
		})
		if err != nil {
			return err
		}
		if c.As != "" {
			r.sites[c.As] = siteRef{
				id:       construction.SiteID(resp.(*commands.StartConstructionResponse).SiteID),
				faction:  c.Faction,
				position: c.Position.Vector(),
			}
		}
		return nil

	case step.AssignBuilder != nil:
		a := step.AssignBuilder
		site, err := r.site(a.Site)
		if err != nil {
			return err
		}
		_, err = r.mediator.Send(ctx, &commands.AssignBuilderCommand{SiteID: int64(site.id), BuilderID: a.Builder, Remove: a.Remove})
		return err

	case step.CancelSite != nil:
		site, err := r.site(step.CancelSite.Site)
		if err != nil {
			return err
		}
		_, err = r.mediator.Send(ctx, &commands.CancelConstructionCommand{SiteID: int64(site.id)})
		return err

	case step.Queue != nil:
		return r.queue(ctx, step.Queue, report)

	case step.CancelJob != nil:
		job, ok := r.jobs[step.CancelJob.Job]
		if !ok {
			return fmt.Errorf("unknown job %q", step.CancelJob.Job)
		}
		_, err := r.mediator.Send(ctx, &commands.CancelJobCommand{FactoryID: job.factoryID, JobID: job.jobID})
		return err

	case step.Overclock != nil:
		id, err := r.factory(ctx, step.Overclock.Factory)
		if err != nil {
			return err
		}
		_, err = r.mediator.Send(ctx, &commands.SetOverclockCommand{FactoryID: id, Target: step.Overclock.Target})
		return err

	case step.Upgrade != nil:
		id, err := r.factory(ctx, step.Upgrade.Factory)
		if err != nil {
			return err
		}
		_, err = r.mediator.Send(ctx, &commands.UpgradeFactoryCommand{FactoryID: id})
		return err

	case step.Damage != nil:
		id, err := r.factory(ctx, step.Damage.Factory)
		if err != nil {
			return err
		}
		_, err = r.mediator.Send(ctx, &commands.DamageFactoryCommand{FactoryID: id, Amount: step.Damage.Amount})
		return err

	case step.Deposit != nil:
		d := step.Deposit
		_, err := r.mediator.Send(ctx, &commands.DepositCommand{FactionID: d.Faction, REE: d.REE, Power: d.Power})
		return err

	case step.SetModifier != nil:
		m := step.SetModifier
		_, err := r.mediator.Send(ctx, &commands.SetFactionModifierCommand{FactionID: m.Faction, Modifier: m.Modifier})
		return err

	case step.Speed != nil:
		_, err := r.mediator.Send(ctx, &commands.SetSpeedCommand{Multiplier: step.Speed.Multiplier, Paused: step.Speed.Paused})
		return err

	case step.Advance != nil:
		ticks := step.Advance.Ticks
		if step.Advance.Seconds > 0 {
			ticks += int(math.Ceil(step.Advance.Seconds/s.TickDelta - 1e-9))
		}
		resp, err := r.mediator.Send(ctx, &commands.AdvanceCommand{Ticks: ticks, Delta: s.TickDelta})
		if resp != nil {
			adv := resp.(*commands.AdvanceResponse)
			report.Ticks += ticks
			report.UnitsCompleted += adv.UnitsCompleted
			report.FactoriesBuilt += adv.FactoriesBuilt
			report.REEConsumed += adv.REEConsumed
		}
		return err
	}
	return fmt.Errorf("step has no action")
}

func (r *Runner) queue(ctx context.Context, q *QueueStep, report *Report) error {
	id, err := r.factory(ctx, q.Factory)
	if err != nil {
		return err
	}
	count := q.Count
	if count == 0 {
		count = 1
	}
	denied := 0
	for i := 0; i < count; i++ {
		resp, err := r.mediator.Send(ctx, &commands.QueueUnitCommand{FactoryID: id, UnitType: q.Unit})
		if err != nil {
			denied++
			r.logger.Debug().Int64("factory_id", id).Str("unit_type", q.Unit).Err(err).Msg("Queue refused")
			continue
		}
		if q.As != "" {
			r.jobs[q.As] = jobRef{factoryID: id, jobID: resp.(*commands.QueueUnitResponse).JobID}
		}
	}
	report.Denied += denied
	if denied != q.ExpectDenied {
		report.violate("queue %d %s on %s: %d refused, expected %d", count, q.Unit, q.Factory, denied, q.ExpectDenied)
	}
	return nil
}

func (r *Runner) site(alias string) (siteRef, error) {
	site, ok := r.sites[alias]
	if !ok {
		return siteRef{}, fmt.Errorf("unknown site %q", alias)
	}
	return site, nil
}

// factory resolves a placed-factory alias, a finished site alias or a numeric id
func (r *Runner) factory(ctx context.Context, ref string) (int64, error) {
	if id, ok := r.factories[ref]; ok {
		return id, nil
	}
	if site, ok := r.sites[ref]; ok {
		view, err := r.factoryAt(ctx, site)
		if err != nil {
			return 0, err
		}
		if view == nil {
			return 0, fmt.Errorf("site %q has not produced a factory", ref)
		}
		return view.ID, nil
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown factory %q", ref)
	}
	return id, nil
}

func (r *Runner) factoryAt(ctx context.Context, site siteRef) (*queries.FactoryView, error) {
	resp, err := r.mediator.Send(ctx, &queries.ListFactoriesQuery{FactionID: site.faction})
	if err != nil {
		return nil, err
	}
	for _, view := range resp.(*queries.ListFactoriesResponse).Factories {
		if view.Position == site.position {
			view := view
			return &view, nil
		}
	}
	return nil, nil
}

func (r *Runner) view(ctx context.Context, ref string) (*queries.FactoryView, error) {
	id, err := r.factory(ctx, ref)
	if err != nil {
		return nil, err
	}
	resp, err := r.mediator.Send(ctx, &queries.ListFactoriesQuery{})
	if err != nil {
		return nil, err
	}
	for _, view := range resp.(*queries.ListFactoriesResponse).Factories {
		if view.ID == id {
			view := view
			return &view, nil
		}
	}
	return nil, nil
}

func (r *Runner) check(ctx context.Context, e *Expect, report *Report) error {
	stats := report.Statistics
	if e.UnitsProduced != nil && stats.TotalProduced != *e.UnitsProduced {
		report.violate("units produced: got %d, want %d", stats.TotalProduced, *e.UnitsProduced)
	}
	for _, unit := range sortedKeys(e.UnitsByType) {
		if got := stats.ProducedByType[unit]; got != e.UnitsByType[unit] {
			report.violate("%s produced: got %d, want %d", unit, got, e.UnitsByType[unit])
		}
	}
	if e.FailedSpawns != nil && stats.FailedSpawns != *e.FailedSpawns {
		report.violate("failed spawns: got %d, want %d", stats.FailedSpawns, *e.FailedSpawns)
	}
	if e.FailedCommits != nil && stats.FailedCommits != *e.FailedCommits {
		report.violate("failed commits: got %d, want %d", stats.FailedCommits, *e.FailedCommits)
	}
	if e.REEConsumed != nil && math.Abs(stats.REEConsumed-*e.REEConsumed) > balanceTolerance {
		report.violate("REE consumed: got %.4f, want %.4f", stats.REEConsumed, *e.REEConsumed)
	}

	factions := make(map[int]bool)
	for id := range e.Factories {
		factions[id] = true
	}
	for id := range e.Balances {
		factions[id] = true
	}
	for id := range e.FailedAttempts {
		factions[id] = true
	}
	for _, id := range e.Eliminated {
		factions[id] = true
	}
	eliminated := make(map[int]bool, len(e.Eliminated))
	for _, id := range e.Eliminated {
		eliminated[id] = true
	}

	for _, id := range sortedKeys(factions) {
		resp, err := r.mediator.Send(ctx, &queries.GetFactionEconomyQuery{FactionID: id})
		if err != nil {
			return err
		}
		econ := resp.(*queries.GetFactionEconomyResponse)
		if want, ok := e.Factories[id]; ok && econ.Factories != want {
			report.violate("faction %d factories: got %d, want %d", id, econ.Factories, want)
		}
		if eliminated[id] && !econ.Eliminated {
			report.violate("faction %d: expected to be eliminated", id)
		}
		if want, ok := e.FailedAttempts[id]; ok && econ.FailedAttempts != want {
			report.violate("faction %d failed attempts: got %d, want %d", id, econ.FailedAttempts, want)
		}
		if want, ok := e.Balances[id]; ok {
			if want.REE != nil && math.Abs(econ.Balance.REE-*want.REE) > balanceTolerance {
				report.violate("faction %d REE: got %.4f, want %.4f", id, econ.Balance.REE, *want.REE)
			}
			if want.Power != nil && math.Abs(econ.Balance.Power-*want.Power) > balanceTolerance {
				report.violate("faction %d power: got %.4f, want %.4f", id, econ.Balance.Power, *want.Power)
			}
		}
	}

	for _, ref := range sortedKeys(e.Queues) {
		view, err := r.view(ctx, ref)
		if err != nil || view == nil {
			report.violate("queue of %s: factory not found", ref)
			continue
		}
		if view.QueueLength != e.Queues[ref] {
			report.violate("queue of %s: got %d, want %d", ref, view.QueueLength, e.Queues[ref])
		}
	}
	for _, ref := range sortedKeys(e.Overclock) {
		view, err := r.view(ctx, ref)
		if err != nil || view == nil {
			report.violate("overclock of %s: factory not found", ref)
			continue
		}
		if view.OverclockState != e.Overclock[ref] {
			report.violate("overclock of %s: got %s, want %s", ref, view.OverclockState, e.Overclock[ref])
		}
	}
	for _, alias := range sortedKeys(e.Sites) {
		if err := r.checkSite(ctx, alias, e.Sites[alias], report); err != nil {
			return err
		}
	}
	return nil
}

// Finalized sites leave the construction registry; they report FINALIZED when a
// factory stands at their position and REMOVED otherwise. Cancelled sites stay
// tracked as STOPPED.
func (r *Runner) checkSite(ctx context.Context, alias string, want SiteExpect, report *Report) error {
	ref, err := r.site(alias)
	if err != nil {
		report.violate("site %s: unknown", alias)
		return nil
	}
	status, progress := "REMOVED", 0.0
	if site, ok := r.world.Construction.Site(ref.id); ok {
		status, progress = string(site.Status()), site.Progress()
	} else {
		view, err := r.factoryAt(ctx, ref)
		if err != nil {
			return err
		}
		if view != nil {
			status, progress = "FINALIZED", 1.0
		}
	}
	if want.Status != "" && status != want.Status {
		report.violate("site %s status: got %s, want %s", alias, status, want.Status)
	}
	if want.Progress != nil && math.Abs(progress-*want.Progress) > balanceTolerance {
		report.violate("site %s progress: got %.4f, want %.4f", alias, progress, *want.Progress)
	}
	return nil
}

func sortedKeys[K int | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
