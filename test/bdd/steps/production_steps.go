package steps

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

const stepTolerance = 1e-3

// productionContext drives a single factory against a hand-held faction budget
type productionContext struct {
	factory *production.Factory

	ree   float64
	power float64
	spent float64

	completed    []*production.ProductionJob
	raised       []events.Event
	queueErr     error
	overclockErr error
}

func (pc *productionContext) reset() {
	pc.factory = nil
	pc.ree = 0
	pc.power = 0
	pc.spent = 0
	pc.completed = nil
	pc.raised = nil
	pc.queueErr = nil
	pc.overclockErr = nil
}

// Given steps

func (pc *productionContext) aFactoryOwnedByFaction(factoryType string, faction int, instantRamp string) error {
	ft, err := catalog.ParseFactoryType(factoryType)
	if err != nil {
		return err
	}
	factionID, err := shared.NewFactionID(faction)
	if err != nil {
		return err
	}
	cfg := production.DefaultFactoryConfig()
	if instantRamp != "" {
		cfg.Overclock.RampRate = 0
	}
	f, err := production.NewFactory(1, ft, factionID, shared.NewVector3(0, 0, 0), "", catalog.Default(), cfg)
	if err != nil {
		return err
	}
	pc.factory = f
	return nil
}

func (pc *productionContext) theFactionHasREEAndPower(ree, power float64) error {
	pc.ree = ree
	pc.power = power
	return nil
}

func (pc *productionContext) iQueueAUnit(unitType string) error {
	if pc.factory == nil {
		return fmt.Errorf("no factory available")
	}
	_, err := pc.factory.QueueUnit(unitType)
	return err
}

func (pc *productionContext) iTryToQueueAUnit(unitType string) error {
	if pc.factory == nil {
		return fmt.Errorf("no factory available")
	}
	_, pc.queueErr = pc.factory.QueueUnit(unitType)
	return nil
}

// When steps

func (pc *productionContext) theFactoryRunsTicks(ticks int, delta float64) error {
	if pc.factory == nil {
		return fmt.Errorf("no factory available")
	}
	for i := 0; i < ticks; i++ {
		result := pc.factory.Process(delta, pc.ree, pc.power)
		pc.ree = math.Max(0, pc.ree-result.REEConsumed)
		pc.power = math.Max(0, pc.power-result.PowerConsumed)
		pc.spent += result.REEConsumed
		pc.completed = append(pc.completed, result.Completed...)
		pc.raised = append(pc.raised, result.Events...)
	}
	return nil
}

func (pc *productionContext) theFactionRunsOutOfResources() error {
	pc.ree = 0
	pc.power = 0
	return nil
}

func (pc *productionContext) iSetTheOverclockTarget(target float64) error {
	raised, err := pc.factory.SetOverclockTarget(target)
	if err != nil {
		return err
	}
	pc.raised = append(pc.raised, raised...)
	return nil
}

func (pc *productionContext) iTryToSetTheOverclockTarget(target float64) error {
	_, pc.overclockErr = pc.factory.SetOverclockTarget(target)
	return nil
}

// Then steps

func (pc *productionContext) jobsHaveCompleted(n int) error {
	if len(pc.completed) != n {
		return fmt.Errorf("expected %d completed jobs, got %d", n, len(pc.completed))
	}
	return nil
}

func (pc *productionContext) theFactionHasSpentREE(ree float64) error {
	if math.Abs(pc.spent-ree) > stepTolerance {
		return fmt.Errorf("expected %.3f REE spent, got %.3f", ree, pc.spent)
	}
	return nil
}

func (pc *productionContext) theFactoryQueueIsEmpty() error {
	if !pc.factory.Queue().IsEmpty() {
		return fmt.Errorf("expected empty queue, got %d jobs", pc.factory.Queue().Len())
	}
	return nil
}

func (pc *productionContext) theFactoryRaisedEvents(n int, eventType string) error {
	count := 0
	for _, e := range pc.raised {
		if e.Type == events.EventType(eventType) {
			count++
		}
	}
	if count != n {
		return fmt.Errorf("expected %d %s events, got %d", n, eventType, count)
	}
	return nil
}

func (pc *productionContext) theHeadJobIs(unitType, state string, progress float64) error {
	return assertJob(pc.factory.CurrentJob(), "head", unitType, state, progress)
}

func (pc *productionContext) theLastJobIs(unitType, state string, progress float64) error {
	jobs := pc.factory.QueuedJobs()
	if len(jobs) == 0 {
		return fmt.Errorf("queue is empty")
	}
	return assertJob(jobs[len(jobs)-1], "last", unitType, state, progress)
}

func assertJob(job *production.ProductionJob, which, unitType, state string, progress float64) error {
	if job == nil {
		return fmt.Errorf("no %s job", which)
	}
	if job.UnitType() != unitType {
		return fmt.Errorf("expected %s job to be %s, got %s", which, unitType, job.UnitType())
	}
	if string(job.State()) != state {
		return fmt.Errorf("expected %s job in state %s, got %s", which, state, job.State())
	}
	if math.Abs(job.Progress()-progress) > stepTolerance {
		return fmt.Errorf("expected %s job progress %.3f, got %.3f", which, progress, job.Progress())
	}
	return nil
}

func (pc *productionContext) queueingFailsWithErrorContaining(fragment string) error {
	return expectErrorContaining(pc.queueErr, fragment)
}

func (pc *productionContext) theFactoryIsInStateWithHeat(state string, heat float64) error {
	if string(pc.factory.OverclockState()) != state {
		return fmt.Errorf("expected overclock state %s, got %s", state, pc.factory.OverclockState())
	}
	if math.Abs(pc.factory.Overclock().Heat()-heat) > stepTolerance {
		return fmt.Errorf("expected heat %.1f, got %.3f", heat, pc.factory.Overclock().Heat())
	}
	return nil
}

func (pc *productionContext) theEffectiveSpeedIs(speed float64) error {
	if math.Abs(pc.factory.EffectiveSpeed()-speed) > stepTolerance {
		return fmt.Errorf("expected effective speed %.2f, got %.3f", speed, pc.factory.EffectiveSpeed())
	}
	return nil
}

func (pc *productionContext) theOverclockChangeFailsWithErrorContaining(fragment string) error {
	return expectErrorContaining(pc.overclockErr, fragment)
}

func expectErrorContaining(err error, fragment string) error {
	if err == nil {
		return fmt.Errorf("expected an error containing %q, got none", fragment)
	}
	if !strings.Contains(err.Error(), fragment) {
		return fmt.Errorf("expected error containing %q, got %q", fragment, err.Error())
	}
	return nil
}

func InitializeProductionScenario(ctx *godog.ScenarioContext) {
	pc := &productionContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		pc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a "([^"]*)" factory owned by faction (\d+)( with an instant overclock ramp)?$`, pc.aFactoryOwnedByFaction)
	ctx.Step(`^the faction has (\d+(?:\.\d+)?) REE and (\d+(?:\.\d+)?) power$`, pc.theFactionHasREEAndPower)
	ctx.Step(`^I queue a "([^"]*)" on the factory$`, pc.iQueueAUnit)
	ctx.Step(`^I try to queue a "([^"]*)" on the factory$`, pc.iTryToQueueAUnit)

	// When steps
	ctx.Step(`^the factory runs (\d+) ticks? of (\d+(?:\.\d+)?) seconds$`, pc.theFactoryRunsTicks)
	ctx.Step(`^the faction runs out of resources$`, pc.theFactionRunsOutOfResources)
	ctx.Step(`^I set the overclock target to (\d+(?:\.\d+)?)$`, pc.iSetTheOverclockTarget)
	ctx.Step(`^I try to set the overclock target to (\d+(?:\.\d+)?)$`, pc.iTryToSetTheOverclockTarget)

	// Then steps
	ctx.Step(`^(\d+) jobs? (?:has|have) completed$`, pc.jobsHaveCompleted)
	ctx.Step(`^the faction has spent (\d+(?:\.\d+)?) REE$`, pc.theFactionHasSpentREE)
	ctx.Step(`^the factory queue is empty$`, pc.theFactoryQueueIsEmpty)
	ctx.Step(`^the factory raised (\d+) "([^"]*)" events?$`, pc.theFactoryRaisedEvents)
	ctx.Step(`^the head job is a "([^"]*)" in state "([^"]*)" with progress (\d+(?:\.\d+)?)$`, pc.theHeadJobIs)
	ctx.Step(`^the last job is a "([^"]*)" in state "([^"]*)" with progress (\d+(?:\.\d+)?)$`, pc.theLastJobIs)
	ctx.Step(`^queueing fails with an error containing "([^"]*)"$`, pc.queueingFailsWithErrorContaining)
	ctx.Step(`^the factory is "([^"]*)" with heat (\d+(?:\.\d+)?)$`, pc.theFactoryIsInStateWithHeat)
	ctx.Step(`^the effective speed is (\d+(?:\.\d+)?)$`, pc.theEffectiveSpeedIs)
	ctx.Step(`^the overclock change fails with an error containing "([^"]*)"$`, pc.theOverclockChangeFailsWithErrorContaining)
}
