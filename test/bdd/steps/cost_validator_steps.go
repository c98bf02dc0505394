package steps

import (
	"context"
	"fmt"
	"math"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

type costValidatorContext struct {
	resources *ledger.InMemoryLedger
	validator *ledger.ProductionCostValidator
	recorder  *events.Recorder

	lastID  ledger.TransactionID
	lastErr error
}

func (cv *costValidatorContext) reset() {
	cv.resources = nil
	cv.validator = nil
	cv.recorder = nil
	cv.lastID = ledger.TransactionID{}
	cv.lastErr = nil
}

// Given steps

func (cv *costValidatorContext) aCostValidatorOverTheDefaultCatalog() error {
	cv.resources = ledger.NewInMemoryLedger(0)
	cv.recorder = events.NewRecorder()
	cv.validator = ledger.NewProductionCostValidator(catalog.Default(), cv.resources, ledger.WithPublisher(cv.recorder))
	return nil
}

func (cv *costValidatorContext) factionHoldsREE(faction int, ree float64) error {
	factionID, err := shared.NewFactionID(faction)
	if err != nil {
		return err
	}
	return cv.resources.Deposit(factionID, ree, 0)
}

func (cv *costValidatorContext) factionHasACostModifierOf(faction int, modifier float64) error {
	return cv.validator.SetFactionModifier(shared.MustNewFactionID(faction), modifier)
}

// When steps

func (cv *costValidatorContext) factionBeginsProductionOf(faction int, unitType string) error {
	cv.lastID, cv.lastErr = cv.validator.BeginProduction(shared.MustNewFactionID(faction), unitType)
	return nil
}

func (cv *costValidatorContext) theTransactionIsCommitted() error {
	return cv.validator.CommitProduction(cv.lastID)
}

// Then steps

func (cv *costValidatorContext) theTransactionIDIs(validity string) error {
	switch validity {
	case "valid":
		if cv.lastID.IsZero() {
			return fmt.Errorf("expected a valid transaction id, reservation failed: %v", cv.lastErr)
		}
	case "invalid":
		if !cv.lastID.IsZero() {
			return fmt.Errorf("expected an invalid transaction id, got %s", cv.lastID)
		}
		if cv.lastErr == nil {
			return fmt.Errorf("expected the denial to return an error")
		}
	}
	return nil
}

func (cv *costValidatorContext) aDenialWasPublishedWith(available, requested float64) error {
	denial, ok := cv.recorder.Last(events.EventProductionDenied)
	if !ok {
		return fmt.Errorf("no %s event was published", events.EventProductionDenied)
	}
	if math.Abs(denial.Available-available) > stepTolerance || math.Abs(denial.Requested-requested) > stepTolerance {
		return fmt.Errorf("expected denial available=%.2f requested=%.2f, got available=%.2f requested=%.2f",
			available, requested, denial.Available, denial.Requested)
	}
	return nil
}

func (cv *costValidatorContext) thereArePendingTransactions(n int) error {
	if got := cv.validator.PendingCount(); got != n {
		return fmt.Errorf("expected %d pending transactions, got %d", n, got)
	}
	return nil
}

func (cv *costValidatorContext) cancellingTransactionReturns(id, expected string) error {
	txID, err := ledger.NewTransactionIDFromString(id)
	if err != nil {
		return err
	}
	return expectBool(cv.validator.CancelProduction(txID), expected == "true", "cancel")
}

func (cv *costValidatorContext) cancellingTheTransactionReturns(expected string) error {
	return expectBool(cv.validator.CancelProduction(cv.lastID), expected == "true", "cancel")
}

func (cv *costValidatorContext) factionHasSpendableREE(faction int, ree float64) error {
	got := cv.validator.SpendableREE(shared.MustNewFactionID(faction))
	if math.Abs(got-ree) > stepTolerance {
		return fmt.Errorf("expected %.2f spendable REE, got %.2f", ree, got)
	}
	return nil
}

func (cv *costValidatorContext) factionHoldsREEInTheLedger(faction int, ree float64) error {
	got := cv.resources.Available(shared.MustNewFactionID(faction)).REE
	if math.Abs(got-ree) > stepTolerance {
		return fmt.Errorf("expected ledger balance %.2f REE, got %.2f", ree, got)
	}
	return nil
}

func (cv *costValidatorContext) factionHasSuccessfulProductionRecorded(faction, n int) error {
	if got := cv.validator.Analytics(shared.MustNewFactionID(faction)).UnitsProduced; got != n {
		return fmt.Errorf("expected %d successful productions, got %d", n, got)
	}
	return nil
}

func expectBool(got, want bool, what string) error {
	if got != want {
		return fmt.Errorf("expected %s to return %t, got %t", what, want, got)
	}
	return nil
}

func InitializeCostValidatorScenario(ctx *godog.ScenarioContext) {
	cv := &costValidatorContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		cv.reset()
		return ctx, nil
	})

	ctx.Step(`^a cost validator over the default catalog$`, cv.aCostValidatorOverTheDefaultCatalog)
	ctx.Step(`^faction (\d+) holds (\d+(?:\.\d+)?) REE$`, cv.factionHoldsREE)
	ctx.Step(`^faction (\d+) has a cost modifier of (\d+(?:\.\d+)?)$`, cv.factionHasACostModifierOf)

	ctx.Step(`^faction (\d+) begins production of a "([^"]*)"$`, cv.factionBeginsProductionOf)
	ctx.Step(`^the transaction is committed$`, cv.theTransactionIsCommitted)

	ctx.Step(`^the transaction id is (valid|invalid)$`, cv.theTransactionIDIs)
	ctx.Step(`^a denial was published with available (\d+(?:\.\d+)?) and requested (\d+(?:\.\d+)?)$`, cv.aDenialWasPublishedWith)
	ctx.Step(`^there are (\d+) pending transactions?$`, cv.thereArePendingTransactions)
	ctx.Step(`^cancelling transaction "([^"]*)" returns (true|false)$`, cv.cancellingTransactionReturns)
	ctx.Step(`^cancelling the transaction returns (true|false)$`, cv.cancellingTheTransactionReturns)
	ctx.Step(`^faction (\d+) has (\d+(?:\.\d+)?) spendable REE$`, cv.factionHasSpendableREE)
	ctx.Step(`^faction (\d+) holds (\d+(?:\.\d+)?) REE in the ledger$`, cv.factionHoldsREEInTheLedger)
	ctx.Step(`^faction (\d+) has (\d+) successful productions? recorded$`, cv.factionHasSuccessfulProductionRecorded)
}
