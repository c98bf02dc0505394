package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	domainProduction "github.com/andrescamacho/rts-production/internal/domain/production"
)

// QueueUnitCommand queues one unit on a factory through the cost validator
type QueueUnitCommand struct {
	FactoryID int64
	UnitType  string
}

// QueueUnitResponse describes the queued job
type QueueUnitResponse struct {
	JobID         int64
	Position      int
	TransactionID string
}

// QueueUnitHandler handles the QueueUnit command
type QueueUnitHandler struct {
	world *appProduction.World
}

func NewQueueUnitHandler(world *appProduction.World) *QueueUnitHandler {
	return &QueueUnitHandler{world: world}
}

// Handle executes the QueueUnit command
func (h *QueueUnitHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*QueueUnitCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *QueueUnitCommand")
	}

	job, err := h.world.Controller.QueueUnit(domainProduction.FactoryID(cmd.FactoryID), cmd.UnitType)
	if err != nil {
		return nil, fmt.Errorf("failed to queue %s on factory %d: %w", cmd.UnitType, cmd.FactoryID, err)
	}
	return &QueueUnitResponse{
		JobID:         int64(job.ID()),
		Position:      job.Position(),
		TransactionID: job.Reservation(),
	}, nil
}

// CancelJobCommand removes a job from a factory queue
type CancelJobCommand struct {
	FactoryID int64
	JobID     int64
}

// CancelJobHandler handles the CancelJob command
type CancelJobHandler struct {
	world *appProduction.World
}

func NewCancelJobHandler(world *appProduction.World) *CancelJobHandler {
	return &CancelJobHandler{world: world}
}

// Handle executes the CancelJob command
func (h *CancelJobHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*CancelJobCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *CancelJobCommand")
	}
	if err := h.world.Controller.CancelJob(domainProduction.FactoryID(cmd.FactoryID), domainProduction.JobID(cmd.JobID)); err != nil {
		return nil, fmt.Errorf("failed to cancel job %d: %w", cmd.JobID, err)
	}
	return nil, nil
}
