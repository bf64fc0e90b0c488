package worker

import (
	"context"

	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// TicketProcessor runs the deflection pipeline for one ticket.
type TicketProcessor interface {
	Process(ctx context.Context, ticket *model.Ticket) (*deflection.ProcessingResult, error)
}

// AnalysisRunner executes a recorded pattern analysis run.
type AnalysisRunner interface {
	Run(ctx context.Context, runID int64) (*model.AnalysisRun, error)
}
