package worker_test

import (
	"context"
	"time"

	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/store"
)

type mockConsumer struct {
	readFn   func(ctx context.Context) ([]queue.Message, error)
	acked    []string
	requeued []string
	dlq      []string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	if m.readFn != nil {
		return m.readFn(ctx)
	}
	return nil, nil
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(_ context.Context, msg queue.Message, _ string) error {
	m.requeued = append(m.requeued, msg.ID)
	return nil
}

func (m *mockConsumer) SendDLQ(_ context.Context, msg queue.Message, _ string) error {
	m.dlq = append(m.dlq, msg.ID)
	return nil
}

type mockTicketStore struct {
	getByIDFn func(ctx context.Context, id int64) (*model.Ticket, error)
}

func (m *mockTicketStore) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockTicketStore) Create(context.Context, *model.Ticket) error { return nil }

func (m *mockTicketStore) UpdateStatus(context.Context, int64, model.TicketStatus) error { return nil }

func (m *mockTicketStore) SetEmbedding(context.Context, int64, []float64) error { return nil }

func (m *mockTicketStore) ListForAnalysis(context.Context, int64, time.Time, time.Time) ([]model.Ticket, error) {
	return nil, nil
}

type mockPipeline struct {
	processFn func(ctx context.Context, ticket *model.Ticket) (*deflection.ProcessingResult, error)
	processed []int64
}

func (m *mockPipeline) Process(ctx context.Context, ticket *model.Ticket) (*deflection.ProcessingResult, error) {
	m.processed = append(m.processed, ticket.ID)
	if m.processFn != nil {
		return m.processFn(ctx, ticket)
	}
	return &deflection.ProcessingResult{Success: true}, nil
}

type mockAnalysis struct {
	runFn func(ctx context.Context, runID int64) (*model.AnalysisRun, error)
	runs  []int64
}

func (m *mockAnalysis) Run(ctx context.Context, runID int64) (*model.AnalysisRun, error) {
	m.runs = append(m.runs, runID)
	if m.runFn != nil {
		return m.runFn(ctx, runID)
	}
	return &model.AnalysisRun{ID: runID, Status: model.AnalysisStatusCompleted}, nil
}

type mockClaimer struct {
	claimFn func(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Message, error)
}

func (m *mockClaimer) ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Message, error) {
	return m.claimFn(ctx, minIdle, count)
}

func int64Ptr(i int64) *int64 { return &i }
