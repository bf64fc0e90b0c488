package service_test

import (
	"context"
	"time"

	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/service"
	"deflect.app/relay/internal/store"
)

type mockTicketStore struct {
	getByIDFn         func(ctx context.Context, id int64) (*model.Ticket, error)
	createFn          func(ctx context.Context, ticket *model.Ticket) error
	updateStatusFn    func(ctx context.Context, id int64, status model.TicketStatus) error
	listForAnalysisFn func(ctx context.Context, accountID int64, since, until time.Time) ([]model.Ticket, error)
	embeddings        map[int64][]float64
}

func (m *mockTicketStore) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockTicketStore) Create(ctx context.Context, ticket *model.Ticket) error {
	if m.createFn != nil {
		return m.createFn(ctx, ticket)
	}
	return nil
}

func (m *mockTicketStore) UpdateStatus(ctx context.Context, id int64, status model.TicketStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockTicketStore) SetEmbedding(_ context.Context, id int64, embedding []float64) error {
	if m.embeddings == nil {
		m.embeddings = map[int64][]float64{}
	}
	m.embeddings[id] = embedding
	return nil
}

func (m *mockTicketStore) ListForAnalysis(ctx context.Context, accountID int64, since, until time.Time) ([]model.Ticket, error) {
	if m.listForAnalysisFn != nil {
		return m.listForAnalysisFn(ctx, accountID, since, until)
	}
	return nil, nil
}

type mockResponseStore struct {
	createFn   func(ctx context.Context, resp *model.CandidateResponse) error
	latestFn   func(ctx context.Context, ticketID int64) (*model.CandidateResponse, error)
	markedSent []int64
}

func (m *mockResponseStore) Create(ctx context.Context, resp *model.CandidateResponse) error {
	if m.createFn != nil {
		return m.createFn(ctx, resp)
	}
	return nil
}

func (m *mockResponseStore) MarkSent(_ context.Context, id int64) error {
	m.markedSent = append(m.markedSent, id)
	return nil
}

func (m *mockResponseStore) LatestByTicket(ctx context.Context, ticketID int64) (*model.CandidateResponse, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, ticketID)
	}
	return nil, store.ErrNotFound
}

type mockPolicyStore struct {
	getFn    func(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error)
	upserted []*model.DeflectionPolicy
}

func (m *mockPolicyStore) GetByAccount(ctx context.Context, accountID int64) (*model.DeflectionPolicy, error) {
	if m.getFn != nil {
		return m.getFn(ctx, accountID)
	}
	return nil, store.ErrNotFound
}

func (m *mockPolicyStore) Upsert(_ context.Context, policy *model.DeflectionPolicy) error {
	m.upserted = append(m.upserted, policy)
	return nil
}

type mockInsightStore struct {
	replaceFn func(ctx context.Context, accountID int64, insights []model.DeflectionInsight) error
	listFn    func(ctx context.Context, accountID int64) ([]model.DeflectionInsight, error)
	replaced  []model.DeflectionInsight
}

func (m *mockInsightStore) ReplaceForAccount(ctx context.Context, accountID int64, insights []model.DeflectionInsight) error {
	m.replaced = insights
	if m.replaceFn != nil {
		return m.replaceFn(ctx, accountID, insights)
	}
	return nil
}

func (m *mockInsightStore) ListByAccount(ctx context.Context, accountID int64) ([]model.DeflectionInsight, error) {
	if m.listFn != nil {
		return m.listFn(ctx, accountID)
	}
	return nil, nil
}

type mockAnalysisRunStore struct {
	getByIDFn func(ctx context.Context, id int64) (*model.AnalysisRun, error)
	claimFn   func(ctx context.Context, id int64, lease time.Duration) (*model.AnalysisRun, bool, error)
	latestFn  func(ctx context.Context, accountID int64) (*model.AnalysisRun, error)
	created   []*model.AnalysisRun
	completed []*model.AnalysisRun
	failed    map[int64]string
	claims    int
	renewals  int
}

func (m *mockAnalysisRunStore) Create(_ context.Context, run *model.AnalysisRun) error {
	if run.ID == 0 {
		run.ID = int64(1000 + len(m.created))
	}
	m.created = append(m.created, run)
	return nil
}

func (m *mockAnalysisRunStore) GetByID(ctx context.Context, id int64) (*model.AnalysisRun, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

// Claim defaults to handing back the run from GetByID as running.
func (m *mockAnalysisRunStore) Claim(ctx context.Context, id int64, lease time.Duration) (*model.AnalysisRun, bool, error) {
	m.claims++
	if m.claimFn != nil {
		return m.claimFn(ctx, id, lease)
	}
	run, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	run.Status = model.AnalysisStatusRunning
	return run, true, nil
}

func (m *mockAnalysisRunStore) Renew(context.Context, int64, time.Duration) error {
	m.renewals++
	return nil
}

func (m *mockAnalysisRunStore) Complete(_ context.Context, run *model.AnalysisRun) error {
	m.completed = append(m.completed, run)
	return nil
}

func (m *mockAnalysisRunStore) Fail(_ context.Context, id int64, errMsg string) error {
	if m.failed == nil {
		m.failed = map[int64]string{}
	}
	m.failed[id] = errMsg
	return nil
}

func (m *mockAnalysisRunStore) LatestByAccount(ctx context.Context, accountID int64) (*model.AnalysisRun, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, accountID)
	}
	return nil, store.ErrNotFound
}

// mockStoreProvider hands the same mocks to transactional callers.
type mockStoreProvider struct {
	tickets   *mockTicketStore
	responses *mockResponseStore
	insights  *mockInsightStore
	runs      *mockAnalysisRunStore
}

func (p *mockStoreProvider) Tickets() store.TicketStore           { return p.tickets }
func (p *mockStoreProvider) Responses() store.ResponseStore       { return p.responses }
func (p *mockStoreProvider) Insights() store.InsightStore         { return p.insights }
func (p *mockStoreProvider) AnalysisRuns() store.AnalysisRunStore { return p.runs }

type mockTxRunner struct {
	provider *mockStoreProvider
	calls    int
}

func (m *mockTxRunner) WithTx(_ context.Context, fn func(stores service.StoreProvider) error) error {
	m.calls++
	return fn(m.provider)
}

type mockProducer struct {
	enqueueFn func(ctx context.Context, task queue.Task) error
	tasks     []queue.Task
}

func (m *mockProducer) Enqueue(ctx context.Context, task queue.Task) error {
	m.tasks = append(m.tasks, task)
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, task)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float64, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.calls++
	return m.embedFn(ctx, text)
}

type mockFAQDrafter struct {
	drafted []int64
}

func (m *mockFAQDrafter) Draft(_ context.Context, in model.DeflectionInsight) (*model.FAQDraft, error) {
	m.drafted = append(m.drafted, in.ID)
	return &model.FAQDraft{InsightID: in.ID}, nil
}

type mockPublisher struct {
	runs []*model.AnalysisRun
}

func (m *mockPublisher) PublishAnalysis(_ context.Context, run *model.AnalysisRun, _ []model.DeflectionInsight) error {
	m.runs = append(m.runs, run)
	return nil
}

func strPtr(s string) *string { return &s }
