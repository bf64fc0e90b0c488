package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"deflect.app/relay/common/id"
	"deflect.app/relay/common/logger"
	"deflect.app/relay/common/metrics"
	"deflect.app/relay/internal/cluster"
	"deflect.app/relay/internal/insight"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/store"
)

const (
	DefaultWindowDays = 90
	// DefaultRunLease bounds how long a crashed worker can hold a run.
	DefaultRunLease = 10 * time.Minute
)

var ErrRunNotFound = errors.New("analysis run not found")

// FAQDrafter turns a quick-win insight into a knowledge-base draft.
type FAQDrafter interface {
	Draft(ctx context.Context, in model.DeflectionInsight) (*model.FAQDraft, error)
}

// AnalysisPublisher announces finished runs to downstream consumers.
type AnalysisPublisher interface {
	PublishAnalysis(ctx context.Context, run *model.AnalysisRun, insights []model.DeflectionInsight) error
}

type AnalysisConfig struct {
	SimilarityThreshold float64
	MinClusterSize      int
	AgentHourlyCost     float64
	FAQProneCategories  []string
	WindowDays          int
	EmbeddingRPS        float64
	EmbeddingDimensions int
	GenerateFAQs        bool
	RunLease            time.Duration
}

// InsightReport is the account-facing view of the latest analysis.
type InsightReport struct {
	Run       *model.AnalysisRun
	Insights  []model.DeflectionInsight
	QuickWins []model.DeflectionInsight
	BigImpact []model.DeflectionInsight
	Summary   insight.Summary
}

type AnalysisService interface {
	// Request records a pending run and enqueues it for the worker. Without
	// a queue the run is only recorded and the caller is expected to Run it.
	Request(ctx context.Context, accountID int64, windowDays int) (*model.AnalysisRun, error)
	// Run claims a recorded run and executes it to completion. A run that is
	// finished or held by another worker is returned untouched.
	Run(ctx context.Context, runID int64) (*model.AnalysisRun, error)
	Report(ctx context.Context, accountID int64) (*InsightReport, error)
}

type AnalysisDeps struct {
	Tickets   store.TicketStore
	Runs      store.AnalysisRunStore
	Insights  store.InsightStore
	TxRunner  TxRunner
	Queue     queue.Producer
	Embedder  cluster.Embedder
	FAQs      FAQDrafter
	Publisher AnalysisPublisher
}

type analysisService struct {
	deps    AnalysisDeps
	cfg     AnalysisConfig
	limiter *rate.Limiter
	now     func() time.Time
}

func NewAnalysisService(deps AnalysisDeps, cfg AnalysisConfig) AnalysisService {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = cluster.DefaultThreshold
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.RunLease <= 0 {
		cfg.RunLease = DefaultRunLease
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = insight.DefaultMinClusterSize
	}
	if cfg.AgentHourlyCost <= 0 {
		cfg.AgentHourlyCost = insight.DefaultAgentHourlyCost
	}

	limit := rate.Inf
	if cfg.EmbeddingRPS > 0 {
		limit = rate.Limit(cfg.EmbeddingRPS)
	}

	return &analysisService{
		deps:    deps,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

func (s *analysisService) Request(ctx context.Context, accountID int64, windowDays int) (*model.AnalysisRun, error) {
	if accountID == 0 {
		return nil, fmt.Errorf("account_id is required")
	}
	if windowDays <= 0 {
		windowDays = s.cfg.WindowDays
	}

	now := s.now()
	run := &model.AnalysisRun{
		AccountID:   accountID,
		WindowStart: now.AddDate(0, 0, -windowDays),
		WindowEnd:   now,
		Status:      model.AnalysisStatusPending,
		StartedAt:   now,
	}
	if err := s.deps.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating analysis run: %w", err)
	}

	if s.deps.Queue == nil {
		return run, nil
	}

	if err := s.deps.Queue.Enqueue(ctx, queue.Task{
		TaskType:   queue.TaskTypePatternAnalysis,
		AccountID:  accountID,
		RunID:      &run.ID,
		WindowDays: windowDays,
		Attempt:    1,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing analysis: %w", err)
	}

	slog.InfoContext(ctx, "analysis requested", "run_id", run.ID, "account_id", accountID, "window_days", windowDays)
	return run, nil
}

func (s *analysisService) Run(ctx context.Context, runID int64) (*model.AnalysisRun, error) {
	run, err := s.deps.Runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("fetching analysis run: %w", err)
	}
	if run.Finished() {
		slog.InfoContext(ctx, "analysis run already finished", "run_id", run.ID, "status", run.Status)
		return run, nil
	}

	claimed, ok, err := s.deps.Runs.Claim(ctx, runID, s.cfg.RunLease)
	if err != nil {
		return nil, fmt.Errorf("claiming analysis run: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "analysis run held by another worker", "run_id", run.ID, "lease_until", run.LeaseUntil)
		return run, nil
	}
	run = claimed

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AccountID: logger.Ptr(run.AccountID),
		RunID:     logger.Ptr(run.ID),
		Component: "deflect.analysis",
	})

	stopRenewing := s.renewLease(ctx, run.ID)
	start := s.now()
	insights, err := s.execute(ctx, run)
	stopRenewing()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysisRuns.WithLabelValues(string(model.AnalysisStatusFailed)).Inc()
		if failErr := s.deps.Runs.Fail(ctx, run.ID, err.Error()); failErr != nil {
			slog.ErrorContext(ctx, "failed to mark analysis run failed", "error", failErr)
		}
		return nil, err
	}
	metrics.AnalysisRuns.WithLabelValues(string(model.AnalysisStatusCompleted)).Inc()
	metrics.InsightsBuilt.Add(float64(len(insights)))

	if s.cfg.GenerateFAQs && s.deps.FAQs != nil {
		s.draftFAQs(ctx, insights)
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishAnalysis(ctx, run, insights); err != nil {
			slog.WarnContext(ctx, "failed to publish analysis event", "error", err)
		}
	}

	slog.InfoContext(ctx, "analysis completed",
		"tickets", run.TicketCount,
		"clusters", run.ClusterCount,
		"insights", run.InsightCount,
		"total_potential_savings", run.TotalPotentialSavings)
	return run, nil
}

// renewLease keeps extending the run's lease until the returned func is called.
func (s *analysisService) renewLease(ctx context.Context, runID int64) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.RunLease / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.deps.Runs.Renew(ctx, runID, s.cfg.RunLease); err != nil && ctx.Err() == nil {
					slog.WarnContext(ctx, "failed to renew analysis run lease", "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *analysisService) execute(ctx context.Context, run *model.AnalysisRun) ([]model.DeflectionInsight, error) {
	tickets, err := s.deps.Tickets.ListForAnalysis(ctx, run.AccountID, run.WindowStart, run.WindowEnd)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}

	if err := s.backfillEmbeddings(ctx, tickets); err != nil {
		return nil, err
	}

	clusters, err := cluster.Cluster(tickets, s.cfg.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("clustering tickets: %w", err)
	}

	insights := insight.Build(clusters, insight.BuildOptions{
		MinClusterSize:     s.cfg.MinClusterSize,
		AgentHourlyCost:    s.cfg.AgentHourlyCost,
		FAQProneCategories: s.cfg.FAQProneCategories,
		AccountID:          run.AccountID,
		RunID:              run.ID,
		Now:                s.now(),
	})
	for i := range insights {
		insights[i].ID = id.New()
	}

	finished := s.now()
	run.Status = model.AnalysisStatusCompleted
	run.TicketCount = len(tickets)
	run.ClusterCount = len(clusters)
	run.InsightCount = len(insights)
	run.TotalPotentialSavings = insight.TotalPotentialSavings(insights)
	run.FinishedAt = &finished

	if err := s.deps.TxRunner.WithTx(ctx, func(sp StoreProvider) error {
		if err := sp.Insights().ReplaceForAccount(ctx, run.AccountID, insights); err != nil {
			return err
		}
		return sp.AnalysisRuns().Complete(ctx, run)
	}); err != nil {
		return nil, fmt.Errorf("saving insights: %w", err)
	}

	return insights, nil
}

// backfillEmbeddings embeds tickets that have no vector yet. A ticket whose
// embedding fails gets a zero vector for this run only and ends up in a
// singleton cluster.
func (s *analysisService) backfillEmbeddings(ctx context.Context, tickets []model.Ticket) error {
	dims := s.cfg.EmbeddingDimensions
	for i := range tickets {
		if n := len(tickets[i].Embedding); n > 0 {
			dims = n
			break
		}
	}

	var failed []int
	for i := range tickets {
		t := &tickets[i]
		if len(t.Embedding) > 0 {
			continue
		}
		if s.deps.Embedder == nil {
			failed = append(failed, i)
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for embedding capacity: %w", err)
		}

		emb, err := s.deps.Embedder.Embed(ctx, t.Text())
		if err != nil {
			slog.WarnContext(ctx, "embedding failed, clustering ticket alone", "ticket_id", t.ID, "error", err)
			failed = append(failed, i)
			continue
		}
		t.Embedding = emb
		if dims == 0 {
			dims = len(emb)
		}
		if err := s.deps.Tickets.SetEmbedding(ctx, t.ID, emb); err != nil {
			slog.WarnContext(ctx, "failed to persist embedding", "ticket_id", t.ID, "error", err)
		}
	}

	if len(failed) > 0 && dims == 0 {
		return fmt.Errorf("no embeddings available for %d tickets", len(failed))
	}
	for _, i := range failed {
		tickets[i].Embedding = make([]float64, dims)
		metrics.EmbeddingFallbacks.Inc()
	}
	return nil
}

func (s *analysisService) draftFAQs(ctx context.Context, insights []model.DeflectionInsight) {
	for _, in := range insight.QuickWins(insights) {
		if _, err := s.deps.FAQs.Draft(ctx, in); err != nil {
			slog.WarnContext(ctx, "faq draft failed", "insight_id", in.ID, "error", err)
		}
	}
}

func (s *analysisService) Report(ctx context.Context, accountID int64) (*InsightReport, error) {
	insights, err := s.deps.Insights.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}

	run, err := s.deps.Runs.LatestByAccount(ctx, accountID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("fetching latest run: %w", err)
	}

	return &InsightReport{
		Run:       run,
		Insights:  insights,
		QuickWins: insight.QuickWins(insights),
		BigImpact: insight.BigImpact(insights),
		Summary:   insight.Summarize(insights),
	}, nil
}
