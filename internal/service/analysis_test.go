package service_test

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/service"
)

func billingTicket(id int64) model.Ticket {
	return model.Ticket{
		ID:              id,
		AccountID:       7,
		Subject:         strPtr("Where is my invoice?"),
		Content:         "I cannot find my invoice for last month",
		CustomerContact: "customer@example.com",
		Category:        strPtr("Billing"),
		Embedding:       []float64{1, 0},
	}
}

var _ = Describe("AnalysisService", func() {
	var (
		ctx       context.Context
		tickets   *mockTicketStore
		runs      *mockAnalysisRunStore
		insights  *mockInsightStore
		producer  *mockProducer
		embedder  *mockEmbedder
		faqs      *mockFAQDrafter
		publisher *mockPublisher
		svc       service.AnalysisService
		run       *model.AnalysisRun
	)

	BeforeEach(func() {
		ctx = context.Background()
		tickets = &mockTicketStore{}
		runs = &mockAnalysisRunStore{}
		insights = &mockInsightStore{}
		producer = &mockProducer{}
		faqs = &mockFAQDrafter{}
		publisher = &mockPublisher{}
		embedder = &mockEmbedder{embedFn: func(_ context.Context, text string) ([]float64, error) {
			if strings.Contains(text, "broken") {
				return nil, errors.New("embedding provider down")
			}
			return []float64{0, 1}, nil
		}}

		now := time.Now()
		run = &model.AnalysisRun{
			ID:          500,
			AccountID:   7,
			WindowStart: now.AddDate(0, 0, -90),
			WindowEnd:   now,
			Status:      model.AnalysisStatusPending,
			StartedAt:   now,
		}
		runs.getByIDFn = func(_ context.Context, id int64) (*model.AnalysisRun, error) {
			if id == run.ID {
				return run, nil
			}
			return nil, errors.New("unexpected run")
		}

		tx := &mockTxRunner{provider: &mockStoreProvider{tickets: tickets, insights: insights, runs: runs}}
		svc = service.NewAnalysisService(service.AnalysisDeps{
			Tickets:   tickets,
			Runs:      runs,
			Insights:  insights,
			TxRunner:  tx,
			Queue:     producer,
			Embedder:  embedder,
			FAQs:      faqs,
			Publisher: publisher,
		}, service.AnalysisConfig{
			SimilarityThreshold: 0.85,
			MinClusterSize:      5,
			AgentHourlyCost:     30,
			GenerateFAQs:        true,
		})
	})

	Describe("Request", func() {
		It("records a pending run and enqueues it", func() {
			created, err := svc.Request(ctx, 7, 30)

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Status).To(Equal(model.AnalysisStatusPending))
			Expect(created.WindowEnd.Sub(created.WindowStart)).To(BeNumerically("~", 30*24*time.Hour, time.Hour))
			Expect(producer.tasks).To(HaveLen(1))
			Expect(producer.tasks[0].TaskType).To(Equal(queue.TaskTypePatternAnalysis))
			Expect(*producer.tasks[0].RunID).To(Equal(created.ID))
			Expect(producer.tasks[0].WindowDays).To(Equal(30))
		})

		It("uses the configured window by default", func() {
			_, err := svc.Request(ctx, 7, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(producer.tasks[0].WindowDays).To(Equal(service.DefaultWindowDays))
		})

		It("only records the run when no queue is configured", func() {
			local := service.NewAnalysisService(service.AnalysisDeps{Runs: runs}, service.AnalysisConfig{})

			created, err := local.Request(ctx, 7, 14)

			Expect(err).NotTo(HaveOccurred())
			Expect(runs.created).To(ContainElement(created))
			Expect(producer.tasks).To(BeEmpty())
		})
	})

	Describe("Run", func() {
		BeforeEach(func() {
			tickets.listForAnalysisFn = func(_ context.Context, accountID int64, since, until time.Time) ([]model.Ticket, error) {
				Expect(accountID).To(Equal(int64(7)))
				Expect(since).To(Equal(run.WindowStart))
				Expect(until).To(Equal(run.WindowEnd))

				out := []model.Ticket{
					billingTicket(1), billingTicket(2), billingTicket(3), billingTicket(4), billingTicket(5),
					{ID: 6, AccountID: 7, Content: "How do I change my email?", Category: strPtr("account")},
					{ID: 7, AccountID: 7, Content: "broken upload"},
				}
				return out, nil
			}
		})

		It("clusters the window and stores insights", func() {
			finished, err := svc.Run(ctx, run.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(finished.Status).To(Equal(model.AnalysisStatusCompleted))
			Expect(finished.TicketCount).To(Equal(7))
			Expect(finished.ClusterCount).To(Equal(3))
			Expect(finished.InsightCount).To(Equal(1))
			Expect(finished.FinishedAt).NotTo(BeNil())

			Expect(insights.replaced).To(HaveLen(1))
			in := insights.replaced[0]
			Expect(in.ID).NotTo(BeZero())
			Expect(in.Category).To(Equal("billing"))
			Expect(in.TicketCount).To(Equal(5))
			Expect(in.RunID).To(Equal(run.ID))
			Expect(runs.completed).To(ConsistOf(run))
		})

		It("persists fresh embeddings and tolerates embedding failures", func() {
			_, err := svc.Run(ctx, run.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(embedder.calls).To(Equal(2))
			Expect(tickets.embeddings).To(HaveKeyWithValue(int64(6), []float64{0, 1}))
			Expect(tickets.embeddings).NotTo(HaveKey(int64(7)))
		})

		It("drafts FAQs for quick wins and publishes the run", func() {
			_, err := svc.Run(ctx, run.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(faqs.drafted).To(HaveLen(1))
			Expect(faqs.drafted[0]).To(Equal(insights.replaced[0].ID))
			Expect(publisher.runs).To(HaveLen(1))
		})

		It("marks the run failed when clustering input is inconsistent", func() {
			tickets.listForAnalysisFn = func(context.Context, int64, time.Time, time.Time) ([]model.Ticket, error) {
				return []model.Ticket{
					{ID: 1, Embedding: []float64{1, 0}},
					{ID: 2, Embedding: []float64{1, 0, 0}},
				}, nil
			}

			_, err := svc.Run(ctx, run.ID)

			Expect(err).To(MatchError(ContainSubstring("clustering tickets")))
			Expect(runs.failed).To(HaveKey(run.ID))
			Expect(insights.replaced).To(BeNil())
			Expect(publisher.runs).To(BeEmpty())
		})

		It("returns finished runs untouched", func() {
			run.Status = model.AnalysisStatusCompleted

			finished, err := svc.Run(ctx, run.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(finished).To(BeIdenticalTo(run))
			Expect(embedder.calls).To(BeZero())
			Expect(runs.claims).To(BeZero())
		})

		It("claims the run under the default lease before executing", func() {
			var lease time.Duration
			runs.claimFn = func(_ context.Context, id int64, l time.Duration) (*model.AnalysisRun, bool, error) {
				lease = l
				run.Status = model.AnalysisStatusRunning
				return run, true, nil
			}

			_, err := svc.Run(ctx, run.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(lease).To(Equal(service.DefaultRunLease))
			Expect(runs.completed).To(ConsistOf(run))
		})

		It("does nothing when another worker holds the run", func() {
			run.Status = model.AnalysisStatusRunning
			runs.claimFn = func(context.Context, int64, time.Duration) (*model.AnalysisRun, bool, error) {
				return nil, false, nil
			}

			held, err := svc.Run(ctx, run.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(held).To(BeIdenticalTo(run))
			Expect(embedder.calls).To(BeZero())
			Expect(insights.replaced).To(BeNil())
			Expect(runs.completed).To(BeEmpty())
			Expect(faqs.drafted).To(BeEmpty())
			Expect(publisher.runs).To(BeEmpty())
		})

		It("surfaces claim failures without executing", func() {
			runs.claimFn = func(context.Context, int64, time.Duration) (*model.AnalysisRun, bool, error) {
				return nil, false, errors.New("connection reset")
			}

			_, err := svc.Run(ctx, run.ID)

			Expect(err).To(MatchError(ContainSubstring("claiming analysis run")))
			Expect(embedder.calls).To(BeZero())
			Expect(runs.failed).To(BeEmpty())
		})

		It("renews the lease while a long run is executing", func() {
			slow := tickets.listForAnalysisFn
			tickets.listForAnalysisFn = func(ctx context.Context, accountID int64, since, until time.Time) ([]model.Ticket, error) {
				time.Sleep(60 * time.Millisecond)
				return slow(ctx, accountID, since, until)
			}
			leased := service.NewAnalysisService(service.AnalysisDeps{
				Tickets:  tickets,
				Runs:     runs,
				Insights: insights,
				TxRunner: &mockTxRunner{provider: &mockStoreProvider{tickets: tickets, insights: insights, runs: runs}},
				Embedder: embedder,
			}, service.AnalysisConfig{MinClusterSize: 5, AgentHourlyCost: 30, RunLease: 30 * time.Millisecond})

			_, err := leased.Run(ctx, run.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(runs.renewals).To(BeNumerically(">=", 1))
		})
	})

	Describe("Report", func() {
		It("summarizes the stored insights", func() {
			insights.listFn = func(context.Context, int64) ([]model.DeflectionInsight, error) {
				return []model.DeflectionInsight{
					{ID: 1, TicketCount: 12, AnnualCost: 20000, MonthlyCost: 1667, DeflectionPotential: 80,
						ImplementationDifficulty: model.DifficultyEasy, Priority: model.InsightPriorityHigh},
					{ID: 2, TicketCount: 6, AnnualCost: 500, MonthlyCost: 42, DeflectionPotential: 40,
						ImplementationDifficulty: model.DifficultyHard, Priority: model.InsightPriorityLow},
				}, nil
			}

			report, err := svc.Report(ctx, 7)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Run).To(BeNil())
			Expect(report.Summary.Insights).To(Equal(2))
			Expect(report.Summary.Tickets).To(Equal(18))
			Expect(report.Summary.TotalPotentialSavings).To(BeNumerically("~", 16200, 0.001))
			Expect(report.QuickWins).To(HaveLen(1))
			Expect(report.BigImpact).To(HaveLen(1))
			Expect(report.Summary.HighPriority).To(Equal(1))
		})
	})
})
