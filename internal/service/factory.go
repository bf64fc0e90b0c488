package service

import (
	"log/slog"

	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/store"
)

// Services wires the HTTP-facing services. The worker builds its own
// analysis service with an embedder and publisher attached.
type Services struct {
	stores      *store.Stores
	txRunner    TxRunner
	queue       queue.Producer
	analysisCfg AnalysisConfig
	logger      *slog.Logger
}

func NewServices(stores *store.Stores, txRunner TxRunner, queue queue.Producer, analysisCfg AnalysisConfig, logger *slog.Logger) *Services {
	return &Services{
		stores:      stores,
		txRunner:    txRunner,
		queue:       queue,
		analysisCfg: analysisCfg,
		logger:      logger,
	}
}

func (s *Services) Tickets() TicketService {
	return NewTicketService(s.stores.Tickets(), s.stores.Responses(), s.queue, s.logger)
}

func (s *Services) Policies() PolicyService {
	return NewPolicyService(s.stores.Policies())
}

func (s *Services) Analysis() AnalysisService {
	return NewAnalysisService(AnalysisDeps{
		Tickets:  s.stores.Tickets(),
		Runs:     s.stores.AnalysisRuns(),
		Insights: s.stores.Insights(),
		TxRunner: s.txRunner,
		Queue:    s.queue,
	}, s.analysisCfg)
}
