package store

import (
	"errors"
	"strings"

	"deflect.app/relay/core/db"
	"github.com/jackc/pgx/v5"
)

// Stores hands out entity stores bound to one Querier, which is either the
// pool or an open transaction.
type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Tickets() TicketStore {
	return newTicketStore(s.q)
}

func (s *Stores) Policies() PolicyStore {
	return newPolicyStore(s.q)
}

func (s *Stores) Responses() ResponseStore {
	return newResponseStore(s.q)
}

func (s *Stores) Insights() InsightStore {
	return newInsightStore(s.q)
}

func (s *Stores) AnalysisRuns() AnalysisRunStore {
	return newAnalysisRunStore(s.q)
}

func (s *Stores) FAQs() FAQStore {
	return newFAQStore(s.q)
}

func (s *Stores) LLMEvals() LLMEvalStore {
	return newLLMEvalStore(s.q)
}

func (s *Stores) Templates() TemplateStore {
	return newTemplateStore(s.q)
}

func (s *Stores) Messages() MessageStore {
	return newMessageStore(s.q)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// selectColumns renders a column list for SELECT and RETURNING clauses.
func selectColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
