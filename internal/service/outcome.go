package service

import (
	"context"
	"fmt"

	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/store"
)

// OutcomeRecorder writes a routed response and the ticket's terminal status
// in one transaction.
type OutcomeRecorder struct {
	txRunner  TxRunner
	responses store.ResponseStore
}

var _ deflection.OutcomeStore = (*OutcomeRecorder)(nil)

func NewOutcomeRecorder(txRunner TxRunner, responses store.ResponseStore) *OutcomeRecorder {
	return &OutcomeRecorder{txRunner: txRunner, responses: responses}
}

func (r *OutcomeRecorder) SaveOutcome(ctx context.Context, resp *model.CandidateResponse, status model.TicketStatus) error {
	return r.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if err := sp.Responses().Create(ctx, resp); err != nil {
			return fmt.Errorf("creating response: %w", err)
		}
		if err := sp.Tickets().UpdateStatus(ctx, resp.TicketID, status); err != nil {
			return fmt.Errorf("updating ticket status: %w", err)
		}
		return nil
	})
}

func (r *OutcomeRecorder) MarkSent(ctx context.Context, responseID int64) error {
	return r.responses.MarkSent(ctx, responseID)
}
