package brain_test

import (
	"context"
	"errors"

	"deflect.app/relay/common/id"
	"deflect.app/relay/common/llm"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/retriever/knowledge"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = BeforeSuite(func() {
	err := id.Init(99)
	Expect(err).NotTo(HaveOccurred())
})

type mockLLMClient struct {
	chatFn    func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	callCount int
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	m.callCount++
	if m.chatFn != nil {
		return m.chatFn(ctx, req, result)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockLLMClient) Model() string {
	return "test-model"
}

type mockLLMEvalStore struct {
	createFn func(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error)
	evals    []*model.LLMEval
}

func (m *mockLLMEvalStore) Create(ctx context.Context, eval *model.LLMEval) (*model.LLMEval, error) {
	m.evals = append(m.evals, eval)
	if m.createFn != nil {
		return m.createFn(ctx, eval)
	}
	return eval, nil
}

func (m *mockLLMEvalStore) ListByTicket(context.Context, int64) ([]model.LLMEval, error) {
	return nil, nil
}

type mockFAQStore struct {
	createFn func(ctx context.Context, draft *model.FAQDraft) error
	drafts   []*model.FAQDraft
}

func (m *mockFAQStore) Create(ctx context.Context, draft *model.FAQDraft) error {
	m.drafts = append(m.drafts, draft)
	if m.createFn != nil {
		return m.createFn(ctx, draft)
	}
	return nil
}

func (m *mockFAQStore) ListByAccount(context.Context, int64) ([]model.FAQDraft, error) {
	return nil, nil
}

type mockKnowledge struct {
	searchFn func(ctx context.Context, accountID int64, query string, limit int) ([]knowledge.Snippet, error)
}

func (m *mockKnowledge) Search(ctx context.Context, accountID int64, query string, limit int) ([]knowledge.Snippet, error) {
	return m.searchFn(ctx, accountID, query, limit)
}

type mockTemplateStore struct {
	listFn func(ctx context.Context, accountID int64, category string, limit int) ([]string, error)
}

func (m *mockTemplateStore) ListByCategory(ctx context.Context, accountID int64, category string, limit int) ([]string, error) {
	return m.listFn(ctx, accountID, category, limit)
}

type mockMessageStore struct {
	listFn func(ctx context.Context, ticketID int64, limit int) ([]model.ConversationTurn, error)
}

func (m *mockMessageStore) ListRecent(ctx context.Context, ticketID int64, limit int) ([]model.ConversationTurn, error) {
	return m.listFn(ctx, ticketID, limit)
}

func strPtr(s string) *string { return &s }
