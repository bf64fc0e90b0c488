package brain_test

import (
	"context"
	"errors"

	"deflect.app/relay/common/llm"
	"deflect.app/relay/internal/brain"
	"deflect.app/relay/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FAQWriter", func() {
	var (
		ctx       context.Context
		mockLLM   *mockLLMClient
		faqs      *mockFAQStore
		evalStore *mockLLMEvalStore
		writer    *brain.FAQWriter
		insight   model.DeflectionInsight
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockLLM = &mockLLMClient{}
		faqs = &mockFAQStore{}
		evalStore = &mockLLMEvalStore{}
		writer = brain.NewFAQWriter(mockLLM, faqs, evalStore)
		insight = model.DeflectionInsight{
			ID:               55,
			AccountID:        7,
			Category:         "billing",
			Keywords:         []string{"invoice", "download"},
			TicketCount:      12,
			ExampleQuestions: []string{"Where is my invoice?", "How do I download invoices?"},
		}
	})

	It("drafts and stores an article", func() {
		var captured llm.Request
		mockLLM.chatFn = func(ctx context.Context, r llm.Request, result any) (*llm.Response, error) {
			captured = r
			return respondWith(`{"title":"Downloading invoices","body":"1. Open Billing.","questions":["Where are invoices?"]}`,
				&llm.Response{PromptTokens: 100, CompletionTokens: 50})(ctx, r, result)
		}

		draft, err := writer.Draft(ctx, insight)

		Expect(err).NotTo(HaveOccurred())
		Expect(draft.InsightID).To(Equal(int64(55)))
		Expect(draft.AccountID).To(Equal(int64(7)))
		Expect(draft.Title).To(Equal("Downloading invoices"))
		Expect(draft.ID).NotTo(BeZero())
		Expect(faqs.drafts).To(HaveLen(1))
		Expect(evalStore.evals).To(HaveLen(1))
		Expect(evalStore.evals[0].Stage).To(Equal("faq"))
		Expect(captured.UserPrompt).To(ContainSubstring("Where is my invoice?"))
	})

	It("rejects insights without example questions", func() {
		insight.ExampleQuestions = nil

		_, err := writer.Draft(ctx, insight)

		Expect(err).To(HaveOccurred())
		Expect(mockLLM.callCount).To(Equal(0))
	})

	It("does not retry client errors", func() {
		mockLLM.chatFn = func(ctx context.Context, _ llm.Request, _ any) (*llm.Response, error) {
			return nil, context.Canceled
		}

		_, err := writer.Draft(ctx, insight)

		Expect(err).To(MatchError(ContainSubstring("drafting faq")))
		Expect(mockLLM.callCount).To(Equal(1))
		Expect(faqs.drafts).To(BeEmpty())
	})

	It("fails on an empty draft", func() {
		mockLLM.chatFn = respondWith(`{"title":"","body":"","questions":[]}`, &llm.Response{})

		_, err := writer.Draft(ctx, insight)

		Expect(err).To(MatchError(ContainSubstring("came back empty")))
		Expect(faqs.drafts).To(BeEmpty())
	})

	It("surfaces storage failures", func() {
		faqs.createFn = func(context.Context, *model.FAQDraft) error { return errors.New("db down") }
		mockLLM.chatFn = respondWith(`{"title":"T","body":"B","questions":[]}`, &llm.Response{})

		_, err := writer.Draft(ctx, insight)

		Expect(err).To(MatchError(ContainSubstring("storing faq draft")))
	})
})
