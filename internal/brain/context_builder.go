package brain

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/retriever/knowledge"
	"deflect.app/relay/internal/store"
)

const (
	defaultSnippetLimit  = knowledge.DefaultLimit
	defaultTemplateLimit = 3
	defaultTurnLimit     = 10
)

type KnowledgeSearcher interface {
	Search(ctx context.Context, accountID int64, query string, limit int) ([]knowledge.Snippet, error)
}

// ContextBuilder gathers knowledge snippets, reply templates and recent turns
// for a ticket. Any source may be nil; a failing source contributes nothing.
type ContextBuilder struct {
	knowledge KnowledgeSearcher
	templates store.TemplateStore
	messages  store.MessageStore
}

var _ deflection.ContextSource = (*ContextBuilder)(nil)

func NewContextBuilder(ks KnowledgeSearcher, templates store.TemplateStore, messages store.MessageStore) *ContextBuilder {
	return &ContextBuilder{
		knowledge: ks,
		templates: templates,
		messages:  messages,
	}
}

func (b *ContextBuilder) Gather(ctx context.Context, ticket *model.Ticket) (deflection.SupportingContext, error) {
	var (
		sc        deflection.SupportingContext
		snippets  []knowledge.Snippet
		templates []string
		turns     []model.ConversationTurn
	)

	g, gctx := errgroup.WithContext(ctx)

	if b.knowledge != nil {
		g.Go(func() error {
			var err error
			snippets, err = b.knowledge.Search(gctx, ticket.AccountID, ticket.Text(), defaultSnippetLimit)
			if err != nil {
				slog.WarnContext(gctx, "knowledge search failed, continuing without snippets", "error", err)
				snippets = nil
			}
			return nil
		})
	}

	if b.templates != nil {
		g.Go(func() error {
			var err error
			templates, err = b.templates.ListByCategory(gctx, ticket.AccountID, ticket.CategoryValue(), defaultTemplateLimit)
			if err != nil {
				slog.WarnContext(gctx, "template lookup failed, continuing without templates", "error", err)
				templates = nil
			}
			return nil
		})
	}

	if b.messages != nil {
		g.Go(func() error {
			var err error
			turns, err = b.messages.ListRecent(gctx, ticket.ID, defaultTurnLimit)
			if err != nil {
				slog.WarnContext(gctx, "conversation lookup failed, continuing without history", "error", err)
				turns = nil
			}
			return nil
		})
	}

	_ = g.Wait()

	for _, s := range snippets {
		sc.KnowledgeSnippets = append(sc.KnowledgeSnippets, s.String())
	}
	sc.Templates = templates
	sc.RecentTurns = turns

	slog.DebugContext(ctx, "supporting context gathered",
		"snippets", len(sc.KnowledgeSnippets),
		"templates", len(sc.Templates),
		"turns", len(sc.RecentTurns))

	return sc, nil
}
