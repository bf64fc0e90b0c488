// Package knowledge searches an account's help-center articles in Typesense
// for snippets the response generator can ground its answer on.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"deflect.app/relay/common/logger"
)

const (
	DefaultLimit = 3

	queryBy       = "title,body"
	maxSnippetLen = 1200
	maxQueryLen   = 500
)

type Snippet struct {
	ID    string
	Title string
	Body  string
}

// String renders the snippet the way prompts include it.
func (s Snippet) String() string {
	if s.Title == "" {
		return s.Body
	}
	return s.Title + "\n" + s.Body
}

type searchFunc func(ctx context.Context, params *api.SearchCollectionParams) (*api.SearchResult, error)

type Retriever struct {
	search searchFunc
}

// New connects to the Typesense collection holding knowledge-base articles.
// Documents carry account_id, title and body fields.
func New(serverURL, apiKey, collection string) *Retriever {
	client := typesense.NewClient(
		typesense.WithServer(serverURL),
		typesense.WithAPIKey(apiKey),
	)
	docs := client.Collection(collection).Documents()
	return &Retriever{search: docs.Search}
}

// Search returns up to limit snippets from the account's articles matching
// query.
func (r *Retriever) Search(ctx context.Context, accountID int64, query string, limit int) ([]Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	res, err := r.search(ctx, &api.SearchCollectionParams{
		Q:        pointer.String(logger.Truncate(query, maxQueryLen)),
		QueryBy:  pointer.String(queryBy),
		FilterBy: pointer.String(fmt.Sprintf("account_id:=%d", accountID)),
		PerPage:  pointer.Int(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("searching knowledge base: %w", err)
	}
	if res == nil || res.Hits == nil {
		return nil, nil
	}

	snippets := make([]Snippet, 0, len(*res.Hits))
	for _, hit := range *res.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		s := Snippet{
			ID:    stringField(doc, "id"),
			Title: stringField(doc, "title"),
			Body:  logger.Truncate(stringField(doc, "body"), maxSnippetLen),
		}
		if s.Body == "" {
			continue
		}
		snippets = append(snippets, s)
	}

	slog.DebugContext(ctx, "knowledge snippets retrieved", "count", len(snippets))
	return snippets, nil
}

func stringField(doc map[string]any, key string) string {
	v, ok := doc[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
