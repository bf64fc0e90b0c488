package store

import (
	"context"
	"fmt"
	"time"

	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

var ticketColumns = selectColumns([]string{
	"id", "account_id", "subject", "content", "customer_contact", "category",
	"priority", "status", "channel_ref", "embedding", "handle_time_minutes",
	"sentiment", "created_at", "updated_at",
})

type ticketStore struct {
	q db.Querier
}

func newTicketStore(q db.Querier) TicketStore {
	return &ticketStore{q: q}
}

func (s *ticketStore) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	row := s.q.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *ticketStore) Create(ctx context.Context, t *model.Ticket) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = model.TicketStatusOpen
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.AccountID, t.Subject, t.Content, t.CustomerContact, t.Category,
		string(t.Priority), string(t.Status), t.ChannelRef, toVector(t.Embedding),
		t.HandleTimeMinutes, sentimentValue(t.Sentiment), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting ticket: %w", err)
	}
	return nil
}

func (s *ticketStore) UpdateStatus(ctx context.Context, id int64, status model.TicketStatus) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE tickets SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("updating ticket status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ticketStore) SetEmbedding(ctx context.Context, id int64, embedding []float64) error {
	_, err := s.q.Exec(ctx,
		`UPDATE tickets SET embedding = $2, updated_at = now() WHERE id = $1`,
		id, toVector(embedding))
	if err != nil {
		return fmt.Errorf("updating ticket embedding: %w", err)
	}
	return nil
}

func (s *ticketStore) ListForAnalysis(ctx context.Context, accountID int64, since, until time.Time) ([]model.Ticket, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at, id`,
		accountID, since, until)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var (
		t         model.Ticket
		priority  string
		status    string
		embedding *pgvector.Vector
		sentiment *string
	)
	err := row.Scan(
		&t.ID, &t.AccountID, &t.Subject, &t.Content, &t.CustomerContact, &t.Category,
		&priority, &status, &t.ChannelRef, &embedding, &t.HandleTimeMinutes,
		&sentiment, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = model.TicketPriority(priority)
	t.Status = model.TicketStatus(status)
	t.Embedding = fromVector(embedding)
	if sentiment != nil {
		s := model.Sentiment(*sentiment)
		t.Sentiment = &s
	}
	return &t, nil
}

func toVector(v []float64) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	vec := pgvector.NewVector(f)
	return &vec
}

func fromVector(v *pgvector.Vector) []float64 {
	if v == nil {
		return nil
	}
	s := v.Slice()
	out := make([]float64, len(s))
	for i, x := range s {
		out[i] = float64(x)
	}
	return out
}

func sentimentValue(s *model.Sentiment) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
