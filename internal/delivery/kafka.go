// Package delivery publishes routed responses and analysis results to Kafka,
// where channel connectors (e-mail, chat, help desk) pick them up.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboundMessage is the payload connectors send to the customer.
type OutboundMessage struct {
	TicketID         int64     `json:"ticket_id"`
	AccountID        int64     `json:"account_id"`
	ResponseID       int64     `json:"response_id"`
	ChannelRef       *string   `json:"channel_ref,omitempty"`
	CustomerContact  string    `json:"customer_contact"`
	Content          string    `json:"content"`
	Confidence       float64   `json:"confidence"`
	SuggestedActions []string  `json:"suggested_actions,omitempty"`
	QueuedAt         time.Time `json:"queued_at"`
}

// AnalysisEvent announces a completed pattern analysis run.
type AnalysisEvent struct {
	RunID                 int64                     `json:"run_id"`
	AccountID             int64                     `json:"account_id"`
	TicketCount           int                       `json:"ticket_count"`
	ClusterCount          int                       `json:"cluster_count"`
	TotalPotentialSavings float64                   `json:"total_potential_savings"`
	Insights              []model.DeflectionInsight `json:"insights"`
	CompletedAt           time.Time                 `json:"completed_at"`
}

type KafkaPublisher struct {
	responses messageWriter
	insights  messageWriter
	now       func() time.Time
}

// NewKafkaPublisher creates writers for the outbound response topic and the
// analysis events topic.
func NewKafkaPublisher(brokers []string, outboundTopic, insightsTopic string) *KafkaPublisher {
	return newKafkaPublisher(
		&kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        outboundTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		&kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    insightsTopic,
			Balancer: &kafka.LeastBytes{},
		},
	)
}

func newKafkaPublisher(responses, insights messageWriter) *KafkaPublisher {
	return &KafkaPublisher{responses: responses, insights: insights, now: time.Now}
}

var _ deflection.Deliverer = (*KafkaPublisher)(nil)

// Deliver publishes the response keyed by ticket id, so every message for one
// ticket lands on the same partition in order.
func (p *KafkaPublisher) Deliver(ctx context.Context, ticket *model.Ticket, resp *model.CandidateResponse) error {
	msg := OutboundMessage{
		TicketID:         ticket.ID,
		AccountID:        ticket.AccountID,
		ResponseID:       resp.ID,
		ChannelRef:       ticket.ChannelRef,
		CustomerContact:  ticket.CustomerContact,
		Content:          resp.Content,
		Confidence:       resp.Confidence,
		SuggestedActions: resp.SuggestedActions,
		QueuedAt:         p.now(),
	}
	if err := p.write(ctx, p.responses, strconv.FormatInt(ticket.ID, 10), msg); err != nil {
		return fmt.Errorf("publishing response %d: %w", resp.ID, err)
	}

	slog.InfoContext(ctx, "response published", "response_id", resp.ID)
	return nil
}

func (p *KafkaPublisher) PublishAnalysis(ctx context.Context, run *model.AnalysisRun, insights []model.DeflectionInsight) error {
	event := AnalysisEvent{
		RunID:                 run.ID,
		AccountID:             run.AccountID,
		TicketCount:           run.TicketCount,
		ClusterCount:          run.ClusterCount,
		TotalPotentialSavings: run.TotalPotentialSavings,
		Insights:              insights,
		CompletedAt:           p.now(),
	}
	if err := p.write(ctx, p.insights, strconv.FormatInt(run.AccountID, 10), event); err != nil {
		return fmt.Errorf("publishing analysis %d: %w", run.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) write(ctx context.Context, w messageWriter, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data})
}

func (p *KafkaPublisher) Close() error {
	if err := p.responses.Close(); err != nil {
		return err
	}
	return p.insights.Close()
}
