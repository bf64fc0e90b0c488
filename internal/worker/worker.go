package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deflect.app/relay/common/logger"
	"deflect.app/relay/common/metrics"
	"deflect.app/relay/internal/deflection"
	"deflect.app/relay/internal/model"
	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/store"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer Consumer
	tickets  store.TicketStore
	pipeline TicketProcessor
	analysis AnalysisRunner
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New builds a worker. analysis may be nil, in which case pattern analysis
// tasks are dead-lettered.
func New(consumer Consumer, tickets store.TicketStore, pipeline TicketProcessor, analysis AnalysisRunner, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		tickets:   tickets,
		pipeline:  pipeline,
		analysis:  analysis,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		_ = w.Handle(ctx, msg)
	}
	return nil
}

// Handle processes one message and requeues or dead-letters it on failure.
// Exported so it can be reused by the reclaimer.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	err := w.processMessageSafe(ctx, msg)
	if err == nil {
		metrics.QueueMessages.WithLabelValues(string(msg.TaskType), "ok").Inc()
		return nil
	}

	slog.ErrorContext(ctx, "message processing failed",
		"error", err,
		"message_id", msg.ID,
		"task_type", msg.TaskType)
	w.handleFailedMessage(ctx, msg, err)
	return err
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage dispatches on task type and acks the message once the task
// has completed.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	span := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker."+string(msg.TaskType))
	defer span.End()
	ctx = span.Context()

	taskType := string(msg.TaskType)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AccountID: logger.Ptr(msg.AccountID),
		TicketID:  msg.TicketID,
		RunID:     msg.RunID,
		MessageID: logger.Ptr(msg.ID),
		TaskType:  &taskType,
		Component: "deflect.worker",
	})

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt)

	var err error
	switch msg.TaskType {
	case queue.TaskTypeTicketDeflection:
		err = w.processTicket(ctx, msg)
	case queue.TaskTypePatternAnalysis:
		err = w.processAnalysis(ctx, msg)
	default:
		err = fmt.Errorf("unknown task type %q", msg.TaskType)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Log but don't fail - message will be reclaimed but that's safe
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
	return nil
}

func (w *Worker) processTicket(ctx context.Context, msg queue.Message) error {
	if msg.TicketID == nil {
		return fmt.Errorf("deflection task without ticket_id")
	}

	ticket, err := w.tickets.GetByID(ctx, *msg.TicketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "ticket not found, dropping message")
			return nil
		}
		return fmt.Errorf("loading ticket: %w", err)
	}

	if ticket.Status != model.TicketStatusOpen {
		slog.InfoContext(ctx, "ticket already handled, skipping", "status", ticket.Status)
		return nil
	}

	start := time.Now()
	result, err := w.pipeline.Process(ctx, ticket)
	metrics.ObserveSince(metrics.PipelineDuration, start)
	if err != nil {
		metrics.PipelineOutcomes.WithLabelValues("error").Inc()
		return fmt.Errorf("processing ticket: %w", err)
	}
	metrics.PipelineOutcomes.WithLabelValues(outcomeLabel(result)).Inc()

	slog.InfoContext(ctx, "ticket processed",
		"should_respond", result.ShouldRespond,
		"usage_tracked", result.UsageTracked,
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) processAnalysis(ctx context.Context, msg queue.Message) error {
	if w.analysis == nil {
		return fmt.Errorf("pattern analysis is not configured on this worker")
	}
	if msg.RunID == nil {
		return fmt.Errorf("analysis task without run_id")
	}

	if _, err := w.analysis.Run(ctx, *msg.RunID); err != nil {
		return fmt.Errorf("running analysis: %w", err)
	}
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		metrics.QueueMessages.WithLabelValues(string(msg.TaskType), "dlq").Inc()
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	metrics.QueueMessages.WithLabelValues(string(msg.TaskType), "requeued").Inc()
	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

func outcomeLabel(result *deflection.ProcessingResult) string {
	switch {
	case result.Decision != nil:
		return string(result.Decision.State)
	case !result.Success:
		return "failed"
	default:
		return "skipped"
	}
}
