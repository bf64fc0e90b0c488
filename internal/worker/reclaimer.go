package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deflect.app/relay/common/logger"
	"deflect.app/relay/internal/queue"
)

type ReclaimerConfig struct {
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// StaleClaimer takes over messages whose consumer stopped acknowledging them.
type StaleClaimer interface {
	ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Message, error)
}

// Reclaimer periodically claims messages that stayed pending longer than
// MinIdle, which happens when a worker dies between XREADGROUP and XACK,
// and hands them back to the processor.
type Reclaimer struct {
	claimer   StaleClaimer
	cfg       ReclaimerConfig
	processor queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(claimer StaleClaimer, cfg ReclaimerConfig, processor queue.MessageProcessor) *Reclaimer {
	return &Reclaimer{
		claimer:   claimer,
		cfg:       cfg,
		processor: processor,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the reclaimer loop. Blocks until Stop() is called or ctx ends.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "deflect.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if _, err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce performs one reclaim cycle and reports how many messages were
// handed to the processor.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (int, error) {
	messages, err := r.claimer.ClaimStale(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claiming stale messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "found stale pending messages", "count", len(messages))

	for _, msg := range messages {
		msgCtx := logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(msg.ID)})

		start := time.Now()
		if err := r.processor(msgCtx, msg); err != nil {
			// The processor has already requeued or dead-lettered the message.
			slog.WarnContext(msgCtx, "reclaimed message failed", "error", err)
			continue
		}
		slog.InfoContext(msgCtx, "reclaimed message processed",
			"duration_ms", time.Since(start).Milliseconds())
	}

	return len(messages), nil
}
