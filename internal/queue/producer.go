package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.TaskType, err)
	}

	fields := task.Fields()
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.TaskType, err)
	}

	p.logger.InfoContext(ctx, "enqueued task",
		"task_type", task.TaskType,
		"account_id", task.AccountID,
		"message_id", id,
		"attempt", fields["attempt"])
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
