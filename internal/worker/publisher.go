package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/almensu/yanghooAI/internal/worker/domain"
	"github.com/almensu/yanghooAI/shared/rabbitmq"
)

// Publisher sends a message to the job queue.
type Publisher interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// QueueScheduler schedules jobs by publishing them to RabbitMQ for a worker service.
type QueueScheduler struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewQueueScheduler(publisher Publisher, logger *slog.Logger) *QueueScheduler {
	return &QueueScheduler{publisher: publisher, logger: logger}
}

func (s *QueueScheduler) Schedule(ctx context.Context, hashName string) error {
	body, err := json.Marshal(domain.JobMessage{HashName: hashName})
	if err != nil {
		return fmt.Errorf("failed to encode job message: %w", err)
	}

	msg := rabbitmq.Message{ID: hashName, ContentType: rabbitmq.ContentTypeJSON, Body: body}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", hashName, err)
	}

	s.logger.Info("Job published", slog.String("hash_name", hashName))
	return nil
}
