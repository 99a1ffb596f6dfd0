package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/almensu/yanghooAI/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	logger := w.logger.With(slog.String("worker_name", workerName))
	logger.Debug("Worker goroutine started")

	for {
		select {
		case <-w.stopChan:
			logger.Debug("Worker goroutine stopping - stopChan closed")
			return

		case <-ctx.Done():
			logger.Debug("Worker goroutine stopping - context canceled")
			return

		case msg := <-w.jobsChan:
			logger.Info("Worker received job",
				slog.String("hash_name", msg.HashName),
				slog.Uint64("delivery_tag", msg.DeliveryTag),
			)

			err := w.processJob(ctx, msg)
			if err != nil {
				logger.Error("Job processing failed",
					slog.String("hash_name", msg.HashName),
					slog.Any("error", err),
				)
			}
			settle(logger, msg, err)
		}
	}
}

// settle acks or nacks a broker delivery. A nack without requeue routes the message to
// the dead-letter queue when one is declared. In-process jobs have nothing to settle.
func settle(logger *slog.Logger, msg *domain.JobMessage, jobErr error) {
	if msg.Acknowledger == nil {
		return
	}
	logger = logger.With(slog.String("hash_name", msg.HashName))

	if jobErr == nil {
		if err := msg.Acknowledger.Ack(msg.DeliveryTag, false); err != nil {
			logger.Error("Failed to ACK message", slog.Any("error", err))
		}
		return
	}

	requeue := shouldRequeueJob(jobErr)
	if err := msg.Acknowledger.Nack(msg.DeliveryTag, false, requeue); err != nil {
		logger.Error("Failed to NACK message", slog.Any("error", err))
		return
	}
	if requeue {
		logger.Info("Message requeued")
	} else {
		logger.Warn("Message rejected", slog.Bool("invalid_payload", errors.Is(jobErr, domain.ErrInvalidPayload)))
	}
}

// shouldRequeueJob determines if a job should be requeued based on the error type
func shouldRequeueJob(err error) bool {
	if errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}

	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
