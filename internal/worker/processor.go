package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appdomain "github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/worker/domain"
)

// processJob advances one job and classifies the outcome for the ack decision.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, msg.HashName, heartbeatDone)
	defer close(heartbeatDone)

	started := time.Now()
	err := w.runner.Advance(jobCtx, msg.HashName)
	if err == nil {
		w.logger.Info("Job advanced",
			slog.String("hash_name", msg.HashName),
			slog.Duration("duration", time.Since(started)),
		)
		return nil
	}

	return classify(ctx, err)
}

// classify maps a runner error onto the queue's retry semantics. Stage failures stay
// where they stopped until resumed; only contention and shutdown are retried.
func classify(ctx context.Context, err error) error {
	var validationErr *appdomain.ValidationError
	switch {
	case errors.As(err, &validationErr), errors.Is(err, appdomain.ErrJobNotFound):
		return fmt.Errorf("%w: %w", domain.ErrInvalidPayload, err)
	case errors.Is(err, appdomain.ErrJobBusy):
		return domain.NewRetryableError(err)
	case ctx.Err() != nil:
		return domain.NewRetryableError(err)
	default:
		return err
	}
}

// sendJobHeartbeat logs a line for long-running jobs until done is closed
func (w *Worker) sendJobHeartbeat(ctx context.Context, hashName string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	started := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logger.Info("Job still running",
				slog.String("hash_name", hashName),
				slog.Duration("elapsed", time.Since(started).Round(time.Second)),
			)
		}
	}
}
