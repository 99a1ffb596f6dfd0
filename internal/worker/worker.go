package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/almensu/yanghooAI/internal/worker/domain"
)

// Runner advances one job through its remaining stages.
type Runner interface {
	Advance(ctx context.Context, hashName string) error
}

// Consumer delivers queued job messages from the broker.
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// ErrQueueFull is returned by Schedule when every queue slot is taken.
var ErrQueueFull = domain.ErrQueueFull

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	Runner            Runner
	Consumer          Consumer // nil runs in-process jobs only
	Concurrency       int
	QueueSize         int
	JobTimeout        time.Duration // zero means no limit
	HeartbeatInterval time.Duration
}

// Worker is a bounded pool of goroutines advancing jobs. Jobs arrive through Schedule
// or, when a Consumer is configured, from the broker.
type Worker struct {
	logger            *slog.Logger
	runner            Runner
	consumer          Consumer
	workerID          string
	concurrency       int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration

	jobsChan chan *domain.JobMessage
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("worker: runner is required")
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = domain.DefaultConcurrency
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = domain.DefaultQueueSize
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = domain.DefaultHeartbeatInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		logger:            logger,
		runner:            cfg.Runner,
		consumer:          cfg.Consumer,
		workerID:          "worker-" + uuid.NewString()[:8],
		concurrency:       concurrency,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: heartbeat,
		jobsChan:          make(chan *domain.JobMessage, queueSize),
		stopChan:          make(chan struct{}),
	}, nil
}

// Start spawns the pool and, with a consumer, the broker dispatcher. It blocks until ctx
// is canceled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("queue_size", cap(w.jobsChan)),
		slog.Bool("broker", w.consumer != nil),
	)

	w.spawnWorkerPool(ctx)

	if w.consumer != nil {
		deliveries, err := w.setupConsumer()
		if err != nil {
			w.Stop()
			return err
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.startMessageDispatcher(ctx, deliveries)
		}()
	}

	select {
	case <-ctx.Done():
		w.logger.Info("Worker context canceled, stopping...")
	case <-w.stopChan:
	}

	return nil
}

// Stop gracefully stops the worker and waits for running jobs to return.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// Schedule queues hashName for advancement without blocking.
func (w *Worker) Schedule(_ context.Context, hashName string) error {
	select {
	case <-w.stopChan:
		return domain.ErrWorkerStopped
	default:
	}

	select {
	case w.jobsChan <- &domain.JobMessage{HashName: hashName}:
		w.logger.Debug("Job scheduled", slog.String("hash_name", hashName))
		return nil
	default:
		return ErrQueueFull
	}
}
