package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/almensu/yanghooAI/internal/bootstrap"
	"github.com/almensu/yanghooAI/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	configPath := flag.String("config",
		bootstrap.ConfigPath("WORKER_SERVICE_CONFIG_PATH", "configs/worker-service/config.yaml"),
		"Path to configuration file")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath, (*config.Config).ValidateWorkerConfig)
	if err != nil {
		return err
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("queue", cfg.RabbitMQ.Queue.Name),
		slog.Int("concurrency", cfg.Worker.Concurrency),
		slog.String("base_path", cfg.Storage.BasePath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.RoleWorker, appLogger.Logger)
	if err != nil {
		return err
	}
	defer app.Close()

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- app.Worker.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Shutdown requested, draining in-flight jobs")
	case err := <-consumeErr:
		if err != nil {
			appLogger.Error("Worker stopped consuming", slog.Any("error", err))
			return err
		}
	}
	stop()

	return drain(app, cfg.Worker.ShutdownTimeout, appLogger.Logger)
}

// drain waits for running jobs to reach a stage boundary, up to timeout. Jobs still
// running afterwards are redelivered by the broker once the channel closes.
func drain(app *bootstrap.App, timeout time.Duration, logger *slog.Logger) error {
	done := make(chan struct{})
	go func() {
		app.Worker.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Worker service shutdown complete")
		return nil
	case <-time.After(timeout):
		logger.Warn("Shutdown timeout exceeded, unacked jobs return to the queue",
			slog.Duration("timeout", timeout),
		)
		return nil
	}
}
