// Package bootstrap assembles the pipeline from configuration. Every binary builds its
// object graph here so the services agree on storage, locking and dispatch.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/almensu/yanghooAI/internal/adapter"
	"github.com/almensu/yanghooAI/internal/adapter/document"
	"github.com/almensu/yanghooAI/internal/adapter/ffmpeg"
	"github.com/almensu/yanghooAI/internal/adapter/imaging"
	"github.com/almensu/yanghooAI/internal/adapter/subtitle"
	"github.com/almensu/yanghooAI/internal/adapter/translate"
	"github.com/almensu/yanghooAI/internal/adapter/whisperx"
	"github.com/almensu/yanghooAI/internal/adapter/ytdlp"
	"github.com/almensu/yanghooAI/internal/config"
	"github.com/almensu/yanghooAI/internal/processor"
	"github.com/almensu/yanghooAI/internal/storage"
	"github.com/almensu/yanghooAI/internal/worker"
	"github.com/almensu/yanghooAI/shared/database"
	"github.com/almensu/yanghooAI/shared/logger"
	"github.com/almensu/yanghooAI/shared/rabbitmq"
)

// Role selects how background work is wired.
type Role int

const (
	// RoleAPI serves HTTP. With local dispatch it owns an in-process worker pool;
	// with rabbitmq dispatch it publishes jobs for the worker service.
	RoleAPI Role = iota
	// RoleWorker consumes jobs from RabbitMQ.
	RoleWorker
	// RoleCLI runs commands in the foreground and never starts a pool.
	RoleCLI
)

// App is the assembled object graph of one binary.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *database.Client
	Store     *storage.Storage
	Processor *processor.Processor

	// Rabbit is nil with local dispatch outside the worker service.
	Rabbit *rabbitmq.Client
	// Worker is nil for RoleCLI and for RoleAPI with rabbitmq dispatch.
	Worker *worker.Worker
}

// New connects to the database, applies the schema and wires the processor for role.
func New(ctx context.Context, cfg *config.Config, role Role, log *slog.Logger) (*App, error) {
	dbClient, err := InitDatabase(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{Config: cfg, Logger: log, DB: dbClient, Store: storage.NewStorage(dbClient)}

	if err := app.Store.Migrate(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	app.Processor, err = processor.New(ProcessorConfig(cfg), &processor.Dependencies{
		Logger:   log,
		Store:    app.Store,
		Adapters: NewAdapters(cfg, log),
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	if err := app.wireDispatch(role); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (a *App) wireDispatch(role Role) error {
	cfg := a.Config
	useBroker := cfg.Worker.Dispatch == config.DispatchRabbitMQ || role == RoleWorker

	if useBroker {
		rabbitClient, err := InitRabbitMQ(&cfg.RabbitMQ, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		a.Rabbit = rabbitClient
		a.Processor.SetScheduler(worker.NewQueueScheduler(rabbitClient, a.Logger))
	}

	switch {
	case role == RoleWorker:
		return a.newWorker(a.Rabbit)
	case role == RoleAPI && !useBroker:
		if err := a.newWorker(nil); err != nil {
			return err
		}
		a.Processor.SetScheduler(a.Worker)
	}
	return nil
}

func (a *App) newWorker(consumer worker.Consumer) error {
	cfg := a.Config.Worker
	w, err := worker.NewWorker(&worker.Config{
		Logger:            a.Logger,
		Runner:            a.Processor,
		Consumer:          consumer,
		Concurrency:       cfg.Concurrency,
		QueueSize:         cfg.QueueSize,
		JobTimeout:        cfg.JobTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	if err != nil {
		return err
	}
	a.Worker = w
	return nil
}

// Close releases the broker and database connections.
func (a *App) Close() error {
	var errs []error
	if a.Rabbit != nil {
		errs = append(errs, a.Rabbit.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

// ProcessorConfig maps the pipeline settings onto the processor.
func ProcessorConfig(cfg *config.Config) processor.Config {
	return processor.Config{
		BasePath:        cfg.Storage.BasePath,
		ThumbnailOffset: cfg.Pipeline.ThumbnailOffset,
		ThumbnailWidth:  cfg.Pipeline.ThumbnailWidth,
		ThumbnailHeight: cfg.Pipeline.ThumbnailHeight,
		LockRetryDelay:  cfg.Pipeline.LockRetryDelay,
	}
}

// NewAdapters builds the production adapters. Every command-line tool shares one runner.
func NewAdapters(cfg *config.Config, log *slog.Logger) processor.Adapters {
	runner := adapter.ExecRunner{}
	media := ffmpeg.New(ffmpeg.Config{Binary: cfg.Pipeline.FFmpegBinary}, runner)

	tr := cfg.Translation
	var opts []translate.Option
	if tr.RetryAttempts > 0 {
		opts = append(opts, translate.WithRetry(tr.RetryAttempts, orDefault(tr.RetryDelay, time.Second), orDefault(tr.RetryMaxDelay, 10*time.Second)))
	}
	chat := translate.NewClient(translate.Config{
		BaseURL:      tr.BaseURL,
		Model:        tr.Model,
		SystemPrompt: tr.SystemPrompt,
		Timeout:      tr.Timeout,
	}, opts...)

	tc := cfg.Transcription
	return processor.Adapters{
		Downloader: ytdlp.New(ytdlp.Config{
			Binary:    cfg.Pipeline.YtDlpBinary,
			Format:    cfg.Pipeline.YtDlpFormat,
			ExtraArgs: cfg.Pipeline.YtDlpExtraArgs,
		}, runner),
		Audio:  media,
		Frames: media,
		Images: imaging.JPEGConverter{Quality: cfg.Pipeline.JPEGQuality},
		Transcriber: whisperx.New(whisperx.Config{
			Command:     tc.Command,
			Model:       tc.Model,
			Device:      tc.Device,
			ComputeType: tc.ComputeType,
			BatchSize:   tc.BatchSize,
			Language:    tc.Language,
			WordLevel:   tc.WordLevel,
		}, runner),
		Translator: translate.NewTranslator(chat, log.With(slog.String("component", "translator"))),
		Subtitles:  subtitle.ASSRenderer{},
		Documents:  document.MarkdownRenderer{},
		HardSubs:   media,
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// ConfigPath returns the path named by envVar, or fallback when it is unset.
func ConfigPath(envVar, fallback string) string {
	if path := os.Getenv(envVar); path != "" {
		return path
	}
	return fallback
}

// LoadConfig reads the config at path and checks it with validate.
func LoadConfig(path string, validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// InitDatabase initializes the database client for the configured driver
func InitDatabase(cfg *config.DatabaseConfig, logger *slog.Logger) (*database.Client, error) {
	return database.NewClient(&database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// InitRabbitMQ initializes the RabbitMQ client
func InitRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rc := &rabbitmq.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		VHost:    cfg.VHost,
		Exchange: rabbitmq.ExchangeSpec{
			Name:       cfg.Exchange.Name,
			Kind:       cfg.Exchange.Type,
			Durable:    cfg.Exchange.Durable,
			AutoDelete: cfg.Exchange.AutoDelete,
		},
		Queue: rabbitmq.QueueSpec{
			Name:       cfg.Queue.Name,
			Durable:    cfg.Queue.Durable,
			AutoDelete: cfg.Queue.AutoDelete,
			Exclusive:  cfg.Queue.Exclusive,
		},
		RoutingKey:        cfg.RoutingKey,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
		Publish: rabbitmq.RetryPolicy{
			Attempts:   cfg.Publish.RetryAttempts,
			Delay:      cfg.Publish.RetryInterval,
			Multiplier: cfg.Publish.BackoffMultiplier,
		},
		PrefetchCount: cfg.Consumer.PrefetchCount,
	}
	if !cfg.DeadLetter.Disabled {
		rc.DeadLetterExchange = cfg.DeadLetter.Exchange
		rc.DeadLetterQueue = cfg.DeadLetter.Queue
	}
	return rabbitmq.NewClient(rc, logger)
}
