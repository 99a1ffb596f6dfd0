package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

const (
	// DispatchLocal runs background stages on the in-process worker pool
	DispatchLocal = "local"
	// DispatchRabbitMQ publishes background stages for the worker service
	DispatchRabbitMQ = "rabbitmq"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	Logging       LoggingConfig       `yaml:"logging"`
	App           AppConfig           `yaml:"app"`
	Worker        WorkerConfig        `yaml:"worker"`
	Storage       StorageConfig       `yaml:"storage"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Translation   TranslationConfig   `yaml:"translation"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres or sqlite
	Path            string        `yaml:"path"`   // sqlite only
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// DeadLetterConfig names where rejected jobs are parked. Disabled turns dead-lettering off.
type DeadLetterConfig struct {
	Disabled bool   `yaml:"disabled"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"` // console or json
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Dispatch          string        `yaml:"dispatch"` // local or rabbitmq
	Concurrency       int           `yaml:"concurrency"`
	QueueSize         int           `yaml:"queue_size"`
	JobTimeout        time.Duration `yaml:"job_timeout"` // zero means no limit
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig holds the artifact tree location
type StorageConfig struct {
	BasePath string `yaml:"base_path"`
}

// PipelineConfig holds external tool and thumbnail settings
type PipelineConfig struct {
	YtDlpBinary     string        `yaml:"ytdlp_binary"`
	YtDlpFormat     string        `yaml:"ytdlp_format"`
	YtDlpExtraArgs  []string      `yaml:"ytdlp_extra_args"`
	FFmpegBinary    string        `yaml:"ffmpeg_binary"`
	ThumbnailOffset time.Duration `yaml:"thumbnail_offset"`
	ThumbnailWidth  int           `yaml:"thumbnail_width"`
	ThumbnailHeight int           `yaml:"thumbnail_height"`
	JPEGQuality     int           `yaml:"jpeg_quality"`
	LockRetryDelay  time.Duration `yaml:"lock_retry_delay"`
}

// TranscriptionConfig holds WhisperX settings
type TranscriptionConfig struct {
	Command     string `yaml:"command"`
	Model       string `yaml:"model"`
	Device      string `yaml:"device"`
	ComputeType string `yaml:"compute_type"`
	BatchSize   int    `yaml:"batch_size"`
	Language    string `yaml:"language"`
	WordLevel   bool   `yaml:"word_level"`
}

// TranslationConfig holds Ollama settings
type TranslationConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	SystemPrompt  string        `yaml:"system_prompt"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
}

// Load reads the configuration file, expands ${VAR} references from the environment,
// parses it and fills in defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills zero values that have a sensible default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.Port, 8080)
	setDefault(&c.Server.ReadTimeout, 30*time.Second)
	// synchronous processing holds the response open for the whole pipeline
	setDefault(&c.Server.WriteTimeout, 2*time.Hour)
	setDefault(&c.Server.IdleTimeout, 120*time.Second)
	setDefault(&c.Server.ShutdownTimeout, 30*time.Second)

	setDefault(&c.Database.Driver, "sqlite")
	setDefault(&c.Database.SSLMode, "disable")
	setDefault(&c.Database.MaxOpenConns, 10)
	setDefault(&c.Database.MaxIdleConns, 5)
	setDefault(&c.Database.ConnMaxLifetime, 30*time.Minute)
	setDefault(&c.Database.ConnMaxIdleTime, 5*time.Minute)

	setDefault(&c.RabbitMQ.Exchange.Type, "direct")
	setDefault(&c.RabbitMQ.Connection.RetryAttempts, 5)
	setDefault(&c.RabbitMQ.Connection.RetryInterval, 5*time.Second)
	setDefault(&c.RabbitMQ.Connection.Heartbeat, 10*time.Second)
	setDefault(&c.RabbitMQ.Connection.ConnectionTimeout, 30*time.Second)
	setDefault(&c.RabbitMQ.Publish.RetryAttempts, 3)
	setDefault(&c.RabbitMQ.Publish.RetryInterval, time.Second)
	setDefault(&c.RabbitMQ.Publish.BackoffMultiplier, 2.0)
	setDefault(&c.RabbitMQ.Consumer.PrefetchCount, 1)
	if !c.RabbitMQ.DeadLetter.Disabled {
		if c.RabbitMQ.Exchange.Name != "" {
			setDefault(&c.RabbitMQ.DeadLetter.Exchange, c.RabbitMQ.Exchange.Name+".dlx")
		}
		if c.RabbitMQ.Queue.Name != "" {
			setDefault(&c.RabbitMQ.DeadLetter.Queue, c.RabbitMQ.Queue.Name+".dead")
		}
	}

	setDefault(&c.Logging.Level, "info")
	setDefault(&c.Logging.Format, "console")
	setDefault(&c.Logging.Output, "stdout")

	setDefault(&c.Worker.Dispatch, DispatchLocal)
	setDefault(&c.Worker.Concurrency, 2)
	setDefault(&c.Worker.QueueSize, 64)
	setDefault(&c.Worker.HeartbeatInterval, 30*time.Second)
	setDefault(&c.Worker.ShutdownTimeout, 30*time.Second)

	setDefault(&c.Storage.BasePath, "data")
	if c.Database.Driver == "sqlite" {
		setDefault(&c.Database.Path, filepath.Join(c.Storage.BasePath, "videos.db"))
	}
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Validate checks the settings shared by every binary.
func (c *Config) Validate() error {
	if c.Storage.BasePath == "" {
		return errors.New("storage base_path is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q (must be postgres or sqlite)", c.Database.Driver)
	}

	switch c.Worker.Dispatch {
	case DispatchLocal:
	case DispatchRabbitMQ:
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported worker dispatch: %q (must be %s or %s)", c.Worker.Dispatch, DispatchLocal, DispatchRabbitMQ)
	}

	if c.Pipeline.JPEGQuality < 0 || c.Pipeline.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg_quality: %d (must be between 1 and 100)", c.Pipeline.JPEGQuality)
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}

// ValidateAPIConfig checks the settings the API service needs.
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateWorker()
}

// ValidateWorkerConfig checks the settings the worker service needs. The worker service
// only makes sense when jobs travel through RabbitMQ.
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Worker.Dispatch != DispatchRabbitMQ {
		return fmt.Errorf("worker service requires worker dispatch %q", DispatchRabbitMQ)
	}

	return c.validateWorker()
}

func (c *Config) validateWorker() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker queue_size must be greater than 0")
	}

	if c.Worker.JobTimeout < 0 {
		return fmt.Errorf("worker job_timeout must not be negative")
	}

	if c.Worker.HeartbeatInterval <= 0 {
		return fmt.Errorf("worker heartbeat_interval must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}
