// Package rabbitmq carries job messages between the API and worker services.
package rabbitmq

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned when the channel is closed or was never opened.
var ErrNotConnected = errors.New("not connected to RabbitMQ")

// Config holds RabbitMQ connection and topology settings
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string

	Exchange   ExchangeSpec
	Queue      QueueSpec
	RoutingKey string

	// DeadLetterExchange and DeadLetterQueue receive rejected jobs. Both empty
	// disables dead-lettering.
	DeadLetterExchange string
	DeadLetterQueue    string

	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration

	Publish       RetryPolicy
	PrefetchCount int
}

// ExchangeSpec describes the job exchange.
type ExchangeSpec struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
}

// QueueSpec describes the job queue.
type QueueSpec struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
}

// URI renders the connection string with escaped credentials.
func (c *Config) URI() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strings.TrimPrefix(c.VHost, "/"),
	}
	return u.String()
}

// Client owns one connection and one channel.
type Client struct {
	config  *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
	closed  chan *amqp.Error
}

// NewClient dials the broker and declares the job topology.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	c := &Client{config: config, logger: logger}

	if err := c.dial(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	ch, err := c.conn.Channel()
	if err != nil {
		_ = c.conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	c.channel = ch

	if err := declareTopology(ch, config); err != nil {
		_ = ch.Close()
		_ = c.conn.Close()
		return nil, fmt.Errorf("failed to declare job topology: %w", err)
	}

	c.closed = ch.NotifyClose(make(chan *amqp.Error, 1))

	logger.Info("RabbitMQ client initialized",
		slog.String("exchange", config.Exchange.Name),
		slog.String("queue", config.Queue.Name),
		slog.String("dead_letter_queue", config.DeadLetterQueue),
	)
	return c, nil
}

func (c *Client) dial() error {
	amqpConfig := amqp.Config{Heartbeat: c.config.Heartbeat, Locale: "en_US"}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	attempts := max(c.config.RetryAttempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.conn, err = amqp.DialConfig(c.config.URI(), amqpConfig)
		if err == nil {
			c.logger.Info("Connected to RabbitMQ",
				slog.String("host", c.config.Host),
				slog.Int("attempt", attempt),
			)
			return nil
		}

		c.logger.Warn("RabbitMQ dial failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}
	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// IsConnected reports whether the channel is still usable.
func (c *Client) IsConnected() bool {
	if c.conn == nil || c.conn.IsClosed() || c.channel == nil {
		return false
	}
	select {
	case <-c.closed:
		return false
	default:
		return !c.channel.IsClosed()
	}
}

// Close closes the channel and then the connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Error("Failed to close RabbitMQ client", slog.Any("error", err))
		return err
	}
	c.logger.Info("RabbitMQ connection closed")
	return nil
}
