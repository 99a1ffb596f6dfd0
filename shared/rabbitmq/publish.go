package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ContentTypeJSON is the content type of every message this service publishes.
const ContentTypeJSON = "application/json"

// RetryPolicy controls publish retries. Zero fields take the defaults below.
type RetryPolicy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
}

const (
	defaultPublishAttempts = 3
	defaultPublishDelay    = 100 * time.Millisecond
	defaultBackoff         = 2.0
)

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = defaultPublishAttempts
	}
	if p.Delay <= 0 {
		p.Delay = defaultPublishDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = defaultBackoff
	}
	return p
}

// backoff returns the wait before retry number retry (0-based).
func (p RetryPolicy) backoff(retry int) time.Duration {
	return time.Duration(float64(p.Delay) * math.Pow(p.Multiplier, float64(retry)))
}

// Message is one persistent job message.
type Message struct {
	// ID becomes the AMQP message id; the job's hash name keeps redeliveries traceable.
	ID          string
	ContentType string
	Body        []byte
}

// Publish sends msg to the job exchange, retrying with exponential backoff.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	policy := c.config.Publish.withDefaults()
	publishing := amqp.Publishing{
		MessageId:    msg.ID,
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	var lastErr error
	for retry := 0; retry <= policy.Attempts; retry++ {
		lastErr = c.channel.PublishWithContext(ctx, c.config.Exchange.Name, c.config.RoutingKey, false, false, publishing)
		if lastErr == nil {
			c.logger.Debug("Message published",
				slog.String("message_id", msg.ID),
				slog.Int("retries", retry),
				slog.Int("body_size", len(msg.Body)),
			)
			return nil
		}
		if retry == policy.Attempts {
			break
		}

		wait := policy.backoff(retry)
		c.logger.Warn("Publish failed, retrying",
			slog.String("message_id", msg.ID),
			slog.Int("retry", retry+1),
			slog.Duration("retry_after", wait),
			slog.Any("error", lastErr),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("publish cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("failed to publish message %s after %d attempts: %w", msg.ID, policy.Attempts+1, lastErr)
}
