package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/config"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// ErrPublisherClosed is returned when publishing on a closed publisher.
var ErrPublisherClosed = errors.New("publisher is closed")

// MessagePublisher publishes extraction events to a topic exchange with
// publisher confirms.
type MessagePublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	config   *config.RabbitMQConfig
	mu       sync.Mutex
}

// NewMessagePublisher connects to the broker and declares the exchange and queue.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		mp.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": 86400000, // 24 hours
			"x-max-length":  100000,
		},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Events are routed as <routingKey>.<platform>.<status>.
	if err := ch.QueueBind(
		mp.config.Queue,
		mp.config.RoutingKey+".#",
		mp.config.Exchange,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	mp.conn = conn
	mp.channel = ch
	mp.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("queue", mp.config.Queue),
	)

	return nil
}

// RoutingKey returns the routing key used for event.
func (mp *MessagePublisher) RoutingKey(event *models.ExtractionEvent) string {
	platform := string(event.Platform)
	if platform == "" {
		platform = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s", mp.config.RoutingKey, platform, event.Status)
}

// PublishExtraction publishes event and waits for the broker confirm.
func (mp *MessagePublisher) PublishExtraction(ctx context.Context, event *models.ExtractionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	routingKey := mp.RoutingKey(event)

	// Confirms arrive in publish order on one channel, so publishes are serialized.
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.channel == nil || mp.channel.IsClosed() {
		return ErrPublisherClosed
	}

	err = mp.channel.PublishWithContext(
		ctx,
		mp.config.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			MessageId:    event.ID.String(),
			Headers: amqp.Table{
				"request_id": event.RequestID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	confirmTimeout := mp.config.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 5 * time.Second
	}

	select {
	case confirm, ok := <-mp.confirms:
		if !ok {
			return ErrPublisherClosed
		}
		if !confirm.Ack {
			return fmt.Errorf("message was not acknowledged by broker")
		}
	case <-time.After(confirmTimeout):
		return fmt.Errorf("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published extraction event",
		zap.String("eventId", event.ID.String()),
		zap.String("routingKey", routingKey),
	)

	return nil
}

// Close closes the channel and the connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil && !mp.channel.IsClosed() {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mp.conn != nil && !mp.conn.IsClosed() {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %w", errors.Join(errs...))
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil && !mp.channel.IsClosed()
}
