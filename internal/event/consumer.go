package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"settings-service/internal/logging"
	"settings-service/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SettingsProvisioner is what the consumer needs from the settings service.
type SettingsProvisioner interface {
	Provision(ctx context.Context, userID string) (*models.SettingsDocument, error)
	Delete(ctx context.Context, userID string) error
}

type Consumer interface {
	Start() error
	Close() error
}

type EventConsumer struct {
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	queueName   string
	provisioner SettingsProvisioner
	shutdown    chan struct{}
	wg          sync.WaitGroup
	enabled     bool
	timeout     time.Duration
	logger      *zap.Logger
}

type ExchangeConfig struct {
	Name       string
	Type       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp091.Table
}

type BindingConfig struct {
	Exchange   string
	RoutingKey string
}

func NewEventConsumer(
	rabbitURI string,
	queueName string,
	provisioner SettingsProvisioner,
	logger *zap.Logger,
) (*EventConsumer, error) {
	logger = logging.OrNop(logger)

	if rabbitURI == "" {
		logger.Warn("RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			provisioner: provisioner,
			shutdown:    make(chan struct{}),
			enabled:     false,
			timeout:     10 * time.Second,
			logger:      logger,
		}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &EventConsumer{
		conn:        conn,
		channel:     channel,
		queueName:   queueName,
		provisioner: provisioner,
		shutdown:    make(chan struct{}),
		enabled:     true,
		timeout:     10 * time.Second,
		logger:      logger,
	}, nil
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		c.logger.Info("Event consumption is disabled, not starting consumer")
		return nil
	}

	exchanges := []ExchangeConfig{
		{
			Name:    "user-events",
			Type:    "topic",
			Durable: true,
		},
	}

	for _, exchange := range exchanges {
		err := c.channel.ExchangeDeclare(
			exchange.Name,
			exchange.Type,
			exchange.Durable,
			exchange.AutoDelete,
			exchange.Internal,
			exchange.NoWait,
			exchange.Args,
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange.Name, err)
		}
		c.logger.Info("Declared exchange", zap.String("exchange", exchange.Name))
	}

	_, err := c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	bindings := []BindingConfig{
		{Exchange: "user-events", RoutingKey: "user.#"},
	}

	for _, binding := range bindings {
		err := c.channel.QueueBind(
			c.queueName,        // queue name
			binding.RoutingKey, // routing key
			binding.Exchange,   // exchange
			false,              // no-wait
			nil,                // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue to exchange %s with key %s: %w",
				binding.Exchange, binding.RoutingKey, err)
		}
		c.logger.Info("Bound queue",
			zap.String("queue", c.queueName),
			zap.String("exchange", binding.Exchange),
			zap.String("routingKey", binding.RoutingKey))
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(msgs)
	}()

	c.logger.Info("Event consumer started")
	return nil
}

func (c *EventConsumer) consume(msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-c.shutdown:
			c.logger.Info("Stopping event consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Message channel closed")
				return
			}

			if err := c.processMessage(msg); err != nil {
				c.logger.Error("Error processing message", zap.String("routingKey", msg.RoutingKey), zap.Error(err))
				if err := msg.Nack(false, true); err != nil {
					c.logger.Error("Error NACKing message", zap.Error(err))
				}
			} else {
				if err := msg.Ack(false); err != nil {
					c.logger.Error("Error ACKing message", zap.Error(err))
				}
			}
		}
	}
}

func (c *EventConsumer) processMessage(msg amqp091.Delivery) error {
	c.logger.Debug("Processing message",
		zap.String("exchange", msg.Exchange),
		zap.String("routingKey", msg.RoutingKey))

	switch models.EventType(msg.RoutingKey) {
	case models.EventTypeUserRegistered:
		return c.handleUserRegistered(msg.Body)
	case models.EventTypeUserDeleted:
		return c.handleUserDeleted(msg.Body)
	default:
		c.logger.Debug("Ignoring routing key", zap.String("routingKey", msg.RoutingKey))
		return nil
	}
}

func (c *EventConsumer) handleUserRegistered(body []byte) error {
	var event models.UserRegisterEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal user registered event: %w", err)
	}
	if event.UserID == "" {
		c.logger.Warn("User registered event without user ID, dropping", zap.String("eventId", event.ID))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if _, err := c.provisioner.Provision(ctx, event.UserID); err != nil {
		return fmt.Errorf("failed to provision settings for user %s: %w", event.UserID, err)
	}

	c.logger.Info("Provisioned default settings", zap.String("userId", event.UserID))
	return nil
}

func (c *EventConsumer) handleUserDeleted(body []byte) error {
	var event models.UserDeletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal user deleted event: %w", err)
	}
	if event.UserID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.provisioner.Delete(ctx, event.UserID)
	if err != nil && !errors.Is(err, models.ErrSettingsNotFound) {
		return fmt.Errorf("failed to delete settings for user %s: %w", event.UserID, err)
	}

	c.logger.Info("Removed settings of deleted user", zap.String("userId", event.UserID))
	return nil
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	close(c.shutdown)
	c.wg.Wait()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("Error closing RabbitMQ channel", zap.Error(err))
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}
