package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"settings-service/internal/logging"
	"settings-service/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const (
	SettingsExchange = "settings.events"

	publisherAppID = "settings-service"
	publishTimeout = 5 * time.Second
)

type Publisher interface {
	PublishSettingsEvent(event *models.SettingsEvent) error
	Close() error
}

type EventPublisher struct {
	mu       sync.Mutex // guards channel
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	logger   *zap.Logger
}

// NewEventPublisher connects to RabbitMQ and declares the settings exchange.
// An empty URI gives a publisher that drops every event.
func NewEventPublisher(rabbitURI string, logger *zap.Logger) (*EventPublisher, error) {
	logger = logging.OrNop(logger)

	if rabbitURI == "" {
		logger.Warn("RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{
			exchange: SettingsExchange,
			enabled:  false,
			logger:   logger,
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

	err = channel.ExchangeDeclare(
		SettingsExchange, // name
		"topic",          // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("Event publisher initialized", zap.String("exchange", SettingsExchange))

	return &EventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: SettingsExchange,
		enabled:  true,
		logger:   logger,
	}, nil
}

// PublishSettingsEvent sends evt to the settings exchange, routed by its
// event type. Consumers that only care about some fields can filter on the
// changed_fields header without decoding the body.
func (p *EventPublisher) PublishSettingsEvent(evt *models.SettingsEvent) error {
	if !p.enabled {
		p.logger.Debug("Event publishing disabled, skipping event", zap.String("eventType", string(evt.EventType)))
		return nil
	}

	msg, err := newPublishing(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey(evt), false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s for user %s: %w", evt.EventType, evt.UserID, err)
	}

	p.logger.Info("Published settings event",
		zap.String("eventType", string(evt.EventType)),
		zap.String("userId", evt.UserID),
		zap.Strings("changedFields", evt.ChangedFields))
	return nil
}

func routingKey(evt *models.SettingsEvent) string {
	return string(evt.EventType)
}

// newPublishing builds the AMQP message for evt.
func newPublishing(evt *models.SettingsEvent) (amqp091.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", evt.EventType, err)
	}

	timestamp := evt.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	headers := amqp091.Table{
		"event_type": string(evt.EventType),
		"user_id":    evt.UserID,
	}
	if len(evt.ChangedFields) > 0 {
		headers["changed_fields"] = strings.Join(evt.ChangedFields, ",")
	}

	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    bson.NewObjectID().Hex(),
		AppId:        publisherAppID,
		Type:         string(evt.EventType),
		Timestamp:    timestamp,
		Headers:      headers,
		Body:         body,
	}, nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("Error closing RabbitMQ channel", zap.Error(err))
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []models.SettingsEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Events: make([]models.SettingsEvent, 0),
	}
}

func (m *MockPublisher) PublishSettingsEvent(event *models.SettingsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, *event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

func (m *MockPublisher) GetEvents() []models.SettingsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SettingsEvent{}, m.Events...)
}

func (m *MockPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = make([]models.SettingsEvent, 0)
}
