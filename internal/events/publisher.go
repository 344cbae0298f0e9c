package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ErickPolzin/Crud/internal/db"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeName = "bookstore.events"
	exchangeType = "topic"
	eventVersion = "1.0.0"

	// Event types, also used as routing keys
	EventTypeBookCreated = "catalog.created"
	EventTypeBookUpdated = "catalog.updated"
	EventTypeBookDeleted = "catalog.deleted"

	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

// Publisher emits book lifecycle events
type Publisher interface {
	PublishBookCreated(ctx context.Context, book db.Book) error
	PublishBookUpdated(ctx context.Context, book db.Book) error
	PublishBookDeleted(ctx context.Context, id int64) error
	IsHealthy() bool
	Close() error
}

// Event represents a domain event
type Event struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	EventVersion  string                 `json:"event_version"`
	Timestamp     string                 `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

type correlationKey struct{}

// WithCorrelationID attaches the id that will be copied onto published events
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, if any
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NewEvent builds an event envelope for the given type and payload
func NewEvent(ctx context.Context, eventType string, payload map[string]interface{}) Event {
	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: CorrelationID(ctx),
		Payload:       payload,
	}
}

func bookPayload(book db.Book) map[string]interface{} {
	return map[string]interface{}{
		"id":              book.ID,
		"title":           book.Title,
		"author":          book.Author,
		"isbn":            book.ISBN,
		"publicationYear": book.PublicationYear,
		"genre":           book.Genre,
	}
}

// AMQPPublisher handles event publishing to RabbitMQ
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger
}

// NewAMQPPublisher connects to RabbitMQ and declares the events exchange
func NewAMQPPublisher(url string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchangeName,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	log.Info("Connected to RabbitMQ", zap.String("exchange", exchangeName))

	return &AMQPPublisher{
		conn:    conn,
		channel: channel,
		log:     log,
	}, nil
}

// PublishBookCreated publishes a book created event
func (p *AMQPPublisher) PublishBookCreated(ctx context.Context, book db.Book) error {
	return p.publishWithRetry(ctx, NewEvent(ctx, EventTypeBookCreated, bookPayload(book)))
}

// PublishBookUpdated publishes a book updated event carrying the full record
func (p *AMQPPublisher) PublishBookUpdated(ctx context.Context, book db.Book) error {
	return p.publishWithRetry(ctx, NewEvent(ctx, EventTypeBookUpdated, bookPayload(book)))
}

// PublishBookDeleted publishes a book deleted event
func (p *AMQPPublisher) PublishBookDeleted(ctx context.Context, id int64) error {
	return p.publishWithRetry(ctx, NewEvent(ctx, EventTypeBookDeleted, map[string]interface{}{"id": id}))
}

// publishWithRetry publishes an event with exponential backoff retry
func (p *AMQPPublisher) publishWithRetry(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to marshal event", zap.Error(err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}

		confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(
			ctx,
			exchangeName,
			event.EventType,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				Timestamp:     time.Now(),
				MessageId:     event.EventID,
				CorrelationId: event.CorrelationID,
				Body:          body,
				Headers: amqp.Table{
					"event_type":    event.EventType,
					"event_version": event.EventVersion,
				},
			},
		)
		if err != nil {
			lastErr = err
			p.log.Warn("Failed to publish event, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		select {
		case <-confirmation.Done():
			if confirmation.Acked() {
				p.log.Debug("Event published",
					zap.String("event_id", event.EventID),
					zap.String("event_type", event.EventType),
				)
				return nil
			}
			lastErr = fmt.Errorf("event not acknowledged")
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmTimeout):
			lastErr = fmt.Errorf("confirmation timeout")
		}

		p.log.Warn("Event publish not confirmed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	p.log.Error("Failed to publish event after retries",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int("attempts", maxRetries),
		zap.Error(lastErr),
	)
	return fmt.Errorf("failed to publish event after %d attempts: %w", maxRetries, lastErr)
}

// IsHealthy checks if the publisher connection is healthy
func (p *AMQPPublisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the publisher connection
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error("Failed to close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.log.Error("Failed to close connection", zap.Error(err))
			return err
		}
	}
	p.log.Info("Publisher closed")
	return nil
}

// NoopPublisher drops every event, used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishBookCreated(context.Context, db.Book) error { return nil }
func (NoopPublisher) PublishBookUpdated(context.Context, db.Book) error { return nil }
func (NoopPublisher) PublishBookDeleted(context.Context, int64) error   { return nil }
func (NoopPublisher) IsHealthy() bool                                    { return true }
func (NoopPublisher) Close() error                                       { return nil }
