package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Ensure Publisher implements the repository interface at compile time.
var _ repo.EventPublisher = (*Publisher)(nil)

// Constants for our RabbitMQ topology.
const (
	EventsExchange = "events.exchange"
	RetryExchange  = "retry.exchange"

	// SessionsQueue is consumed by a single worker so joins and leaves of a user stay ordered.
	SessionsQueue = "events.sessions"
	ListingsQueue = "events.listings"
	RetryQueue    = "retry.queue.delay"

	Direct = "direct"
	Fanout = "fanout"
)

// Publisher publishes lifecycle events and retries. It owns one channel.
type Publisher struct {
	ch     *amqp.Channel
	logger zerolog.Logger
}

// NewPublisher opens a channel on the shared connection and declares the topology.
func NewPublisher(conn *amqp.Connection, logger *zerolog.Logger) (*Publisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		logger.Error().Err(err).Msg("storage: rabbitMQ: failed to open a channel")
		return nil, fmt.Errorf("storage: rabbitMQ: failed to open a channel: %w", err)
	}

	p := &Publisher{
		ch:     channel,
		logger: logger.With().Str("component", "rabbitmq_publisher").Logger(),
	}

	if err = p.setupTopology(); err != nil {
		p.logger.Error().Err(err).Msg("storage: rabbitMQ: failed to setup topology")
		_ = channel.Close()
		return nil, fmt.Errorf("storage: rabbitMQ: failed to setup topology: %w", err)
	}

	return p, nil
}

// setupTopology declares all necessary exchanges and queues.
// Messages in the retry queue expire after their per-message TTL and are dead-lettered
// back to the events exchange with their original routing key.
func (p *Publisher) setupTopology() error {
	p.logger.Info().Msg("setting up rabbitmq topology")

	exchangesToDeclare := []struct {
		name string
		kind string
	}{
		{EventsExchange, Direct},
		{RetryExchange, Fanout},
	}
	for _, exInfo := range exchangesToDeclare {
		if err := p.ch.ExchangeDeclare(exInfo.name, exInfo.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exInfo.name, err)
		}
	}

	for _, q := range []string{SessionsQueue, ListingsQueue} {
		if _, err := p.ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q, err)
		}
	}
	retryQueueArgs := amqp.Table{"x-dead-letter-exchange": EventsExchange}
	if _, err := p.ch.QueueDeclare(RetryQueue, true, false, false, false, retryQueueArgs); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", RetryQueue, err)
	}

	bindings := []struct {
		queue    string
		key      string
		exchange string
	}{
		{SessionsQueue, KeySessionJoined, EventsExchange},
		{SessionsQueue, KeySessionLeft, EventsExchange},
		{ListingsQueue, KeyListingEnded, EventsExchange},
		{RetryQueue, "", RetryExchange},
	}
	for _, b := range bindings {
		if err := p.ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w", b.queue, b.exchange, err)
		}
	}

	p.logger.Info().Msg("rabbitmq topology setup successful")
	return nil
}

// PublishSessionJoined announces that a user became active.
func (p *Publisher) PublishSessionJoined(ctx context.Context, s *model.Session) error {
	return p.publish(ctx, KeySessionJoined, NewSessionJoinedEvent(s))
}

// PublishSessionLeft announces that a user disconnected.
func (p *Publisher) PublishSessionLeft(ctx context.Context, userID uuid.UUID) error {
	return p.publish(ctx, KeySessionLeft, SessionLeftEvent{UserID: userID})
}

// PublishListingEnded announces that a listing left the catalog.
func (p *Publisher) PublishListingEnded(ctx context.Context, listingID uuid.UUID, reason string) error {
	return p.publish(ctx, KeyListingEnded, ListingEndedEvent{
		ListingID: listingID,
		Reason:    reason,
		EndedAt:   time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("routing_key", routingKey).Msg("failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	}
	if err := p.ch.PublishWithContext(ctx, EventsExchange, routingKey, false, false, msg); err != nil {
		p.logger.Error().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
		return fmt.Errorf("rabbitmq: publish %s failed: %w", routingKey, err)
	}
	return nil
}

// PublishRetry parks a failed message in the retry queue for delay.
// attempts is stored in the x-attempts header.
func (p *Publisher) PublishRetry(ctx context.Context, routingKey string, body []byte, attempts int, delay time.Duration) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		Headers:      amqp.Table{HeaderAttempts: int32(attempts)},
	}

	return p.ch.PublishWithContext(ctx, RetryExchange, routingKey, false, false, msg)
}

// Close gracefully shuts down the channel. The connection is managed by Fx.
func (p *Publisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
