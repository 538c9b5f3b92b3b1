package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/async"
	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/ilindan-dev/auction-watchlist/internal/notify"
	"github.com/ilindan-dev/auction-watchlist/internal/session"
	"github.com/ilindan-dev/auction-watchlist/internal/storage/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

const (
	// defaultMaxRetries is the maximum number of handling attempts for an event.
	defaultMaxRetries = 5
	// defaultWorkerCount is the default number of listings workers.
	defaultWorkerCount = 4
	// defaultBaseBackoff is the first retry delay.
	defaultBaseBackoff = 5 * time.Second

	// ListingEndedMessageKey is queued for every watcher of an ended listing.
	ListingEndedMessageKey = "watchlist.listing ended"
)

// errMalformed marks events that can never be handled.
var errMalformed = errors.New("malformed event")

// Notifications queues offline messages and delivers them on join.
type Notifications interface {
	Queue(userID uuid.UUID, messageKey string, placeholders map[string]string)
	DeliverTo(s notify.Session)
}

// Watchlist is the part of the watch cache the listing lifecycle touches.
type Watchlist interface {
	Watchers(listingID uuid.UUID) []uuid.UUID
	RemoveListing(listingID uuid.UUID, done async.Callback[struct{}])
}

// Catalog is the part of the listing catalog the listing lifecycle touches.
type Catalog interface {
	Get(id uuid.UUID) (*model.Listing, bool)
	MoveToGarbage(id uuid.UUID)
	Purge(id uuid.UUID)
}

// Retrier parks a failed message for a later attempt.
type Retrier interface {
	PublishRetry(ctx context.Context, routingKey string, body []byte, attempts int, delay time.Duration) error
}

// Consumer listens to the events queues and processes messages using a pool of workers.
type Consumer struct {
	logger        zerolog.Logger
	conn          *amqp.Connection // Raw connection to create channels for each worker.
	hub           *session.Hub
	notifications Notifications
	localizer     notify.Localizer
	watchlist     Watchlist
	catalog       Catalog
	listings      repo.ListingRepository
	retrier       Retrier

	workerCount int
	maxRetries  int
	baseBackoff time.Duration
}

// New creates a new instance of Consumer.
func New(
	cfg *config.Config,
	logger *zerolog.Logger,
	conn *amqp.Connection,
	hub *session.Hub,
	notifications Notifications,
	localizer notify.Localizer,
	watchlist Watchlist,
	catalog Catalog,
	listings repo.ListingRepository,
	retrier Retrier,
) *Consumer {
	c := &Consumer{
		logger:        logger.With().Str("component", "consumer").Logger(),
		conn:          conn,
		hub:           hub,
		notifications: notifications,
		localizer:     localizer,
		watchlist:     watchlist,
		catalog:       catalog,
		listings:      listings,
		retrier:       retrier,
		workerCount:   cfg.Consumer.Workers,
		maxRetries:    cfg.Consumer.MaxRetries,
		baseBackoff:   cfg.Consumer.BaseBackoff,
	}
	if c.workerCount <= 0 {
		c.workerCount = defaultWorkerCount
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = defaultBaseBackoff
	}
	return c
}

// Start launches one sessions worker and the listings worker pool.
// This is a blocking method that will run until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info().Int("listing_workers", c.workerCount).Msg("Starting worker pool")
	var wg conc.WaitGroup

	wg.Go(func() { c.runWorker(ctx, rabbitmq.SessionsQueue, 1) })
	for i := 0; i < c.workerCount; i++ {
		workerID := i + 1
		wg.Go(func() { c.runWorker(ctx, rabbitmq.ListingsQueue, workerID) })
	}

	wg.Wait()
	c.logger.Info().Msg("Consumer stopped")
}

// runWorker contains the main logic for a single worker goroutine.
func (c *Consumer) runWorker(ctx context.Context, queue string, workerID int) {
	logger := c.logger.With().Str("queue", queue).Int("worker_id", workerID).Logger()
	logger.Info().Msg("Worker started")

	ch, err := c.conn.Channel()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open channel for worker")
		return
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error().Err(err).Msg("Failed to set QoS")
		return
	}

	msgs, err := ch.Consume(
		queue,
		fmt.Sprintf("%s-worker-%d", queue, workerID),
		false, // autoAck: false. We will manually acknowledge messages.
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register a consumer")
		return
	}

	logger.Info().Msg("Worker is waiting for messages")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Worker stopping due to context cancellation")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn().Msg("Message channel closed by RabbitMQ, worker stopping")
				return
			}
			c.handleMessage(ctx, msg, logger)
		}
	}
}

// handleMessage routes a message by its routing key and settles it.
func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, logger zerolog.Logger) {
	log := logger.With().Str("routing_key", msg.RoutingKey).Logger()

	var err error
	switch msg.RoutingKey {
	case rabbitmq.KeySessionJoined:
		err = c.handleSessionJoined(msg.Body, log)
	case rabbitmq.KeySessionLeft:
		err = c.handleSessionLeft(msg.Body)
	case rabbitmq.KeyListingEnded:
		err = c.handleListingEnded(ctx, msg.Body, log)
	default:
		err = fmt.Errorf("%w: unknown routing key", errMalformed)
	}

	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errMalformed):
		log.Error().Err(err).Msg("Rejecting malformed message")
		_ = msg.Nack(false, false)
	default:
		c.handleFailure(ctx, msg, err, log)
	}
}

func (c *Consumer) handleSessionJoined(body []byte, log zerolog.Logger) error {
	var e rabbitmq.SessionJoinedEvent
	if err := json.Unmarshal(body, &e); err != nil || e.UserID == uuid.Nil {
		return fmt.Errorf("%w: session.joined", errMalformed)
	}

	s := c.hub.Join(e.Session())
	c.notifications.DeliverTo(s)
	log.Debug().Stringer("user_id", e.UserID).Msg("session joined, delivering queued notifications")
	return nil
}

func (c *Consumer) handleSessionLeft(body []byte) error {
	var e rabbitmq.SessionLeftEvent
	if err := json.Unmarshal(body, &e); err != nil || e.UserID == uuid.Nil {
		return fmt.Errorf("%w: session.left", errMalformed)
	}
	c.hub.Leave(e.UserID)
	return nil
}

// handleListingEnded takes an ended listing out of circulation. Watchers are captured
// before the watch entries are dropped and informed only once the drop succeeded,
// so a retried event does not notify twice.
func (c *Consumer) handleListingEnded(ctx context.Context, body []byte, log zerolog.Logger) error {
	var e rabbitmq.ListingEndedEvent
	if err := json.Unmarshal(body, &e); err != nil || e.ListingID == uuid.Nil {
		return fmt.Errorf("%w: listing.ended", errMalformed)
	}
	log = log.With().Stringer("listing_id", e.ListingID).Logger()

	c.catalog.MoveToGarbage(e.ListingID)
	watchers := c.watchlist.Watchers(e.ListingID)

	_, err := async.Await(ctx, func(cb async.Callback[struct{}]) {
		c.watchlist.RemoveListing(e.ListingID, cb)
	})
	if err != nil {
		return fmt.Errorf("remove listing from watchlists: %w", err)
	}

	title := e.ListingID.String()
	if l, ok := c.catalog.Get(e.ListingID); ok {
		title = l.Title
	}
	placeholders := map[string]string{"listing": title, "reason": e.Reason}
	for _, userID := range watchers {
		c.inform(userID, placeholders)
	}

	if err := c.listings.MarkEnded(ctx, e.ListingID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("mark listing ended: %w", err)
	}
	c.catalog.Purge(e.ListingID)

	log.Info().Int("watchers", len(watchers)).Msg("listing ended")
	return nil
}

// inform presents the message right away to connected watchers and queues it for the rest.
func (c *Consumer) inform(userID uuid.UUID, placeholders map[string]string) {
	if s, ok := c.hub.Get(userID); ok {
		posted := s.Post(func(p notify.Presenter) {
			p.Present(c.localizer.Render(ListingEndedMessageKey, placeholders))
		})
		if posted {
			return
		}
	}
	c.notifications.Queue(userID, ListingEndedMessageKey, placeholders)
}

// handleFailure schedules a retry with exponential backoff or drops the message
// once it has failed maxRetries times.
func (c *Consumer) handleFailure(ctx context.Context, msg amqp.Delivery, handleErr error, log zerolog.Logger) {
	attempts := attemptsOf(msg) + 1

	if attempts >= c.maxRetries {
		log.Error().Err(handleErr).Int("attempts", attempts).Msg("Max retries reached, dropping message")
		_ = msg.Ack(false)
		return
	}

	backoffDuration := calculateExponentialBackoff(c.baseBackoff, attempts)
	log.Warn().
		Err(handleErr).
		Int("attempt", attempts).
		Dur("backoff", backoffDuration).
		Msg("Handling failed, scheduling retry")

	if err := c.retrier.PublishRetry(ctx, msg.RoutingKey, msg.Body, attempts, backoffDuration); err != nil {
		log.Error().Err(err).Msg("CRITICAL: failed to publish message to retry queue")
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}

func attemptsOf(msg amqp.Delivery) int {
	switch v := msg.Headers[rabbitmq.HeaderAttempts].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// calculateExponentialBackoff implements the exponential backoff strategy.
// Formula: base * 2^(attempt)
func calculateExponentialBackoff(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(attempt)))
}
