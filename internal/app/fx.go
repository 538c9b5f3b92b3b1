package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ilindan-dev/auction-watchlist/internal/async"
	"github.com/ilindan-dev/auction-watchlist/internal/catalog"
	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/consumer"
	deliveryHTTP "github.com/ilindan-dev/auction-watchlist/internal/delivery/http"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/ilindan-dev/auction-watchlist/internal/gateway"
	"github.com/ilindan-dev/auction-watchlist/internal/locale"
	"github.com/ilindan-dev/auction-watchlist/internal/logger"
	"github.com/ilindan-dev/auction-watchlist/internal/notifiers"
	"github.com/ilindan-dev/auction-watchlist/internal/notify"
	"github.com/ilindan-dev/auction-watchlist/internal/service"
	"github.com/ilindan-dev/auction-watchlist/internal/session"
	"github.com/ilindan-dev/auction-watchlist/internal/storage/postgres"
	"github.com/ilindan-dev/auction-watchlist/internal/storage/rabbitmq"
	"github.com/ilindan-dev/auction-watchlist/internal/storage/redis"
	"github.com/ilindan-dev/auction-watchlist/internal/watchlist"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const connectTimeout = 10 * time.Second

// CommonModule provides dependencies shared by the server and the migrator.
var CommonModule = fx.Options(
	fx.Provide(
		config.NewConfig,
		logger.NewLogger,
		providePool,
	),
)

// ServerModule defines the Fx module for the watchlist server: HTTP API, events consumer and sessions.
var ServerModule = fx.Options(
	CommonModule,
	fx.Provide(
		// Storage Layer
		provideAMQP,
		provideClaimer,
		fx.Annotate(postgres.NewWatchRepository, fx.As(new(repo.WatchRepository))),
		fx.Annotate(postgres.NewNotificationRepository, fx.As(new(repo.NotificationRepository))),
		fx.Annotate(postgres.NewListingRepository, fx.As(new(repo.ListingRepository))),
		fx.Annotate(providePublisher, fx.As(new(repo.EventPublisher), new(consumer.Retrier))),

		// Core
		async.NewExecutor,
		fx.Annotate(gateway.New, fx.As(new(watchlist.Gateway), new(notify.Gateway))),
		fx.Annotate(catalog.New, fx.As(fx.Self(), new(watchlist.Catalog), new(consumer.Catalog), new(service.Catalog))),
		fx.Annotate(watchlist.NewCache, fx.As(fx.Self(), new(consumer.Watchlist), new(deliveryHTTP.Watchlist))),
		fx.Annotate(provideLocale, fx.As(new(notify.Localizer), new(deliveryHTTP.Localizer))),
		fx.Annotate(provideQueue, fx.As(new(consumer.Notifications), new(deliveryHTTP.Notifications))),

		// Sessions
		fx.Annotate(notifiers.NewDispatcher, fx.As(new(notifiers.Notifier))),
		session.NewHub,
		consumer.New,

		// API
		service.NewLifecycleService,
		provideHandlerOptions,
		deliveryHTTP.NewHandlers,
		deliveryHTTP.NewServer,
	),
	fx.Invoke(registerServerHooks),
)

// MigrateModule applies the database migrations and stops.
var MigrateModule = fx.Options(
	CommonModule,
	fx.Invoke(registerMigrateHook),
)

func providePool(lc fx.Lifecycle, cfg *config.Config, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(pool.Close))
	return pool, nil
}

func provideAMQP(lc fx.Lifecycle, cfg *config.Config) (*amqp.Connection, error) {
	conn, err := rabbitmq.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(conn.Close))
	return conn, nil
}

func providePublisher(lc fx.Lifecycle, conn *amqp.Connection, logger *zerolog.Logger) (*rabbitmq.Publisher, error) {
	publisher, err := rabbitmq.NewPublisher(conn, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(publisher.Close))
	return publisher, nil
}

// provideClaimer returns a nil claimer when Redis is not configured.
func provideClaimer(lc fx.Lifecycle, cfg *config.Config, logger *zerolog.Logger) (repo.DeliveryClaimer, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn().Msg("redis address not set, queued notifications are delivered without a claim")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(client.Close))
	return redis.NewDeliveryClaimer(client, logger), nil
}

func provideLocale(cfg *config.Config, logger *zerolog.Logger) (*locale.Catalog, error) {
	return locale.New(cfg.Notifications.MessagesFile, logger)
}

func provideQueue(
	cfg *config.Config,
	gw notify.Gateway,
	localizer notify.Localizer,
	claimer repo.DeliveryClaimer,
	logger *zerolog.Logger,
) *notify.Queue {
	return notify.NewQueue(cfg.Notifications, gw, localizer, claimer, logger)
}

func provideHandlerOptions(cfg *config.Config) deliveryHTTP.Options {
	return deliveryHTTP.Options{
		WatchlistEnabled: cfg.Watchlist.Enabled,
		RequestTimeout:   cfg.HTTP.RequestTimeout,
	}
}

// registerServerHooks warms the catalog and the watch cache before any traffic is accepted,
// then starts the HTTP server and the events consumer.
func registerServerHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	server *deliveryHTTP.Server,
	events *consumer.Consumer,
	listings *catalog.Catalog,
	cache *watchlist.Cache,
	hub *session.Hub,
	executor *async.Executor,
	logger *zerolog.Logger,
) {
	log := logger.With().Str("component", "app").Logger()
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := listings.Load(ctx); err != nil {
				return err
			}
			if _, err := async.Await(ctx, cache.Load); err != nil {
				return err
			}

			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("http server failed")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			go func() {
				defer close(consumerDone)
				events.Start(consumerCtx)
			}()

			log.Info().Str("addr", cfg.HTTP.Port).Msg("server started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopConsumer()

			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
			defer cancel()

			var errs []error
			if err := server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			select {
			case <-consumerDone:
			case <-shutdownCtx.Done():
				errs = append(errs, shutdownCtx.Err())
			}
			if err := hub.Close(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			if err := executor.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	})
}

func registerMigrateHook(lc fx.Lifecycle, shutdowner fx.Shutdowner, pool *pgxpool.Pool, logger *zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				return err
			}
			return shutdowner.Shutdown()
		},
	})
}
