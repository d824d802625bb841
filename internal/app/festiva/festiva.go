// Package festiva собирает HTTP-сервис: хранилище, кеш, клиент провайдера,
// брокер уведомлений, сервисы и маршруты.
package festiva

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/festiva/festiva/internal/cache"
	"github.com/festiva/festiva/internal/config"
	"github.com/festiva/festiva/internal/lib/jwt"
	"github.com/festiva/festiva/internal/lib/rabbitmq"
	"github.com/festiva/festiva/internal/lib/sl"
	"github.com/festiva/festiva/internal/metrics"
	"github.com/festiva/festiva/internal/migrations"
	"github.com/festiva/festiva/internal/paymentprovider"
	cardsservice "github.com/festiva/festiva/internal/services/cards"
	paymentservice "github.com/festiva/festiva/internal/services/payment"
	subservice "github.com/festiva/festiva/internal/services/subscription"
	"github.com/festiva/festiva/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-приложение Festiva.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New инициализирует зависимости и маршруты. Redis и RabbitMQ подключаются,
// только если заданы их адреса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db}

	var (
		paymentCache paymentservice.Cache
		subCache     subservice.Cache
		publisher    paymentservice.Publisher
	)
	if cfg.AddressRedis != "" {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, err
		}
		paymentCache, subCache = app.cache, app.cache
	} else {
		logger.Warn("redis address is not set, subscription cache disabled")
	}

	if cfg.RabbitMQURL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, err
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			app.close()
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(app.ch)
	} else {
		logger.Warn("rabbitmq url is not set, activation notices disabled")
	}

	providerClient := paymentprovider.NewClient(cfg.APIURL, cfg.APIKey, cfg.RequestTimeout)
	m := metrics.New(prometheus.DefaultRegisterer)

	paymentService := paymentservice.New(logger, paymentservice.Config{
		ProviderName: cfg.ProviderName,
		Term:         cfg.Term,
	}, db, providerClient, paymentCache, publisher, m)
	subscriptionService := subservice.New(db, subCache, cfg.CacheTTL, logger)
	cardsService := cardsservice.New(db, subscriptionService, cfg.FreeCardLimit, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Verifier:      jwt.NewVerifier(cfg.JWTSecretKey, cfg.Issuer, cfg.Audience),
		Payments:      paymentService,
		Subscriptions: subscriptionService,
		Cards:         cardsService,
		DB:            db.DB,
		WebhookSecret: cfg.WebhookSecret,
		VerifyRPS:     cfg.VerifyRPS,
		VerifyBurst:   cfg.VerifyBurst,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
