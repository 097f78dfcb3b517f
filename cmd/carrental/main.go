package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"carrental/internal/app/bookingquery"
	"carrental/internal/app/commands"
	bookingapp "carrental/internal/app/handlers/booking"
	notificationsapp "carrental/internal/app/handlers/notifications"
	paymentsapp "carrental/internal/app/handlers/payments"
	"carrental/internal/app/ledger"
	"carrental/internal/app/middleware"
	"carrental/internal/app/notify"
	"carrental/internal/app/outbox"
	apppayments "carrental/internal/app/payments"
	"carrental/internal/app/policies"
	"carrental/internal/app/queries"
	domainbooking "carrental/internal/domain/booking"
	domainnotification "carrental/internal/domain/notification"
	domainpricing "carrental/internal/domain/pricing"
	"carrental/internal/infra/broker/kafka"
	"carrental/internal/infra/config"
	ginserver "carrental/internal/infra/http/gin"
	"carrental/internal/infra/obs"
	infraoutbox "carrental/internal/infra/outbox"
	"carrental/internal/infra/security"
	"carrental/internal/infra/storage/s3"
	"carrental/internal/infra/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}()

	app, err := buildApplication(ctx, cfg, store, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready:   store.ready,
		Timeout: cfg.StoreTimeout,
	}, app.handlers)

	var wg sync.WaitGroup
	for name, run := range app.background {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "worker", name, "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	background map[string]func(context.Context) error
	closers    []func() error
}

func (a application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Default().Warn("close failed", "error", err)
		}
	}
}

func buildApplication(ctx context.Context, cfg config.Config, store *backend, logger *slog.Logger) (application, error) {
	app := application{background: map[string]func(context.Context) error{}}

	signer, err := apppayments.NewSigner(cfg.PaymentKeySecret)
	if err != nil {
		return app, err
	}
	verifier, err := security.NewTokenVerifier(cfg.JWTSecret)
	if err != nil {
		return app, err
	}
	images, err := imageResolver(cfg, logger)
	if err != nil {
		return app, err
	}

	var producer infraoutbox.Producer = logProducer{logger: logger}
	var sink domainnotification.Sink = notify.StoreSink{Factory: store.factory}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return app, err
		}
		app.closers = append(app.closers, kp.Close)
		producer = kp

		topic := cfg.KafkaTopicPrefix + kafka.NotificationsTopic
		sink = kafka.NotificationSink{Publisher: kp, Topic: topic}
		box, err := store.inbox(ctx, "notifications")
		if err != nil {
			return app, err
		}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, kafka.NotificationHandler{
			Inbox:  box,
			Store:  notify.StoreSink{Factory: store.factory},
			Logger: logger,
		}, logger)
		if err != nil {
			return app, err
		}
		app.closers = append(app.closers, consumer.Close)
		app.background["notifications-consumer"] = func(ctx context.Context) error {
			return consumer.Run(ctx, []string{topic})
		}
	}

	worker := &infraoutbox.Worker{
		Store:       store.relay,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	app.background["outbox-relay"] = worker.Run

	encoder := outbox.JSONEventEncoder{IDGenerator: uuid.NewString}
	notifier := &notify.Notifier{Sink: sink, Logger: logger}
	bookings := &ledger.Ledger{
		Factory:  store.factory,
		Quoter:   domainpricing.Quoter{Policy: cfg.Pricing},
		Policy:   domainbooking.CancellationPolicy{UserCancelAfterConfirm: cfg.UserCancelAfterConfirm},
		Encoder:  encoder,
		Notifier: notifier,
		Logger:   logger,
	}
	reconciler := &apppayments.Reconciler{
		Signer:   signer,
		Factory:  store.factory,
		Ledger:   bookings,
		Encoder:  encoder,
		Notifier: notifier,
		Logger:   logger,
	}
	views := &bookingquery.Service{Factory: store.factory, Images: images, Logger: logger}

	cmdRegistry := commands.NewRegistry()
	queryRegistry := queries.NewRegistry()
	bookingapp.Register(cmdRegistry, queryRegistry, bookingapp.Deps{Ledger: bookings, Service: views, Images: images})
	paymentsapp.Register(cmdRegistry, reconciler, nil)
	notificationsapp.Register(cmdRegistry, queryRegistry, store.factory)
	logger.Debug("buses ready", "commands", cmdRegistry.Keys())

	v := validation.New()
	commandBus := middleware.ChainCommands(
		cmdRegistry,
		middleware.Logging(logger),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.Validation(v),
		middleware.Authorization(apppayments.SignatureGate{Signer: signer}),
		middleware.OutboxFlush(worker, logger),
		middleware.Idempotency(store.idempotency, nil, logger),
		middleware.Transaction(store.factory, nil),
	)
	queryBus := middleware.ChainQueries(
		queryRegistry,
		middleware.QueryLogging(logger),
		middleware.QueryTimeout(cfg.RequestTimeout),
		middleware.QueryValidation(v),
	)

	app.handlers = ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		Payment:        ginserver.PaymentHandler{Commands: commandBus, Logger: logger},
		Notification:   ginserver.NotificationHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	}
	return app, nil
}

// imageResolver returns nil when no object store is configured; views then omit image URLs.
func imageResolver(cfg config.Config, logger *slog.Logger) (policies.ImageResolver, error) {
	if cfg.S3Endpoint == "" {
		return nil, nil
	}
	resolver, err := s3.NewImageResolver(s3.Options{
		Endpoint:      cfg.S3Endpoint,
		UseSSL:        cfg.S3UseSSL,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		PublicBaseURL: cfg.S3PublicEndpoint,
		PresignTTL:    cfg.S3PresignTTL,
	}, logger)
	if err != nil {
		return nil, err
	}
	return resolver, nil
}

// logProducer stands in for Kafka when no brokers are configured.
type logProducer struct {
	logger *slog.Logger
}

func (p logProducer) Publish(ctx context.Context, topic, key string, payload []byte, _ map[string]string) error {
	p.logger.DebugContext(ctx, "event published", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}
