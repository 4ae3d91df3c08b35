package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	intentApplication "github.com/rcarvalho-pb/storefront_payments-go/internal/application/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/notification"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/verification"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/worker"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/config"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/cache"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/eventbus"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/gateway/razorpay"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/gateway/sandbox"
	httpapi "github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/notify"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/outbox"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox dispatcher and notification delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogrusLogger(os.Stdout, cfg.Log.Level)
	counters := &metrics.Counters{}

	if cfg.SandboxSecrets {
		logger.Warn("using built-in sandbox secrets, do not accept real payments", nil)
	}

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	locker, err := newLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	bus := eventbus.NewInMemoryBus()
	recorder := &outbox.Recorder{Repo: store.Outbox}

	gate, err := verification.NewGate(store.Intents, recorder, locker, verification.Secrets{
		KeySecret:     cfg.Razorpay.KeySecret.Reveal(),
		WebhookSecret: cfg.Razorpay.WebhookSecret.Reveal(),
	})
	if err != nil {
		return err
	}
	gate.Logger = logger
	gate.Metrics = counters

	manager := &intentApplication.Manager{
		Repo:       store.Intents,
		Gateway:    newGateway(cfg),
		Currencies: cfg.Currencies,
		Logger:     logger,
		Metrics:    counters,
	}

	var sender contracts.EmailSender = notify.LogSender{Logger: logger}
	if key := cfg.SendGrid.APIKey.Reveal(); key != "" {
		sendgridSender, err := notify.NewSendGridSender(key)
		if err != nil {
			return err
		}
		sender = sendgridSender
	}

	inbox := notification.NewInbox(notification.DefaultCapacity)
	mailer := &notification.Mailer{
		Sender:     sender,
		From:       cfg.Notify.From,
		AdminEmail: cfg.Notify.AdminEmail,
		Logger:     logger,
	}

	deliverer := &worker.Deliverer{
		Sink: notify.Fanout{inbox, notify.LogSink{Logger: logger}, mailer},
		Retry: &worker.RetryScheduler{
			MaxRetry:  cfg.Retry.MaxAttempts,
			BaseDelay: cfg.Retry.BaseDelay,
			MaxDelay:  cfg.Retry.MaxDelay,
		},
		Logger:  logger,
		Metrics: counters,
		Timeout: cfg.Server.RequestTimeout,
	}
	webhooks := &worker.WebhookHandler{Logger: logger}

	bus.SubscribeAll(event.NotificationTypes, deliverer.Handle)
	bus.SubscribeAll(event.WebhookTypes, webhooks.Handle)

	dispatcher := &outbox.Dispatcher{
		Repo:         store.Outbox,
		EventBus:     bus,
		Logger:       logger,
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
	}
	go dispatcher.Run(ctx)

	validate := validator.New()
	router := httpapi.NewRouter(
		&httpapi.PaymentHandler{
			Intents:  manager,
			Gate:     gate,
			Logger:   logger,
			Validate: validate,
			Timeout:  cfg.Server.RequestTimeout,
		},
		&httpapi.AdminHandler{
			Intents:  manager,
			Inbox:    inbox,
			Mailer:   mailer,
			Metrics:  counters,
			Logger:   logger,
			Validate: validate,
		},
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server running", map[string]any{
			"port":    cfg.Server.Port,
			"gateway": cfg.Gateway.Mode,
			"storage": cfg.Storage.Driver,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	// flush whatever the last requests recorded
	dispatcher.DispatchOnce(shutdownCtx)
	return nil
}

func newGateway(cfg *config.Config) contracts.Gateway {
	if cfg.Gateway.Mode == config.ModeRazorpay {
		return razorpay.New(razorpay.Config{
			BaseURL:   cfg.Razorpay.BaseURL,
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret.Reveal(),
			Timeout:   cfg.Razorpay.Timeout,
		})
	}
	return &sandbox.Gateway{}
}

// newLocker returns nil for the in-process default when no Redis is configured.
func newLocker(ctx context.Context, cfg config.RedisConfig) (contracts.Locker, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	locker := cache.NewRedisLocker(cache.NewRedisClient(cfg.Addr, cfg.Password.Reveal(), cfg.DB))
	if err := locker.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return locker, nil
}
