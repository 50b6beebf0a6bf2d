// Command worker consumes order events from Pub/Sub and sends customer emails.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceName = "worker"

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		bootstrap.Exit(logg, "failed to load config", err)
	}
	ctx, stop := bootstrap.Context(cfg, logg, serviceName)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		bootstrap.Exit(logg, "worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		bootstrap.Close(logg, "redis", redisClient)
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}

	service, err := newWorker(cfg, logg, redisClient, pubsubClient)
	if err != nil {
		bootstrap.Close(logg, "pubsub client", pubsubClient)
		bootstrap.Close(logg, "redis", redisClient)
		return err
	}
	defer bootstrap.Close(logg, "worker clients", service)

	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}

func newWorker(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, pubsubClient *pubsub.Client) (*Service, error) {
	guard, err := idempotency.NewGuard(redisClient, notifications.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("create idempotency guard: %w", err)
	}
	if !cfg.SMTP.Enabled() {
		logg.Warn(context.Background(), "smtp not configured, order emails will be skipped")
	}
	orderConsumer, err := notifications.NewOrderConsumer(notifications.OrderConsumerParams{
		Subscription: pubsubClient.OrdersSubscription(),
		Idempotency:  guard,
		Decoders:     notifications.NewDecoders(),
		Mailer:       mailer.New(cfg.SMTP, logg),
		StoreName:    cfg.App.StoreName,
		Logger:       logg,
		Metrics:      metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer, "notifications"),
	})
	if err != nil {
		return nil, fmt.Errorf("create order notification consumer: %w", err)
	}
	return NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		Redis:     redisClient,
		PubSub:    pubsubClient,
		Consumers: map[string]consumer{notifications.ConsumerName: orderConsumer},
		Closers:   []io.Closer{pubsubClient, redisClient},
	})
}
