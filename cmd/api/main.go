// Command api serves the storefront, back office and ops HTTP endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/campaigns"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/influencers"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	serviceName     = "api"
	shutdownTimeout = 20 * time.Second
)

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		bootstrap.Exit(logg, "failed to load config", err)
	}
	ctx, stop := bootstrap.Context(cfg, logg, serviceName)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		stop()
		bootstrap.Exit(logg, "api server stopped unexpectedly", err)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

// run serves until ctx is cancelled, then drains in-flight requests for up to
// shutdownTimeout.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer bootstrap.Close(logg, "database", dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer bootstrap.Close(logg, "redis", redisClient)

	services, err := buildServices(dbClient, logg)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	server := api.NewServer(cfg, routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, services))

	ctx = logg.WithField(ctx, "addr", server.Addr)
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildServices(dbClient *db.Client, logg *logger.Logger) (routes.Services, error) {
	gdb := dbClient.DB()

	campaignRepo := campaigns.NewRepository(gdb)
	influencerRepo := influencers.NewRepository(gdb)
	productRepo := products.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	publisher := outbox.NewService(outbox.NewRepository(gdb), logg)

	margins, err := pricing.NewMarginResolver(campaignRepo)
	if err != nil {
		return routes.Services{}, err
	}
	commissions, err := influencers.NewCommissionResolver(influencerRepo)
	if err != nil {
		return routes.Services{}, err
	}
	engine, err := pricing.NewEngine(productRepo, margins, commissions)
	if err != nil {
		return routes.Services{}, err
	}

	checkoutSvc, err := checkout.NewService(dbClient, engine, orderRepo, publisher,
		checkout.WithLogger(logg),
		checkout.WithMetrics(metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return routes.Services{}, err
	}
	ordersSvc, err := orders.NewService(orderRepo, dbClient, publisher)
	if err != nil {
		return routes.Services{}, err
	}
	campaignSvc, err := campaigns.NewService(campaignRepo)
	if err != nil {
		return routes.Services{}, err
	}
	influencerSvc, err := influencers.NewService(influencerRepo)
	if err != nil {
		return routes.Services{}, err
	}
	productSvc, err := products.NewService(dbClient, productRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Checkout:    checkoutSvc,
		Orders:      ordersSvc,
		Campaigns:   campaignSvc,
		Influencers: influencerSvc,
		Products:    productSvc,
		DeadLetters: outbox.NewDLQRepository(gdb),
	}, nil
}
