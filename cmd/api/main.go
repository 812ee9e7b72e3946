package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdnaeem95/hbbtool-sub002/api/controllers"
	"github.com/mdnaeem95/hbbtool-sub002/api/routes"
	"github.com/mdnaeem95/hbbtool-sub002/internal/checkout"
	"github.com/mdnaeem95/hbbtool-sub002/internal/merchants"
	"github.com/mdnaeem95/hbbtool-sub002/internal/notifications"
	"github.com/mdnaeem95/hbbtool-sub002/internal/orders"
	"github.com/mdnaeem95/hbbtool-sub002/internal/payments"
	"github.com/mdnaeem95/hbbtool-sub002/internal/products"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/config"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/metrics"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/migrate"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/pubsub"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{"db": dbClient}

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		pingers["redis"] = redisClient
	}

	sink := notifications.NewLogSink(logg)
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		pingers["pubsub"] = pubsubClient
		sink = notifications.NewPubSubSink(pubsubClient.NotificationPublisher(), logg)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	var sessionStore checkout.SessionStore
	if cfg.Checkout.SessionStore == "redis" {
		if redisClient == nil {
			logg.Error(context.Background(), "redis session store selected without redis config", nil)
			os.Exit(1)
		}
		sessionStore = checkout.NewRedisStore(redisClient)
	} else {
		sessionStore = checkout.NewGormStore(dbClient.DB())
	}

	merchantSvc, err := merchants.NewService(merchants.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create merchants service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(
		sessionStore,
		merchantSvc,
		products.NewRepository(dbClient.DB()),
		checkoutMetrics,
		cfg.Checkout.SessionTTL,
		cfg.Delivery.BaseETAMinutes,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())

	orderFactory, err := orders.NewFactory(dbClient, sessionStore, merchantSvc, ordersRepo, checkoutMetrics, sink)
	if err != nil {
		logg.Error(context.Background(), "failed to create order factory", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(dbClient, ordersRepo, sink)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		dbClient,
		payments.NewRepository(dbClient.DB()),
		ordersRepo,
		sink,
		checkoutMetrics,
		cfg.Payments.MaxProofsPerPayment,
		cfg.Payments.MaxProofSizeBytes,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Pingers:  pingers,
			Checkout: checkoutSvc,
			Factory:  orderFactory,
			Orders:   ordersSvc,
			Payments: paymentsSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
