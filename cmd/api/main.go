package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/koepon-app/koepon-backend/api"
	"github.com/koepon-app/koepon-backend/api/routes"
	authsvc "github.com/koepon-app/koepon-backend/internal/auth"
	"github.com/koepon-app/koepon-backend/internal/exchange"
	"github.com/koepon-app/koepon-backend/internal/gacha"
	"github.com/koepon-app/koepon-backend/internal/medals"
	"github.com/koepon-app/koepon-backend/internal/payments"
	"github.com/koepon-app/koepon-backend/internal/probability"
	"github.com/koepon-app/koepon-backend/internal/users"
	stripewebhook "github.com/koepon-app/koepon-backend/internal/webhooks/stripe"
	"github.com/koepon-app/koepon-backend/pkg/auth/session"
	"github.com/koepon-app/koepon-backend/pkg/config"
	"github.com/koepon-app/koepon-backend/pkg/db"
	"github.com/koepon-app/koepon-backend/pkg/logger"
	"github.com/koepon-app/koepon-backend/pkg/metrics"
	"github.com/koepon-app/koepon-backend/pkg/migrate"
	"github.com/koepon-app/koepon-backend/pkg/redis"
	pkgstripe "github.com/koepon-app/koepon-backend/pkg/stripe"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		Provider: payments.NewStripeProvider(stripeClient),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	exchangeRepo := exchange.NewRepository(dbClient.DB())
	exchangeService, err := exchange.NewService(exchangeRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create exchange service", err)
		os.Exit(1)
	}

	medalService, err := medals.NewService(medals.ServiceParams{
		Repo:            medals.NewRepository(dbClient.DB()),
		Catalog:         exchangeRepo,
		Tx:              dbClient,
		Cache:           redisClient,
		Logger:          logg,
		BalanceCacheTTL: cfg.Medals.BalanceCacheTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create medal service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	drawMetrics := metrics.NewDrawMetrics(registry)

	gachaService, err := gacha.NewService(gacha.ServiceParams{
		Repo:          gacha.NewRepository(dbClient.DB()),
		Payments:      paymentService,
		Medals:        medalService,
		Tx:            dbClient,
		Logger:        logg,
		Metrics:       drawMetrics,
		MedalsPerDraw: cfg.Gacha.MedalsPerDraw,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create gacha service", err)
		os.Exit(1)
	}

	probabilityService, err := probability.NewService(probability.ServiceParams{
		Repo:   probability.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create probability service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		Redis:              redisClient,
		Sessions:           sessionManager,
		AuthService:        authService,
		GachaService:       gachaService,
		PaymentService:     paymentService,
		MedalService:       medalService,
		ExchangeService:    exchangeService,
		ProbabilityService: probabilityService,
		StripeClient:       stripeClient,
		WebhookService:     webhookService,
		WebhookGuard:       webhookGuard,
		Metrics:            registry,
	})

	port := os.Getenv("PORT")
	if port != "" {
		cfg.App.Port = port
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"port":       cfg.App.Port,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg, router, logg)
	if err := server.Run(runCtx); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
