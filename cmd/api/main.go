package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/storefront-labs/storefront-backend/api/controllers"
	"github.com/storefront-labs/storefront-backend/api/routes"
	"github.com/storefront-labs/storefront-backend/internal/callable"
	cartsvc "github.com/storefront-labs/storefront-backend/internal/cart"
	checkoutsvc "github.com/storefront-labs/storefront-backend/internal/checkout"
	identitysvc "github.com/storefront-labs/storefront-backend/internal/identity"
	pricingsvc "github.com/storefront-labs/storefront-backend/internal/pricing"
	productsvc "github.com/storefront-labs/storefront-backend/internal/products"
	profilesvc "github.com/storefront-labs/storefront-backend/internal/profiles"
	twofactorsvc "github.com/storefront-labs/storefront-backend/internal/twofactor"
	"github.com/storefront-labs/storefront-backend/pkg/auth/session"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/metrics"
	"github.com/storefront-labs/storefront-backend/pkg/migrate"
	"github.com/storefront-labs/storefront-backend/pkg/pubsub"
	"github.com/storefront-labs/storefront-backend/pkg/redis"
	"github.com/storefront-labs/storefront-backend/pkg/square"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	callableClient, err := callable.NewClient(cfg.Callable, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create callable client", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment client", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pubsub client", err)
		os.Exit(1)
	}
	defer pubsubClient.Close()

	identityProvider, err := identitysvc.NewHTTPProvider(cfg.Identity, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity provider", err)
		os.Exit(1)
	}

	profileService, err := profilesvc.NewService(profilesvc.NewRepository(dbClient.DB()), dbClient, squareClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	identityService, err := identitysvc.NewService(identityProvider, sessionManager, profileService, callableClient, cfg.JWT, cfg.Identity, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	twoFactorService, err := twofactorsvc.NewService(redisClient, profileService, callableClient, cfg.Security, cfg.TwoFactor, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create two factor service", err)
		os.Exit(1)
	}

	productService, err := productsvc.NewService(productsvc.NewRepository(dbClient.DB()), callableClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartsvc.NewRepository(dbClient.DB()), dbClient, productService)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	pricingMetrics := metrics.NewPricingMetrics(prometheus.DefaultRegisterer)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	baseQuoter, err := pricingsvc.NewCallableQuoter(callableClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create quoter", err)
		os.Exit(1)
	}
	quoter, err := pricingsvc.NewRetryingQuoter(baseQuoter, cfg.Pricing.RetryAttempts, cfg.Pricing.RetryBackoff, pricingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create retrying quoter", err)
		os.Exit(1)
	}
	pricingService, err := pricingsvc.NewService(quoter, cfg.Pricing, pricingMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}
	defer pricingService.Close()

	checkoutValidator, err := checkoutsvc.NewValidator(callableClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout validator", err)
		os.Exit(1)
	}
	checkoutService, err := checkoutsvc.NewService(checkoutValidator, pricingService, cartService, squareClient, pubsubClient, cfg.Checkout, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		SessionChecker: sessionManager,
		HealthPingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Identity:  identityService,
		TwoFactor: twoFactorService,
		Profiles:  profileService,
		Products:  productService,
		Carts:     cartService,
		Pricing:   pricingService,
		Checkout:  checkoutService,
	})

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
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}
}
