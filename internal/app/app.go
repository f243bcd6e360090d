package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/souq-marketplace/internal/domain/address"
	"github.com/xenking/souq-marketplace/internal/domain/cart"
	"github.com/xenking/souq-marketplace/internal/domain/order"
	"github.com/xenking/souq-marketplace/internal/domain/payment"
	"github.com/xenking/souq-marketplace/internal/handler"
	"github.com/xenking/souq-marketplace/internal/storage/postgres"
	"github.com/xenking/souq-marketplace/pkg/health"
	"github.com/xenking/souq-marketplace/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the payment
// reconciler, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadiness("postgres", 5*time.Second, health.Ping(pool))
	healthSvc.AddLiveness("goroutines", time.Second, health.GoroutineCount(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Storage.
	store := postgres.NewStore(pool)
	productRepo := store.Products()
	orderRepo := store.Orders()

	// Domain services.
	pricer := cart.NewPricer(productRepo)
	addressSync := address.NewSynchronizer(store.Addresses())
	orderService := order.NewService(store.OrderUnitOfWork(), orderRepo, pricer, addressSync)

	paypalClient := payment.NewPayPalClient(payment.PayPalConfig{
		BaseURL:  cfg.PayPal.BaseURL,
		ClientID: cfg.PayPal.ClientID,
		Secret:   cfg.PayPal.Secret,
		Currency: cfg.PayPal.Currency,
	})
	ziinaClient := payment.NewZiinaClient(payment.ZiinaConfig{
		BaseURL:    cfg.Ziina.BaseURL,
		APIKey:     cfg.Ziina.APIKey,
		SuccessURL: cfg.Ziina.SuccessURL,
		CancelURL:  cfg.Ziina.CancelURL,
	})
	paymentService := payment.NewService(
		store.PaymentUnitOfWork(), orderRepo, orderService, pricer,
		paypalClient, ziinaClient,
	)
	reconciler := payment.NewReconciler(store.PaymentUnitOfWork(), orderRepo, cfg.Reconcile.Timeout)

	// HTTP surface.
	auth := handler.NewAuthenticator(cfg.JWTSecret)
	h := handler.New(orderService, paymentService, pricer, auth, healthSvc)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(h.Routes(), "souq-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reconciler.Run(zctx.Base(ctx, lg.Named("reconciler")), cfg.Reconcile.Interval)
	})

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
