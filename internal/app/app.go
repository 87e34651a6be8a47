// Package app wires the kiosk API server together: configuration, database,
// domain services, HTTP transport, and lifecycle management.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/cafe-kiosk/internal/domain/order"
	"github.com/xenking/cafe-kiosk/internal/domain/product"
	"github.com/xenking/cafe-kiosk/internal/domain/statistics"
	"github.com/xenking/cafe-kiosk/internal/handler"
	"github.com/xenking/cafe-kiosk/internal/repository"
	"github.com/xenking/cafe-kiosk/pkg/health"
	"github.com/xenking/cafe-kiosk/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	stockRepo := repository.NewStockRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	orderQueryRepo := repository.NewOrderQueryRepository(pool)
	mailHistoryRepo := repository.NewMailHistoryRepository(pool)
	txm := repository.NewTxManager(pool)

	// Domain services.
	productService := product.NewService(productRepo, txm)
	orderService := order.NewService(productRepo, stockRepo, orderRepo, txm)
	statsService := statistics.NewService(
		orderQueryRepo,
		statistics.NewLogMailClient(lg.Named("mail")),
		mailHistoryRepo,
	)
	go runDailyStatistics(ctx, lg, statsService, cfg.Statistics.Recipient)

	// HTTP routes: health endpoints + the versioned API.
	h := handler.New(orderService, orderQueryRepo, productService)
	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Register(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("kiosk-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// runDailyStatistics sends the sales summary for the completed day shortly
// after every local midnight.
func runDailyStatistics(ctx context.Context, lg *zap.Logger, svc *statistics.Service, recipient string) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			Add(24*time.Hour + time.Minute)

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}

		day := next.Add(-time.Hour) // inside the day that just ended
		if _, err := svc.SendOrderStatisticsMail(ctx, day, recipient); err != nil {
			lg.Error("Send order statistics mail",
				zap.Time("day", day),
				zap.Error(err))
		}
	}
}
