package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/classic-carry/internal/cart"
	"github.com/jcmexdev/classic-carry/internal/catalog"
	"github.com/jcmexdev/classic-carry/internal/checkout"
	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog"
	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog/sqlite"
	"github.com/jcmexdev/classic-carry/internal/config"
	"github.com/jcmexdev/classic-carry/internal/pkg/cache"
	"github.com/jcmexdev/classic-carry/internal/pkg/session"
	"github.com/jcmexdev/classic-carry/internal/pkg/telemetry"
	"github.com/jcmexdev/classic-carry/internal/render"
	"github.com/jcmexdev/classic-carry/internal/storefront/httpx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := telemetry.ShutdownFunc(telemetry.NoopShutdown)
	if cfg.OTelEnabled {
		shutdown, err = telemetry.SetupTracer(ctx, telemetry.TracerConfig{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
		})
		if err != nil {
			slog.Error("failed to initialise tracer", "error", err)
			os.Exit(1)
		}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var checks []httpx.HealthCheck

	kv := cache.NewMemoryCache(cfg.ServiceName)
	if cfg.RedisAddr != "" {
		kv = cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
		if err := cache.Ping(ctx, kv); err != nil {
			// Carts degrade to empty while Redis is down; keep serving the catalog.
			slog.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		checks = append(checks, httpx.HealthCheck{
			Name:  "cache",
			Check: func(ctx context.Context) error { return cache.Ping(ctx, kv) },
		})
	}

	products, err := catalog.New()
	if err != nil {
		return err
	}

	carts := cart.NewStore(kv,
		cart.WithTTL(cfg.CartTTL),
		cart.WithPricing(cart.Pricing{
			DeliveryFee:           cfg.DeliveryFee,
			FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		}),
		cart.WithLogger(slog.Default().With("component", "cart")),
		cart.WithBadge(func(ctx context.Context, _ string, count int) {
			trace.SpanFromContext(ctx).SetAttributes(attribute.Int("cart.item_count", count))
		}),
	)

	var orders orderlog.Repository = orderlog.NewMemory()
	if cfg.OrderLogPath != "" {
		repo, err := sqlite.Open(cfg.OrderLogPath)
		if err != nil {
			return err
		}
		defer repo.Close()
		orders = repo
		checks = append(checks, httpx.HealthCheck{Name: "order_log", Check: repo.Ping})
	}

	forms := checkout.NewFormsClient(cfg.FormsEndpoint, cfg.FormsTimeout)
	if !forms.Enabled() {
		slog.Warn("FORMS_ENDPOINT not set, order notifications are disabled")
	}
	svc := checkout.NewService(carts, orders, forms, cfg.WhatsAppPhone, slog.Default().With("component", "checkout"))

	tmpl, err := render.NewTemplates()
	if err != nil {
		return err
	}
	sessions := session.NewManager(cfg.SessionSecret, cfg.SecureCookies)

	handler := httpx.NewHandler(products, carts, svc, tmpl, sessions, checks...)
	router := httpx.NewRouter(handler, httpx.RouterOptions{
		Sessions:       sessions,
		CORSOrigins:    cfg.CORSOrigins,
		CheckoutWindow: cfg.CheckoutWindow,
		ImagesDir:      cfg.ImagesDir,
		ServiceName:    cfg.ServiceName,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefront running", "addr", cfg.HTTPAddr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
