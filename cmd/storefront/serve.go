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

	"github.com/spf13/cobra"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/fulfillment"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/pkg/circuitbreaker"
	"github.com/fjod/go_storefront/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	shutdownTracer, err := telemetry.SetupTracer(ctx, serviceName, cfg.App.Env)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	// the memory store starts empty on every run
	if cfg.Store.Driver == config.DriverMemory {
		if _, err := catalog.NewImporter(st).Import(ctx); err != nil {
			return err
		}
	}

	carts, closeCache := openCartCache(ctx, cfg)
	defer closeCache()

	publisher := newPublisher(cfg)
	defer publisher.Close()

	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
		slog.Warn("stripe keys not configured, checkout and webhooks will fail")
	}
	payments := payment.NewStripeProcessor(payment.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
	}, circuitbreaker.New(circuitbreaker.Settings{
		Name:        "stripe",
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}))

	router := h.NewRouter(h.Deps{
		Store:          st,
		Carts:          carts,
		Checkout:       checkout.NewService(st, payments, checkout.Config{BaseURL: cfg.App.BaseURL}),
		Webhooks:       fulfillment.NewHandler(payments, st, st, carts, publisher),
		Importer:       catalog.NewImporter(st),
		ImportSecret:   cfg.Import.SecretKey,
		UserHeader:     cfg.Auth.UserHeader,
		EmailHeader:    cfg.Auth.EmailHeader,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		Production:     cfg.App.Production(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefront starting", "port", cfg.HTTP.Port, "store", cfg.Store.Driver, "cart_sync", carts.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server exited")
	return nil
}
