package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/housesplit/internal/backend"
	"github.com/mmynk/housesplit/internal/config"
	"github.com/mmynk/housesplit/internal/events"
	"github.com/mmynk/housesplit/internal/guard"
	"github.com/mmynk/housesplit/internal/metrics"
	"github.com/mmynk/housesplit/internal/projection"
	"github.com/mmynk/housesplit/internal/server"
	"github.com/mmynk/housesplit/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	g, err := guard.New(guard.Config{
		Secret:        cfg.Guard.DeleteSecret,
		SecretHash:    cfg.Guard.DeleteSecretHash,
		CapabilityKey: cfg.Guard.CapabilityKey,
		CapabilityTTL: cfg.Guard.CapabilityTTL,
	})
	if err != nil {
		return err
	}
	if !g.Enabled() {
		slog.Warn("No delete secret configured, deletion is disabled")
	}

	store, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	m := metrics.New()

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		client, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey, m)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = client
		slog.Info("Publishing change events", "exchange", cfg.AMQP.Exchange, "routing_key", cfg.AMQP.RoutingKey)
	}

	projector := projection.New(cfg.Members(), m)
	unsubscribe, err := projector.Start(ctx, store)
	if err != nil {
		return fmt.Errorf("start projector: %w", err)
	}
	defer unsubscribe()

	router := server.NewRouter(server.Deps{
		Store:     store,
		Projector: projector,
		Guard:     g,
		Metrics:   m,
		Publisher: publisher,
		Roster:    cfg.Members(),
		Location:  loc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.H2C(router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.Info("Connect server starting",
			"address", srv.Addr,
			"url", fmt.Sprintf("http://localhost%s", srv.Addr),
			"backend", cfg.Store.Backend,
			"roster", cfg.Roster,
			"timezone", loc.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
