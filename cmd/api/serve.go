package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ntentasd/fitmetrics-api/internal/cache"
	"github.com/ntentasd/fitmetrics-api/internal/config"
	"github.com/ntentasd/fitmetrics-api/internal/db"
	"github.com/ntentasd/fitmetrics-api/internal/kafka"
	"github.com/ntentasd/fitmetrics-api/internal/routes"
	"github.com/ntentasd/fitmetrics-api/internal/service"
	"github.com/ntentasd/fitmetrics-api/internal/tracing"
	"github.com/ntentasd/fitmetrics-api/internal/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("http-addr", ":8080", "listen address")
	f.String("cache-driver", config.CacheDriverValkey, "cache backend (valkey, memcached, none)")
	f.String("cache-prefix", "fitmetrics", "namespace prepended to every cache key")
	f.Duration("cache-ttl", 5*time.Minute, "default cache entry lifetime")
	f.Int("cache-pool-size", 10, "cache connection pool size")
	f.Int64("cache-scan-batch", 100, "keys requested per SCAN round-trip")
	f.Duration("cache-interval", 15*time.Second, "cache health probe interval")
	f.StringSlice("memcached-addrs", []string{"localhost:11211"}, "memcached servers")
	f.StringSlice("kafka-brokers", nil, "kafka brokers; empty disables workout events")
	f.String("kafka-topic", kafka.DefaultTopic, "workout events topic")
	f.String("kafka-group", "fitmetrics-api", "consumer group of the invalidation watcher")
	f.String("tempo-endpoint", "", "OTLP/gRPC trace endpoint; empty disables tracing")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.TempoEndpoint)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	store, err := db.Connect(cfg.ScyllaNodes, cfg.ScyllaKeyspace)
	if err != nil {
		return fmt.Errorf("connecting to scylla: %w", err)
	}
	defer store.Close()

	cm, err := newCacheManager(cfg, logger)
	if err != nil {
		return err
	}
	var cacheHealth routes.CacheHealth
	if cm != nil {
		// an unreachable cache degrades to uncached reads; the supervisor
		// keeps redialing
		_ = cm.Connect(ctx)
		defer cm.Disconnect()

		sv := worker.NewSupervisor(cm, cfg.CacheInterval, logger)
		sv.Start(ctx)
		defer sv.Stop()

		cacheHealth = cm
	}

	inv := cache.NewInvalidator(cm, service.OwnerMetricsPattern)

	var pub service.Publisher = kafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Warn().Err(err).Msg("workout events disabled")
		} else {
			defer p.Close()
			pub = p
		}

		w := kafka.NewWatcher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, inv, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("invalidation watcher exited")
			}
		}()
	}

	app := routes.New(
		service.NewMetricsService(store, cm),
		service.NewWorkoutService(store, inv, pub, logger),
		store,
		cacheHealth,
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.NewMux(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newCacheManager returns nil when caching is disabled.
func newCacheManager(cfg *config.Config, logger zerolog.Logger) (*cache.Manager, error) {
	var dial cache.Dialer

	switch cfg.CacheDriver {
	case config.CacheDriverNone:
		logger.Info().Msg("caching disabled")
		return nil, nil
	case config.CacheDriverMemcached:
		dial = cache.MemcachedDialer(cfg.CachePoolSize, cfg.MemcachedAddrs...)
	default:
		addrs, err := cfg.ValkeyAddrs()
		if err != nil {
			return nil, err
		}
		dial = cache.ValkeyDialer(cache.ValkeyOptions{
			Addrs:    addrs,
			Password: cfg.ValkeyPassword,
			PoolSize: cfg.CachePoolSize,
		})
	}

	return cache.NewManager(dial,
		cache.WithPrefix(cfg.CachePrefix),
		cache.WithDefaultTTL(cfg.CacheTTL),
		cache.WithScanBatch(cfg.CacheScanBatch),
		cache.WithLogger(logger.With().Str("component", "cache").Logger()),
	), nil
}
