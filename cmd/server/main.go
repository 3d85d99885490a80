package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shida/shida-core/internal/app"
	"github.com/shida/shida-core/internal/cache"
	"github.com/shida/shida-core/internal/config"
	"github.com/shida/shida-core/internal/db"
	"github.com/shida/shida-core/internal/logger"
	"github.com/shida/shida-core/internal/metrics"
	"github.com/shida/shida-core/internal/notify"
	"github.com/shida/shida-core/internal/ratelimit"
	"github.com/shida/shida-core/internal/server"
	"github.com/shida/shida-core/internal/service"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		log.Error("bad configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Client.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	appCtx := app.New(database, redisCache, log)
	appCtx.Metrics = m
	appCtx.Limiter = ratelimit.New(ratelimit.WithMetrics(m))

	sinks := notify.Fanout{notify.NewStore(database, log, m)}
	if len(cfg.Kafka.Brokers) > 0 {
		w := notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		defer w.Close()
		pub := notify.NewKafkaPublisher(w, log, m)
		defer pub.Close()
		sinks = append(sinks, pub)
		log.Info("publishing notifications to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.NotificationTopic)
	}
	appCtx.Notifier = sinks

	if cfg.App.ENV == "development" {
		if _, err := db.SeedDemoData(database, cfg.Tokens.SignupBalance, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// No RPC services are registered yet; the binary serves health and
	// reflection. Core is built at boot so a broken store or weight config
	// fails startup instead of the first request.
	core := service.NewCore(appCtx)
	weights, err := core.Compat.Weights(ctx)
	if err != nil {
		log.Error("failed to load matching weights", "err", err)
		os.Exit(1)
	}
	log.Info("matching weights loaded", "weights", weights)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.StartGRPCServer(gctx, cfg, log)
	})

	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
