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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"creditlens/internal/audit"
	"creditlens/internal/bureaucache"
	cachemetrics "creditlens/internal/bureaucache/metrics"
	"creditlens/internal/platform/config"
	"creditlens/internal/platform/health"
	"creditlens/internal/platform/httpserver"
	"creditlens/internal/platform/kafka"
	"creditlens/internal/platform/logger"
	"creditlens/internal/platform/metrics"
	"creditlens/internal/platform/postgres"
	"creditlens/internal/platform/redis"
	"creditlens/internal/provider"
	"creditlens/internal/provider/crif"
	providermetrics "creditlens/internal/provider/metrics"
	providerstore "creditlens/internal/provider/store"
	"creditlens/internal/records"
	"creditlens/internal/report/handler"
	"creditlens/internal/report/service"
	"creditlens/pkg/requestcontext"
)

// main wires dependencies, exposes the HTTP router and keeps the server
// lifecycle small. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	checks := map[string]health.Check{}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	var store records.Store
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db, records.Schema); err != nil {
			return err
		}
		store = records.NewPostgres(db)
		checks["postgres"] = db.PingContext
		log.Info("using postgres record store")
	} else {
		store = records.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory record store")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var responses provider.ResponseCache
	if rdb != nil {
		defer rdb.Close()
		responses = providerstore.NewRedis(rdb.Client)
		checks["redis"] = rdb.Health
	} else {
		responses = providerstore.NewInMemory(10 * time.Minute)
		log.Warn("REDIS_URL not set, using in-process vendor cache")
	}

	crifClient, err := crif.New(cfg.CRIF.BaseURL, cfg.CRIF.APIKey, cfg.CRIF.Timeout,
		crif.WithSandbox(cfg.CRIF.Sandbox),
		crif.WithRateLimit(cfg.CRIF.RatePerS, cfg.CRIF.RateBurst),
		crif.WithLogger(log),
		crif.WithMetrics(providermetrics.New()),
	)
	if err != nil {
		return err
	}
	crifFetcher, err := provider.NewCached(crifClient, responses, cfg.VendorCacheTTL, log)
	if err != nil {
		return err
	}

	var sink audit.Sink
	producer, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		sink = audit.NewKafkaSink(producer, cfg.Kafka.AuditTopic)
		checks["kafka"] = producer.Ping
	} else {
		sink = audit.NewInMemorySink()
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
	}
	buffer := audit.NewRingBuffer(0)
	worker := audit.NewWorker(buffer, sink, audit.WithWorkerLogger(log))

	sessions := bureaucache.NewSessions(store, cfg.SessionTTL, cachemetrics.New(), bureaucache.WithLogger(log))
	svc := service.New(store, sessions,
		service.WithLogger(log),
		service.WithAuditor(audit.NewPublisher(buffer)),
		service.WithFetcher(crifFetcher),
	)

	httpMetrics := metrics.New()
	router := chi.NewRouter()
	router.Use(requestcontext.Middleware)
	router.Use(chimiddleware.Recoverer)
	router.Use(httpMetrics.Middleware)
	router.Get("/healthz", health.Handler(2*time.Second, checks))
	router.Handle("/metrics", metrics.Handler())
	handler.New(svc, log).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting creditlens", "addr", cfg.Server.Addr, "crif_sandbox", cfg.CRIF.Sandbox)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
