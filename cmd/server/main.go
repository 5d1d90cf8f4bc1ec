package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"provdir/internal/audit"
	jwttoken "provdir/internal/jwt_token"
	"provdir/internal/platform/config"
	"provdir/internal/platform/httpserver"
	"provdir/internal/platform/logger"
	platformmetrics "provdir/internal/platform/metrics"
	"provdir/internal/platform/middleware"
	platformredis "provdir/internal/platform/redis"
	providerhandler "provdir/internal/provider/handler"
	providermetrics "provdir/internal/provider/metrics"
	providerservice "provdir/internal/provider/service"
	providerstore "provdir/internal/provider/store"
	"provdir/internal/registry"
	"provdir/internal/registry/cache"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: postgres when configured, in-memory for local development.
	var (
		store   providerservice.Store
		storeTx providerservice.StoreTx
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx, providerstore.Schema); err != nil {
			log.Error("apply schema", "error", err)
			os.Exit(1)
		}
		store = providerstore.NewPostgres(db)
		storeTx = newProviderPostgresTx(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		mem := providerstore.NewMemory()
		store = mem
		storeTx = providerservice.NewMemoryTx(mem)
	}

	// Registry client: HTTP when configured, deterministic stub otherwise.
	var registryClient registry.Client
	if cfg.Registry.BaseURL != "" {
		registryClient = registry.NewHTTPClient(cfg.Registry)
	} else {
		log.Warn("REGISTRY_BASE_URL not set, using stub registry client")
		registryClient = registry.NewStubClient()
	}

	serviceOpts := []providerservice.Option{
		providerservice.WithLogger(log),
		providerservice.WithMetrics(providermetrics.New()),
		providerservice.WithPageSize(cfg.Registry.PageSize),
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		serviceOpts = append(serviceOpts,
			providerservice.WithListCache(cache.NewRedisListCache(redisClient.Client, config.ListCacheTTL)))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		asyncPublisher := audit.NewAsyncPublisher(kafkaPublisher, 256, log)
		go func() {
			if err := asyncPublisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		serviceOpts = append(serviceOpts, providerservice.WithAuditPublisher(asyncPublisher))
	}

	providerService := providerservice.New(store, storeTx, registryClient, serviceOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "provdir", "provdir-api")
	appMetrics := platformmetrics.New()

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.LatencyMiddleware(appMetrics))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		providerhandler.New(providerService, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting provdir", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
