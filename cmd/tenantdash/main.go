package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/tenantdash/internal/adapter/bounded"
	cfhttp "github.com/Strob0t/tenantdash/internal/adapter/http"
	cfnats "github.com/Strob0t/tenantdash/internal/adapter/nats"
	"github.com/Strob0t/tenantdash/internal/adapter/natskv"
	cfotel "github.com/Strob0t/tenantdash/internal/adapter/otel"
	"github.com/Strob0t/tenantdash/internal/adapter/postgres"
	"github.com/Strob0t/tenantdash/internal/adapter/ristretto"
	"github.com/Strob0t/tenantdash/internal/adapter/tiered"
	"github.com/Strob0t/tenantdash/internal/config"
	"github.com/Strob0t/tenantdash/internal/logger"
	"github.com/Strob0t/tenantdash/internal/middleware"
	"github.com/Strob0t/tenantdash/internal/port/cache"
	"github.com/Strob0t/tenantdash/internal/port/messagequeue"
	"github.com/Strob0t/tenantdash/internal/service"
)

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		err = runAdmin(os.Args[2:])
	} else {
		err = run(os.Args[1:])
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"nats_enabled", cfg.NATS.URL != "",
		"otel_enabled", cfg.OTEL.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if cfg.Postgres.AutoMigrate {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	store := bounded.New(postgres.NewStore(pool), cfg.Storage.Timeout,
		bounded.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// Settings cache: ristretto L1, NATS KV L2 when NATS is configured.
	l1, err := ristretto.NewMB(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	var settingsCache cache.Cache = l1

	// NATS
	var queue messagequeue.Queue
	var natsQueue *cfnats.Queue
	if cfg.NATS.URL != "" {
		natsQueue, err = cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsQueue.Drain() }()
		queue = natsQueue

		l2, err := natskv.Open(ctx, natsQueue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			return fmt.Errorf("l2 cache: %w", err)
		}
		settingsCache = tiered.New(l1, l2, cfg.Cache.SettingsTTL)
	}

	// --- Services ---

	events := service.NewEventPublisher(queue)

	tokens, err := service.NewTokens(service.TokenConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Lifetime: cfg.Auth.TokenLifetime,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	authSvc, err := service.NewAuthService(store, &cfg.Auth, tokens, events)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	authSvc.SetMetrics(metrics)

	accessSvc := service.NewAccessService(tokens, events)
	accessSvc.SetMetrics(metrics)

	tenantSvc := service.NewTenantService(store, settingsCache, events, cfg.Cache.SettingsTTL, cfg.Storage.ThemeRetries)
	tenantSvc.SetMetrics(metrics)

	projectSvc := service.NewProjectService(store)

	if queue != nil {
		cancelInvalidation, err := tenantSvc.StartInvalidationSubscriber(ctx, queue)
		if err != nil {
			return fmt.Errorf("invalidation subscriber: %w", err)
		}
		defer cancelInvalidation()
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate)

	handlers := &cfhttp.Handlers{
		Auth:     authSvc,
		Access:   accessSvc,
		Tenants:  tenantSvc,
		Projects: projectSvc,
		DB:       store,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.Timeout(cfg.Server.WriteTimeout))

	cfhttp.MountRoutes(r, handlers, limiter)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	limiter.StartCleanup(gctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
