package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/config"
	"github.com/AdamBeresnev/op-bracket/internal/db"
	"github.com/AdamBeresnev/op-bracket/internal/events"
	"github.com/AdamBeresnev/op-bracket/internal/metrics"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/service"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	wmmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	middleware.InitAuth(cfg.Auth)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Store = sqlite3store.New(database.DB)
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics, err := metrics.NewEngine(registry)
	if err != nil {
		log.Fatal("Failed to register metrics:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pubsub := events.NewGoChannel(logger)
	defer pubsub.Close()

	metricsBuilder := wmmetrics.NewPrometheusMetricsBuilder(registry, "op_bracket", "events")
	publisher, err := metricsBuilder.DecoratePublisher(pubsub)
	if err != nil {
		log.Fatal("Failed to decorate publisher:", err)
	}
	eventRouter, err := events.NewLogRouter(pubsub, logger)
	if err != nil {
		log.Fatal("Failed to create event router:", err)
	}
	metricsBuilder.AddPrometheusRouterMetrics(eventRouter)
	go func() {
		if err := eventRouter.Run(ctx); err != nil {
			logger.Error("Event router stopped", slog.Any("error", err))
		}
	}()

	rt := service.NewRuntime(database, cfg.Policy(),
		service.WithLogger(logger),
		service.WithMetrics(engineMetrics),
		service.WithPublisher(events.NewPublisher(publisher, logger)),
		service.WithRetry(cfg.Engine.RetryAttempts, 20*time.Millisecond),
	)

	tournaments := store.NewTournamentStore(database)
	participants := store.NewParticipantStore(database)
	users := store.NewUserStore(database)
	authz := service.RosterAuthorizer{}

	a := &app{
		cfg:            cfg,
		sessionManager: sessionManager,
		users:          users,
		registry:       registry,
		limiter:        middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		tournaments:    service.NewTournamentService(rt, tournaments, participants, authz),
		matches:        service.NewMatchService(rt, tournaments, authz),
		registrations:  service.NewRegistrationService(rt, tournaments, participants, authz),
		accounts:       service.NewUserService(users, cfg.IsAdminEmail),
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.Any("error", err))
	}
	if err := eventRouter.Close(); err != nil {
		logger.Error("Event router close failed", slog.Any("error", err))
	}
}
