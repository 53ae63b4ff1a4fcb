package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"replypilot/internal/adapters/gemini"
	server "replypilot/internal/adapters/http_server"
	"replypilot/internal/adapters/observability"
	"replypilot/internal/adapters/platform"
	redisad "replypilot/internal/adapters/redis"
	"replypilot/internal/app"
	"replypilot/internal/shared"
	mysqlrepo "replypilot/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(cfg.TraceStdout)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	model, err := gemini.New(ctx, cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Gemini client")
	}
	pc, err := platform.New(cfg.PlatformBase, cfg.PlatformRPS, cfg.PublishTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize platform client")
	}

	businesses := app.NewBusinessReader(repo, cache, cfg.CacheTTL)
	policy := app.DefaultRetryPolicy()
	policy.MaxAttempts, policy.BaseDelay, policy.Timeout = cfg.GenAttempts, cfg.GenBase, cfg.GenTimeout
	ctl := app.NewController(repo, businesses,
		app.NewGenerationService(model, policy),
		app.NewPublicationService(pc, repo, cfg.PublishTimeout))

	// http: the request must outlive the whole generation retry budget
	reqTimeout := time.Duration(policy.MaxAttempts)*(policy.Timeout+policy.MaxDelay) + cfg.PublishTimeout
	srv := server.New(reqTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Replies:    ctl,
		Businesses: businesses,
		Locks:      redisad.NewLocker(cache.Client()),
		LockTTL:    cfg.PostLockTTL,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Dur("request_timeout", reqTimeout).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
