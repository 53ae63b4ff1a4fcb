package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"replypilot/internal/adapters/gemini"
	"replypilot/internal/adapters/observability"
	"replypilot/internal/adapters/platform"
	redisad "replypilot/internal/adapters/redis"
	"replypilot/internal/app"
	"replypilot/internal/shared"
	mysqlrepo "replypilot/internal/storage/mysql"
)

// autoreply drafts replies for one batch of waiting reviews and posts the
// ratings whose auto-reply policy is on. Run it from a scheduler.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	shutdownTracing, err := observability.InitTracing(cfg.TraceStdout)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	log.Info().
		Int("workers", cfg.AutoReplyWorkers).
		Int("batch", cfg.AutoReplyBatch).
		Msg("auto-reply starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
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

	svc := app.NewAutoReplyService(repo, businesses, ctl, redisad.NewLocker(cache.Client()), cfg.PostLockTTL, cfg.AutoReplyWorkers)
	sum, err := svc.Run(ctx, cfg.AutoReplyBatch)
	if err != nil {
		log.Error().Err(err).Msg("auto-reply run aborted")
	}
	log.Info().
		Int("seen", sum.Seen).
		Int("generated", sum.Generated).
		Int("posted", sum.Posted).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("auto-reply completed")
}
