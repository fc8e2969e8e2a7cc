package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medassist-ai/triage-platform/internal/api/router"
	"github.com/medassist-ai/triage-platform/internal/audit"
	"github.com/medassist-ai/triage-platform/internal/booking"
	"github.com/medassist-ai/triage-platform/internal/chat"
	"github.com/medassist-ai/triage-platform/internal/classifier"
	appconfig "github.com/medassist-ai/triage-platform/internal/config"
	"github.com/medassist-ai/triage-platform/internal/emergency"
	"github.com/medassist-ai/triage-platform/internal/hub"
	"github.com/medassist-ai/triage-platform/internal/llm"
	"github.com/medassist-ai/triage-platform/internal/observability/metrics"
	"github.com/medassist-ai/triage-platform/internal/session"
	"github.com/medassist-ai/triage-platform/internal/triage"
	"github.com/medassist-ai/triage-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting triage-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Text-generation clients. Both are optional; without them the
	// pipeline runs on keyword classification and template replies.
	llmClient := buildLLMClient(ctx, cfg, logger)

	// Storage. The database is optional for the chat flow; booking and
	// emergency endpoints are only mounted when it is configured.
	var (
		pool          *pgxpool.Pool
		db            *sql.DB
		auditLogger   *audit.Logger
		caseStore     emergency.CaseStore
		conversations chat.ConversationStore
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		auditLogger = audit.NewLogger(db, logger.Logger)
		caseStore = emergency.NewSQLCaseStore(db)
		conversations = chat.NewConversationStore(db)
	} else {
		logger.Warn("DATABASE_URL not set; running without persistence")
		auditLogger = audit.NewLogger(nil, logger.Logger)
	}

	// Slot locks. Redis gives cross-instance locking; the in-memory
	// locker covers single-instance deployments.
	var locks booking.SlotLocker
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		locks = booking.NewRedisLocker(redis.NewClient(opts))
		logger.Info("slot locks backed by redis", "addr", cfg.RedisAddr)
	} else {
		locks = booking.NewMemoryLocker()
	}

	// Core services.
	sessions := session.NewStore()
	alerts := hub.New(logger.Logger)
	pipelineMetrics := metrics.NewPipelineMetrics(nil)

	classifierModel := cfg.ClassifierModel
	if classifierModel == "" {
		classifierModel = cfg.BedrockModelID
	}
	cascade := classifier.NewCascade(llmClient, classifierModel, 0, logger.Logger)
	responder := chat.NewResponder(llmClient, cfg.BedrockModelID, sessions, logger.Logger).
		WithTimeout(cfg.LLMTimeout)
	orchestrator := triage.NewOrchestrator(triage.NewEngine(), caseStore, auditLogger, logger.Logger)

	pipeline := chat.NewPipeline(chat.PipelineDeps{
		Sessions:      sessions,
		Cascade:       cascade,
		Responder:     responder,
		Orchestrator:  orchestrator,
		Alerts:        alerts,
		Conversations: conversations,
		Audit:         auditLogger,
		Metrics:       pipelineMetrics,
		Logger:        logger.Logger,
	})

	// Stale sessions are reaped in the background for the process
	// lifetime.
	reaper := session.NewReaper(sessions, cfg.SessionMaxAge, cfg.SessionReapInterval, logger)
	go reaper.Run(ctx)

	routerCfg := &router.Config{
		ChatHandler:    chat.NewHandler(pipeline, alerts, pipelineMetrics, logger.Logger),
		MetricsHandler: promhttp.Handler(),
	}
	if pool != nil {
		bookingSvc := booking.NewService(pool, locks, auditLogger, logger.Logger)
		routerCfg.BookingHandler = booking.NewHandler(bookingSvc, locks, logger.Logger)
		routerCfg.EmergencyHandler = emergency.NewHandler(caseStore, logger.Logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMClient assembles the Bedrock-primary, Gemini-fallback client
// chain from whatever credentials are configured.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) llm.Client {
	var primary, fallback llm.Client

	if cfg.BedrockModelID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, disabling bedrock", "error", err)
		} else {
			primary = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
			logger.Info("bedrock LLM enabled", "model", cfg.BedrockModelID)
		}
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
		} else {
			fallback = gemini
			logger.Info("gemini LLM enabled", "model", cfg.GeminiModelID)
		}
	}

	switch {
	case primary != nil && fallback != nil:
		return llm.NewFallbackClient(primary, fallback, logger.Logger)
	case primary != nil:
		return primary
	case fallback != nil:
		return fallback
	default:
		logger.Warn("no LLM configured; using keyword classification and template replies")
		return nil
	}
}
