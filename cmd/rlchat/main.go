package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aviroy619/rabbitloader-chat/internal/actions"
	"github.com/aviroy619/rabbitloader-chat/internal/chat"
	rlconfig "github.com/aviroy619/rabbitloader-chat/internal/config"
	"github.com/aviroy619/rabbitloader-chat/internal/kb"
	"github.com/aviroy619/rabbitloader-chat/internal/upstream"
	"github.com/aviroy619/rabbitloader-chat/pkg/config"
	"github.com/aviroy619/rabbitloader-chat/pkg/database"
	"github.com/aviroy619/rabbitloader-chat/pkg/llm"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
	"github.com/aviroy619/rabbitloader-chat/pkg/monitoring"
	"github.com/aviroy619/rabbitloader-chat/pkg/server"
	"github.com/aviroy619/rabbitloader-chat/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("rlchat")

	config.LoadEnv(logger)

	logger.Info("Starting rlchat (RabbitLoader Support Chat API)")

	cfg := rlconfig.LoadConfig()
	adminJWTSecret := config.RequireEnv("RL_ADMIN_JWT_SECRET")
	openAIKey := config.RequireEnv("OPENAI_API_KEY")
	cfg.LLMAPIKey = openAIKey

	// Database
	db := database.MustConnect(cfg.DatabaseURL, logger)
	defer func() { _ = db.Close() }()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	migrated, err := kb.EnsureEmbeddingDimensions(migrateCtx, db, cfg.EmbedDimensions)
	migrateCancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to verify embedding dimensions")
	}
	if migrated {
		logger.WithField("dimensions", cfg.EmbedDimensions).Warn("Embedding column migrated, knowledge base was truncated")
	}

	// Monitoring
	healthChecker := monitoring.NewHealthChecker("rlchat", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("rlchat", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL":        cfg.DatabaseURL,
		"OPENAI_API_KEY":      openAIKey,
		"RL_ADMIN_JWT_SECRET": adminJWTSecret,
	}))

	// LLM clients
	llmConfig := llm.Config{
		APIKey:     cfg.LLMAPIKey,
		APIURL:     cfg.LLMAPIURL,
		ChatModel:  cfg.ChatModel,
		EmbedModel: cfg.EmbedModel,
	}
	completer, err := llm.NewOpenAIClient(llmConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create completion client")
	}
	embedder, err := llm.NewOpenAIEmbedder(llmConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create embedding client")
	}

	// Knowledge base
	store := kb.NewStore(db)
	retriever := kb.NewRetriever(embedder, store,
		kb.DefaultTiers(cfg.AdminEditThreshold, cfg.PriorityQAThreshold, cfg.KBThreshold),
		cfg.TopK, logger)
	composer := kb.NewComposer(completer, logger)

	adminAPI, err := kb.NewAdminAPI(store, embedder, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create admin API")
	}

	// Upstream API client and action executor
	apiClient := upstream.NewClient(upstream.Config{
		V1Base:      cfg.APIV1Base,
		V2Base:      cfg.APIV2Base,
		Origin:      cfg.ClientOrigin,
		DNSFallback: cfg.DNSFallbackEnabled,
		Resolvers:   cfg.DNSResolvers,
	}, logger)

	resolver := &actions.Resolver{
		SubscriptionGetParams: cfg.SubscriptionGetParams,
		PlanUsageGetParams:    cfg.PlanUsageGetParams,
	}
	executor := actions.NewExecutor(apiClient, resolver, logger)

	// HTTP server
	router := server.SetupServiceRouter(logger, "rlchat", healthChecker, metricsCollector)

	chatHandler := chat.NewHandler(executor, retriever, composer, logger)
	chatHandler.RegisterRoutes(router)
	adminAPI.RegisterRoutes(router, []byte(adminJWTSecret))

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true})
	})

	srvConfig := server.DefaultConfig("rlchat", cfg.Port)
	if err := server.Start(srvConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
}
