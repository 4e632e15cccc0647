package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wordspark-server/internal/config"
	"wordspark-server/internal/content"
	"wordspark-server/internal/design"
	"wordspark-server/internal/handler"
	appLogger "wordspark-server/internal/logger"
	"wordspark-server/internal/middleware"
	"wordspark-server/internal/orchestrator"
	"wordspark-server/internal/parser"
	"wordspark-server/internal/prompt"
	"wordspark-server/internal/service"
	"wordspark-server/internal/topic"
	"wordspark-server/internal/vocab"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Starting WordSpark server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := appLogger.New(appLogger.Config{
		Level: cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Read-only content and vocabulary are loaded once, here; everything
	// downstream treats them as immutable.
	provider := content.NewProvider(logger)
	if err := provider.LoadFromDir(cfg.PromptsDir); err != nil {
		logger.Fatal("Failed to load prompt templates", zap.Error(err))
	}

	bank := vocab.NewBank(logger)
	if err := bank.LoadFromDir(cfg.VocabDir); err != nil {
		logger.Fatal("Failed to load vocabulary word lists", zap.Error(err))
	}

	aiClient, err := service.NewAIClient(cfg)
	if err != nil {
		logger.Fatal("Failed to create AI client", zap.Error(err))
	}

	resolver := topic.NewResolver()
	assembler := prompt.NewAssembler(provider, logger)
	respParser := parser.NewParser()
	designer := design.NewController(cfg.AspectsPerEntity, logger)

	orch := orchestrator.NewOrchestrator(cfg, aiClient, bank, resolver, assembler, respParser, designer, provider, logger)
	chatHandler := handler.NewChatHandler(orch, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.GinZapLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	prom := ginprometheus.NewPrometheus("wordspark")
	prom.Use(router)

	chatHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
