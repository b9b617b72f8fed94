package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/adapters/llm"
	"github.com/wicara-ai/wicara/adapters/tts"
	"github.com/wicara-ai/wicara/internal/api"
	"github.com/wicara-ai/wicara/internal/chatlog"
	"github.com/wicara-ai/wicara/internal/config"
	"github.com/wicara-ai/wicara/internal/session"
	"github.com/wicara-ai/wicara/internal/websocket"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize adapters
	completion, err := llm.NewGeminiCompletion(ctx, llm.GeminiConfig{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.ChatModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize completion client", zap.Error(err))
	}

	synthesis, err := tts.NewGeminiSynthesis(ctx, tts.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.TTSModel,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize synthesis client", zap.Error(err))
	}

	chatLog, err := chatlog.New(cfg.LogFile, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chat log", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	deps := websocket.Deps{
		Completion: completion,
		Synthesis:  synthesis,
		ChatLog:    chatLog,
		Protocol: session.Config{
			DefaultVoice:      cfg.DefaultVoice,
			CompletionTimeout: cfg.CompletionTimeout,
			SynthesisTimeout:  cfg.SynthesisTimeout,
			CacheCapacity:     cfg.VoiceCacheCapacity,
		},
	}

	// Initialize API routes
	api.InitRoutes(e, hub, deps, logger, cfg.MetricsEnabled)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("chat_model", cfg.ChatModel),
		zap.String("tts_model", cfg.TTSModel))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
