package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/adapters/audio"
	"github.com/all2prosperity/audio-svc/adapters/llm"
	"github.com/all2prosperity/audio-svc/adapters/mqtt"
	"github.com/all2prosperity/audio-svc/adapters/store"
	"github.com/all2prosperity/audio-svc/domain/repositories"
	"github.com/all2prosperity/audio-svc/internal/api"
	"github.com/all2prosperity/audio-svc/internal/auth"
	"github.com/all2prosperity/audio-svc/internal/config"
	"github.com/all2prosperity/audio-svc/internal/websocket"
	"github.com/all2prosperity/audio-svc/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(logger *zap.Logger) (err error) {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	model, err := newLLM(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var publisher repositories.Publisher
	if cfg.MQTTEnabled() {
		p, err := mqtt.NewPublisher(mqtt.Config{
			URL:    cfg.MQTTURL,
			APIKey: cfg.MQTTAPIKey,
			Secret: cfg.MQTTAPISecret,
		}, logger)
		if err != nil {
			return err
		}
		publisher = p
		logger.Info("Publishing to MQTT broker", zap.String("url", cfg.MQTTURL))
	}

	var signer *auth.Signer
	if cfg.JWTSecret != "" {
		if signer, err = auth.NewSigner(cfg.JWTSecret); err != nil {
			return err
		}
	}

	// Initialize usecase services
	roleService := usecase.NewRoleService(db, logger)
	if err := roleService.SeedDefault(ctx); err != nil {
		return fmt.Errorf("seeding default role: %w", err)
	}
	chatService := usecase.NewChatService(db, model, roleService, publisher, logger)
	streamService := usecase.NewStreamService(audio.NewEchoPipeline(logger), publisher, logger)

	// Initialize WebSocket hub with stream service
	hub := websocket.NewHub(streamService, cfg.StreamLinger, logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	defer stopHub()

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(api.CORSConfig))

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Chat:   chatService,
		Roles:  roleService,
		Hub:    hub,
		Signer: signer,
		Logger: logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("database", cfg.DatabaseDriver),
		zap.String("llm", cfg.LLMProvider),
		zap.Bool("jwt", signer != nil))

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case err := <-serverErr:
		return fmt.Errorf("shutting down the server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopHub()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func openStore(cfg config.Server, logger *zap.Logger) (repositories.Store, error) {
	if cfg.DatabaseDriver == "memory" {
		logger.Warn("Using in-memory store, data is lost on exit")
		return store.NewMemoryStore(), nil
	}
	return store.Open(store.Config{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
	}, logger)
}

func newLLM(ctx context.Context, cfg config.Server, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	switch cfg.LLMProvider {
	case "openai", "deepseek":
		return llm.NewOpenAILLM(llm.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			Model:     cfg.LLMModel,
			MaxTokens: cfg.LLMMaxTokens,
		}, logger)
	case "gemini":
		return llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			MaxTokens: cfg.LLMMaxTokens,
		}, logger)
	case "mock":
		logger.Warn("Using mock LLM")
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
