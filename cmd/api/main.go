package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/gemini-chat/backend/internal/config"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/view"
	"github.com/zhouzirui/gemini-chat/backend/internal/service/ai"
	"github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger(false).Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.NewLogger(cfg.Log.Debug)
	defer log.Sync()

	if envErr != nil {
		log.Debug("no .env file loaded, using process environment", zap.Error(envErr))
	}

	aiCfg := cfg.AI
	chatService := chat.NewService(cfg.Chat.Greeting, func(ctx context.Context, credential string) (chat.Responder, error) {
		responder, err := ai.NewResponder(ctx, aiCfg, credential)
		if err != nil {
			return nil, err
		}
		return responder, nil
	}, log.Named("chat"), chat.WithFallbackCredential(aiCfg.HasFallbackCredential()))

	if cfg.AI.APIKey != "" || aiCfg.HasFallbackCredential() {
		if err := chatService.Configure(ctx, cfg.AI.APIKey); err != nil {
			log.Warn("preset credential rejected, waiting for one from the page", zap.Error(err))
		}
	}

	info := view.ModelInfo{Provider: cfg.AI.Provider, Model: cfg.AI.Model}
	router := handler.NewRouter(chatService, info, log.Named("http"))

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("gemini chat listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
