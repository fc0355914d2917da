package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/gemini-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/view"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/gemini-chat/backend/internal/middleware"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/web"
	"github.com/zhouzirui/gemini-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, info view.ModelInfo, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(chatSvc, info, logger)
	streamHandler := stream.New(chatSvc, logger)
	wsHandler := ws.New(chatSvc, info, logger)

	r.Get("/", web.Index)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		api.Method(http.MethodGet, "/stream", streamHandler)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
