package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/gemini-chat/backend/internal/handler/view"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/pkg/utils"
)

// Handler 会话状态的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	info    view.ModelInfo
	logger  *zap.Logger
}

// New 创建会话处理器
func New(chatSvc *chatService.Service, info view.ModelInfo, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		info:    info,
		logger:  logger,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Put("/session/credential", h.handleConfigure)
	r.Post("/session/reset", h.handleReset)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, view.NewSessionView(h.chatSvc, h.info))
}

// handleConfigure 设置 API 凭证
func (h *Handler) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		APIKey string `json:"apiKey"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chatSvc.Configure(r.Context(), payload.APIKey); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, view.NewSessionView(h.chatSvc, h.info))
}

// handleReset 清空对话历史
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Reset(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrBusy) {
			status = http.StatusConflict
		}
		h.respondError(w, status, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, view.NewSessionView(h.chatSvc, h.info))
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.logger.Debug("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
