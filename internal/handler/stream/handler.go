package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/gemini-chat/backend/internal/handler/view"
	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/render"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/pkg/utils"
)

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// ServeHTTP reads the submission from the "message" query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.HandleStreamRequest(r.Context(), w, r.URL.Query().Get("message")); err != nil {
		h.logger.Error("stream request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
	}
}

// HandleStreamRequest submits userMessage and relays the reply as SSE frames. Precondition
// failures are answered with a plain status before any frame is written.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	if strings.TrimSpace(userMessage) == "" {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if !h.chatSvc.Configured() {
		utils.RespondError(w, http.StatusPreconditionFailed, (&chatService.ConfigurationError{Err: chatService.ErrNotConfigured}).Error())
		return nil
	}
	if h.chatSvc.Phase() != chatService.PhaseIdle {
		utils.RespondError(w, http.StatusConflict, chatService.ErrBusy.Error())
		return nil
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	// The generation outlives a closed tab so the transcript always gets its assistant turn.
	Relay(context.WithoutCancel(ctx), h.chatSvc, userMessage, func(frame view.Frame) {
		if err := utils.SendSSEChunk(w, flusher, frame); err != nil {
			h.logger.Debug("dropping sse frame", zap.String("event", frame.Event), zap.Error(err))
		}
	})
	return nil
}

// Relay runs one submission and reports it through emit as start, delta, message, error
// and end frames. Empty input emits nothing; a refused submission emits error and end
// without a start.
func Relay(ctx context.Context, chatSvc *chatService.Service, userMessage string, emit func(view.Frame)) {
	sessionID := chatSvc.Session().ID
	if strings.TrimSpace(userMessage) == "" {
		return
	}

	var sent int
	turn, err := chatSvc.SubmitWithHooks(ctx, userMessage, chatService.Hooks{
		OnStart: func(user chat.Turn) {
			committed := view.NewTurnView(user)
			emit(view.Frame{
				Event:     "start",
				SessionID: sessionID,
				Content:   user.Content,
				Turn:      &committed,
			})
		},
		OnUpdate: func(buffer string) {
			fragment := buffer[sent:]
			sent = len(buffer)
			emit(view.Frame{
				Event:     "delta",
				SessionID: sessionID,
				Content:   fragment,
				Buffer:    buffer,
				Display:   render.Pending(buffer),
			})
		},
	})

	if err != nil {
		emit(view.ErrorFrame(sessionID, err))
	}

	var genErr *chatService.GenerationError
	if err == nil || errors.As(err, &genErr) {
		committed := view.NewTurnView(turn)
		emit(view.Frame{
			Event:     "message",
			SessionID: sessionID,
			Content:   committed.Content,
			Turn:      &committed,
		})
	}

	emit(view.Frame{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})
}
