package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/gemini-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler/view"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler drives the session over a WebSocket: the same frames as the SSE endpoint plus
// reset and credential commands.
type Handler struct {
	chatSvc  *chatService.Service
	info     view.ModelInfo
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service, info view.ModelInfo, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		info:    info,
		logger:  logger,
		upgrader: websocket.Upgrader{
			// Leaving CheckOrigin nil keeps gorilla's same-origin check; the socket can
			// change the credential and submit messages.
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer wsConn.Close()

	c := &conn{ws: wsConn}
	sessionID := h.chatSvc.Session().ID
	h.logger.Info("websocket connected", zap.String("sessionId", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, wsConn)

	h.sendSession(c, "session")

	for {
		var msg inboundMessage
		if err := wsConn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		h.handleMessage(ctx, c, &msg)

		// A long generation blocks reads; restart the deadline once it is done.
		wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, msg *inboundMessage) {
	switch msg.Type {
	case "submit":
		stream.Relay(context.WithoutCancel(ctx), h.chatSvc, msg.Text, func(frame view.Frame) {
			h.send(c, frame)
		})
	case "reset":
		if err := h.chatSvc.Reset(ctx); err != nil {
			h.send(c, view.ErrorFrame(h.chatSvc.Session().ID, err))
			return
		}
		h.sendSession(c, "session")
	case "credential":
		if err := h.chatSvc.Configure(ctx, msg.Text); err != nil {
			h.send(c, view.ErrorFrame(h.chatSvc.Session().ID, err))
			return
		}
		h.sendSession(c, "session")
	default:
		h.send(c, view.Frame{
			Event: "error",
			Kind:  view.KindProtocol,
			Error: "unsupported message type: " + msg.Type,
		})
	}
}

func (h *Handler) sendSession(c *conn, event string) {
	session := view.NewSessionView(h.chatSvc, h.info)
	h.send(c, view.Frame{
		Event:     event,
		SessionID: session.SessionID,
		Session:   &session,
	})
}

func (h *Handler) send(c *conn, frame view.Frame) {
	if err := c.writeJSON(frame); err != nil {
		h.logger.Debug("websocket write failed", zap.String("event", frame.Event), zap.Error(err))
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, wsConn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wsConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
