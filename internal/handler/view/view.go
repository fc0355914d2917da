// Package view holds the JSON shapes the page and the streaming transports exchange.
package view

import (
	"errors"

	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/render"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
)

// ModelInfo describes the upstream model shown in the sidebar.
type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// TurnView is a committed turn plus its rendered HTML.
type TurnView struct {
	ID      string    `json:"id"`
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
	HTML    string    `json:"html"`
}

// SessionView is the full state the page needs to draw itself.
type SessionView struct {
	SessionID  string     `json:"sessionId"`
	Configured bool       `json:"configured"`
	Phase      string     `json:"phase"`
	Provider   string     `json:"provider"`
	Model      string     `json:"model"`
	Turns      []TurnView `json:"turns"`
}

// Frame is one event of a submission, sent as an SSE data line or a WebSocket message.
type Frame struct {
	Event     string       `json:"event"`
	SessionID string       `json:"sessionId,omitempty"`
	Content   string       `json:"content,omitempty"`
	Buffer    string       `json:"buffer,omitempty"`
	Display   string       `json:"display,omitempty"`
	Turn      *TurnView    `json:"turn,omitempty"`
	Session   *SessionView `json:"session,omitempty"`
	Kind      string       `json:"kind,omitempty"`
	Error     string       `json:"error,omitempty"`
	Finished  bool         `json:"finished,omitempty"`
}

// Error kinds carried by error frames.
const (
	KindConfiguration = "configuration"
	KindGeneration    = "generation"
	KindBusy          = "busy"
	KindEmpty         = "empty"
	KindProtocol      = "protocol"
	KindInternal      = "internal"
)

// NewTurnView renders turn. HTML stays empty when rendering fails; the page then shows the
// raw content.
func NewTurnView(turn chat.Turn) TurnView {
	html, _ := render.Markdown(turn.Content)
	return TurnView{
		ID:      turn.ID,
		Role:    turn.Role,
		Content: turn.Content,
		HTML:    html,
	}
}

// NewSessionView snapshots svc for the page.
func NewSessionView(svc *chatService.Service, info ModelInfo) SessionView {
	session := svc.Session()

	turns := make([]TurnView, 0, len(session.Turns))
	for _, turn := range session.Turns {
		turns = append(turns, NewTurnView(turn))
	}

	return SessionView{
		SessionID:  session.ID,
		Configured: session.Configured,
		Phase:      string(svc.Phase()),
		Provider:   info.Provider,
		Model:      info.Model,
		Turns:      turns,
	}
}

// ErrorKind classifies a controller error for the client.
func ErrorKind(err error) string {
	var cfgErr *chatService.ConfigurationError
	var genErr *chatService.GenerationError

	switch {
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &genErr):
		return KindGeneration
	case errors.Is(err, chatService.ErrBusy):
		return KindBusy
	case errors.Is(err, chatService.ErrEmptyInput):
		return KindEmpty
	default:
		return KindInternal
	}
}

// ErrorFrame reports err to the client.
func ErrorFrame(sessionID string, err error) Frame {
	return Frame{
		Event:     "error",
		SessionID: sessionID,
		Kind:      ErrorKind(err),
		Error:     err.Error(),
	}
}
