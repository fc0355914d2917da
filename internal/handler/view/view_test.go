package view

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&chatService.ConfigurationError{Err: chatService.ErrNotConfigured}, KindConfiguration},
		{&chatService.GenerationError{Stage: chatService.StageStream, Err: errors.New("eof")}, KindGeneration},
		{fmt.Errorf("submit: %w", chatService.ErrBusy), KindBusy},
		{chatService.ErrEmptyInput, KindEmpty},
		{errors.New("boom"), KindInternal},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorKind(tc.err), tc.err.Error())
	}
}

func TestNewTurnViewRendersMarkdown(t *testing.T) {
	turn := chat.AssistantTurn("*hi*")

	v := NewTurnView(turn)

	assert.Equal(t, turn.ID, v.ID)
	assert.Equal(t, chat.RoleAssistant, v.Role)
	assert.Equal(t, "*hi*", v.Content)
	assert.Contains(t, v.HTML, "<em>hi</em>")
}

func TestNewSessionViewHidesCredential(t *testing.T) {
	svc := chatService.NewService("Hello", nil, nil)

	v := NewSessionView(svc, ModelInfo{Provider: "gemini", Model: "gemini-1.5-flash"})

	assert.False(t, v.Configured)
	assert.Equal(t, "idle", v.Phase)
	assert.Equal(t, "gemini-1.5-flash", v.Model)
	if assert.Len(t, v.Turns, 1) {
		assert.Equal(t, "Hello", v.Turns[0].Content)
	}
}
