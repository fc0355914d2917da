package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/gemini-chat/backend/internal/config"
	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
)

// Service replays a transcript through a compiled chat chain.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewResponder builds the configured provider's chat model for one credential and wraps it
// in a Service.
func NewResponder(ctx context.Context, cfg config.AIConfig, credential string) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewService(ctx, chatModel)
}

// NewService compiles the history + query chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// StreamResponse streams the reply to userText given the committed history.
func (s *Service) StreamResponse(ctx context.Context, history []chat.Turn, userText string) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.chain.Stream(ctx, buildChainInput(history, userText))
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

func buildChainInput(history []chat.Turn, userText string) map[string]any {
	return map[string]any{
		"history": buildHistoryMessages(history),
		"query":   userText,
	}
}

// buildHistoryMessages keeps every turn in order; the whole transcript is replayed.
func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}

	return history
}
