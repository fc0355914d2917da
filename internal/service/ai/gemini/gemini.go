// Package gemini adapts the Gemini API (google.golang.org/genai) to eino's BaseChatModel so it
// can be dropped into the same chains as any other eino chat model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// DefaultModel is used when the configuration leaves the model name empty.
const DefaultModel = "gemini-1.5-flash"

var (
	ErrMissingAPIKey = errors.New("gemini api key is required")
	ErrBlocked       = errors.New("blocked by safety settings")
)

// Config describes a Gemini chat model.
type Config struct {
	APIKey          string
	Model           string
	Temperature     *float32
	TopP            *float32
	MaxOutputTokens *int
	// SafetySettings overrides DefaultSafetySettings when non-nil.
	SafetySettings []*genai.SafetySetting
	HTTPClient     *http.Client
}

// generator is the subset of genai.Models the chat model talks to.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// ChatModel implements model.BaseChatModel on top of the Gemini API.
type ChatModel struct {
	models generator
	cfg    Config
}

var _ model.BaseChatModel = (*ChatModel)(nil)

// NewChatModel creates a Gemini client for the API key in cfg. The key is not checked
// against the service here; an unusable key surfaces on the first request.
func NewChatModel(ctx context.Context, cfg *Config) (*ChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gemini config is required")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newChatModel(client.Models, *cfg), nil
}

func newChatModel(models generator, cfg Config) *ChatModel {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.SafetySettings == nil {
		cfg.SafetySettings = DefaultSafetySettings()
	}
	return &ChatModel{models: models, cfg: cfg}
}

// GetType names the component in eino callbacks.
func (m *ChatModel) GetType() string {
	return "Gemini"
}

// Generate returns the whole reply in one message.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName, contents, config, err := m.prepare(input, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := m.models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if err := checkBlocked(resp); err != nil {
		return nil, err
	}

	return schema.AssistantMessage(responseText(resp), nil), nil
}

// Stream forwards every streamed response as one assistant message fragment. The first
// response is awaited before returning, so a rejected request fails here and only mid-stream
// failures arrive through Recv.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	modelName, contents, config, err := m.prepare(input, opts...)
	if err != nil {
		return nil, err
	}

	next, stop := iter.Pull2(m.models.GenerateContentStream(ctx, modelName, contents, config))
	first, err, ok := next()
	if err != nil {
		stop()
		return nil, fmt.Errorf("gemini stream: %w", err)
	}
	if ok {
		if err := checkBlocked(first); err != nil {
			stop()
			return nil, err
		}
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				sw.Send(nil, fmt.Errorf("gemini stream panic: %v", p))
			}
			stop()
			sw.Close()
		}()

		resp := first
		for ok {
			if closed := sw.Send(schema.AssistantMessage(responseText(resp), nil), nil); closed {
				return
			}

			var recvErr error
			resp, recvErr, ok = next()
			if recvErr != nil {
				sw.Send(nil, fmt.Errorf("gemini stream: %w", recvErr))
				return
			}
			if ok {
				if err := checkBlocked(resp); err != nil {
					sw.Send(nil, err)
					return
				}
			}
		}
	}()

	return sr, nil
}

func (m *ChatModel) prepare(input []*schema.Message, opts ...model.Option) (string, []*genai.Content, *genai.GenerateContentConfig, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.cfg.Model,
		Temperature: m.cfg.Temperature,
		TopP:        m.cfg.TopP,
		MaxTokens:   m.cfg.MaxOutputTokens,
	}, opts...)

	system, contents, err := toContents(input)
	if err != nil {
		return "", nil, nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature:       options.Temperature,
		TopP:              options.TopP,
		SafetySettings:    m.cfg.SafetySettings,
		SystemInstruction: system,
	}
	if options.MaxTokens != nil {
		config.MaxOutputTokens = int32(*options.MaxTokens)
	}
	if len(options.Stop) > 0 {
		config.StopSequences = options.Stop
	}

	modelName := m.cfg.Model
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}

	return modelName, contents, config, nil
}

// toContents maps eino messages to Gemini contents. Assistant turns use the "model" role;
// system messages are folded into the system instruction.
func toContents(input []*schema.Message) (*genai.Content, []*genai.Content, error) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(input))

	for i, msg := range input {
		if msg == nil {
			continue
		}

		switch msg.Role {
		case schema.User:
			contents = append(contents, &genai.Content{
				Role:  string(genai.RoleUser),
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case schema.Assistant:
			contents = append(contents, &genai.Content{
				Role:  string(genai.RoleModel),
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case schema.System:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: msg.Content})
		default:
			return nil, nil, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
	}

	return system, contents, nil
}

// responseText joins the text parts of the first candidate, skipping thought summaries.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}
	return builder.String()
}

func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}

	if feedback := resp.PromptFeedback; feedback != nil && feedback.BlockReason != "" {
		if feedback.BlockReasonMessage != "" {
			return fmt.Errorf("prompt %w (%s): %s", ErrBlocked, feedback.BlockReason, feedback.BlockReasonMessage)
		}
		return fmt.Errorf("prompt %w (%s)", ErrBlocked, feedback.BlockReason)
	}

	for _, candidate := range resp.Candidates {
		if candidate != nil && candidate.FinishReason == genai.FinishReasonSafety {
			return fmt.Errorf("response %w", ErrBlocked)
		}
	}
	return nil
}
