package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/gemini-chat/backend/internal/service/ai/gemini"
)

const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"

	DefaultGreeting = "Hi! I'm Gemini. How can I help you today?"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Chat   ChatConfig
	AI     AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	debug, err := parseBoolEnv("LOG_DEBUG", false)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Log:    LogConfig{Debug: debug},
		Chat:   ChatConfig{Greeting: getEnvOrDefault("CHAT_GREETING", DefaultGreeting)},
		AI:     ai,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Debug bool
}

// ChatConfig holds conversation defaults.
type ChatConfig struct {
	Greeting string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。APIKey is only a start-up default; the page can supply
// another credential at any time.
type AIConfig struct {
	Provider    string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// HasFallbackCredential reports whether the provider can authenticate without a
// credential from the page (Ark with an AK/SK pair).
func (c AIConfig) HasFallbackCredential() bool {
	return c.Provider == ProviderArk && c.AccessKey != "" && c.SecretKey != ""
}

// NewChatModel builds the configured provider's chat model for the given credential.
func (c AIConfig) NewChatModel(ctx context.Context, credential string) (model.BaseChatModel, error) {
	credential = strings.TrimSpace(credential)

	switch c.Provider {
	case ProviderGemini:
		chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
			APIKey:          credential,
			Model:           c.Model,
			Temperature:     toFloat32(c.Temperature),
			TopP:            toFloat32(c.TopP),
			MaxOutputTokens: c.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return chatModel, nil
	case ProviderArk:
		return c.newArkChatModel(ctx, credential)
	default:
		return nil, fmt.Errorf("unsupported chat provider %q", c.Provider)
	}
}

func (c AIConfig) newArkChatModel(ctx context.Context, credential string) (model.BaseChatModel, error) {
	if c.Model == "" {
		return nil, fmt.Errorf("ARK_MODEL is required for the ark provider")
	}
	if credential == "" && (c.AccessKey == "" || c.SecretKey == "") {
		return nil, fmt.Errorf("Ark 凭证缺失，至少提供 API Key 或 AK/SK 组合")
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      credential,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: toFloat32(c.Temperature),
		TopP:        toFloat32(c.TopP),
	}

	chatModel, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return chatModel, nil
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("CHAT_PROVIDER", ProviderGemini))
	if provider != ProviderGemini && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid CHAT_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("CHAT_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("CHAT_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("CHAT_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens != nil && *maxTokens < 1 {
		return AIConfig{}, fmt.Errorf("invalid CHAT_MAX_TOKENS value %d: must be positive", *maxTokens)
	}

	cfg := AIConfig{
		Provider:    provider,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}

	switch provider {
	case ProviderGemini:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		cfg.Model = getEnvOrDefault("CHAT_MODEL", gemini.DefaultModel)
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Model = getEnvOrDefault("CHAT_MODEL", strings.TrimSpace(os.Getenv("ARK_MODEL")))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
