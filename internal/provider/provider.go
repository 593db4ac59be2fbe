package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/Alaeddine-Az/robotics-chatbot/internal/config"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/models"
)

// CompletionClient generates a reply for an ordered prompt.
type CompletionClient interface {
	Complete(ctx context.Context, msgs []models.Message) (string, error)
}

// Client drives an eino chat model with fixed sampling parameters.
type Client struct {
	chatModel   model.BaseChatModel
	temperature float32
	maxTokens   int
}

// New builds the completion client for the configured backend. The API
// credential comes from the environment; its absence is an error the caller
// treats as fatal at startup.
func New(ctx context.Context, cfg config.ProviderConfig, limits config.LimitsConfig) (*Client, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("api key for provider %s not set in environment", cfg.Name)
	}

	var chatModel model.BaseChatModel
	var err error
	switch cfg.Name {
	case "groq", "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  apiKey,
		})
	case "claude":
		var baseURLPtr *string
		if cfg.BaseURL != "" {
			baseURLPtr = &cfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    apiKey,
			Model:     cfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: limits.MaxOutputTokens,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.Model,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", cfg.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", cfg.Name, err)
	}

	return &Client{
		chatModel:   chatModel,
		temperature: limits.Temperature,
		maxTokens:   limits.MaxOutputTokens,
	}, nil
}

// Complete invokes the model over the assembled prompt and returns the
// generated text. Deadlines come from the caller's context.
func (c *Client) Complete(ctx context.Context, msgs []models.Message) (string, error) {
	prompt := make([]*schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		prompt = append(prompt, &schema.Message{Role: role, Content: msg.Content})
	}

	resp, err := c.chatModel.Generate(ctx, prompt,
		model.WithTemperature(c.temperature),
		model.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("provider returned no message")
	}
	return resp.Content, nil
}
