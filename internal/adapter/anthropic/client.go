package anthropic

import (
	"context"
	"errors"

	anthropicapi "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"llm-chat-playground/internal/config"
)

type Client struct {
	messages *anthropicapi.MessageService
	cfg      config.VendorConfig
}

// NewClient builds a Messages API client with SDK retries disabled, so
// every Respond is exactly one request.
func NewClient(cfg config.VendorConfig) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	api := anthropicapi.NewClient(opts...)
	return &Client{
		messages: &api.Messages,
		cfg:      cfg,
	}
}

// Respond sends the system message folded into a single user message.
func (c *Client) Respond(ctx context.Context, prompt, systemMessage string) (string, error) {
	params := anthropicapi.MessageNewParams{
		Model:       anthropicapi.Model(c.cfg.Model),
		MaxTokens:   int64(c.cfg.MaxTokens),
		Temperature: anthropicapi.Float(c.cfg.Temperature),
		Messages: []anthropicapi.MessageParam{
			anthropicapi.NewUserMessage(anthropicapi.NewTextBlock(foldSystem(systemMessage, prompt))),
		},
	}
	if c.cfg.TopP > 0 {
		params.TopP = anthropicapi.Float(c.cfg.TopP)
	}
	if c.cfg.TopK > 0 {
		params.TopK = anthropicapi.Int(int64(c.cfg.TopK))
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic returned no text content")
}

func foldSystem(systemMessage, prompt string) string {
	if systemMessage == "" {
		return prompt
	}
	return systemMessage + "\n\n" + prompt
}
