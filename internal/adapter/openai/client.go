package openai

import (
	"context"
	"errors"
	"math"

	openaiapi "github.com/sashabaranov/go-openai"

	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
)

type Client struct {
	api *openaiapi.Client
	cfg config.VendorConfig
}

// NewClient builds a chat-completions client. A non-empty cfg.Endpoint
// replaces the API base URL.
func NewClient(cfg config.VendorConfig) *Client {
	apiCfg := openaiapi.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		apiCfg.BaseURL = cfg.Endpoint
	}
	return &Client{
		api: openaiapi.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}
}

func (c *Client) Respond(ctx context.Context, prompt, systemMessage string) (string, error) {
	apiReq := openaiapi.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature(c.cfg.Temperature),
		Stream:      false,
		Messages:    toAPIMessages(prompt, systemMessage),
	}
	if c.cfg.TopP > 0 {
		apiReq.TopP = float32(c.cfg.TopP)
	}

	resp, err := c.api.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// temperature maps 0 to the smallest positive float32. go-openai drops a
// zero temperature from the request, which would leave the API default.
func temperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func toAPIMessages(prompt, systemMessage string) []openaiapi.ChatCompletionMessage {
	msgs := make([]openaiapi.ChatCompletionMessage, 0, 2)
	if systemMessage != "" {
		msgs = append(msgs, openaiapi.ChatCompletionMessage{
			Role:    string(domain.RoleSystem),
			Content: systemMessage,
		})
	}
	return append(msgs, openaiapi.ChatCompletionMessage{
		Role:    string(domain.RoleUser),
		Content: prompt,
	})
}
