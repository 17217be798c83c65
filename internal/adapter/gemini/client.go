package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"llm-chat-playground/internal/config"
)

const promptTemplate = "%s\n\nUser message: %s\n\nYour response:"

type Client struct {
	models *genai.Models
	cfg    config.VendorConfig
}

// NewClient builds a Gemini API client. It performs no network call.
func NewClient(ctx context.Context, cfg config.VendorConfig) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	api, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		models: api.Models,
		cfg:    cfg,
	}, nil
}

// Respond sends a single prompt string built from the system message and
// the user text.
func (c *Client) Respond(ctx context.Context, prompt, systemMessage string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.cfg.Model, genai.Text(buildPrompt(systemMessage, prompt)), generationConfig(c.cfg))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func buildPrompt(systemMessage, prompt string) string {
	return fmt.Sprintf(promptTemplate, systemMessage, prompt)
}

func generationConfig(cfg config.VendorConfig) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	if cfg.TopP > 0 {
		gc.TopP = genai.Ptr(float32(cfg.TopP))
	}
	if cfg.TopK > 0 {
		gc.TopK = genai.Ptr(float32(cfg.TopK))
	}
	return gc
}
