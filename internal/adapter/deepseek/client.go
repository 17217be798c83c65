// Package deepseek talks to DeepSeek's OpenAI-compatible chat API.
package deepseek

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaiapi "github.com/sashabaranov/go-openai"

	"llm-chat-playground/internal/adapter/openai"
	"llm-chat-playground/internal/config"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

// StatusError is a non-2xx reply from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: %d - %s", e.StatusCode, e.Message)
}

type Client struct {
	chat    *openai.Client
	baseURL string
}

// NewClient accepts either the API base URL or the full chat-completions
// URL as cfg.Endpoint.
func NewClient(cfg config.VendorConfig) *Client {
	baseURL := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"), "/chat/completions")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg.Endpoint = baseURL
	return &Client{
		chat:    openai.NewClient(cfg),
		baseURL: baseURL,
	}
}

func (c *Client) Respond(ctx context.Context, prompt, systemMessage string) (string, error) {
	text, err := c.chat.Respond(ctx, prompt, systemMessage)
	if err == nil {
		return text, nil
	}

	var apiErr *openaiapi.APIError
	if errors.As(err, &apiErr) {
		return "", &StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openaiapi.RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return "", &StatusError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Err.Error()}
	}
	return "", err
}
