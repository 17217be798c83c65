// Package provider selects a vendor adapter by configuration and puts the
// failure boundary around it.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"llm-chat-playground/internal/adapter/anthropic"
	"llm-chat-playground/internal/adapter/deepseek"
	"llm-chat-playground/internal/adapter/gemini"
	"llm-chat-playground/internal/adapter/openai"
	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
	"llm-chat-playground/internal/usecase/chat"
)

const probePrompt = "ping"

// Factory builds the raw vendor client.
type Factory func(ctx context.Context, cfg config.VendorConfig) (chat.Client, error)

var factories = map[string]Factory{
	config.VendorOpenAI: func(_ context.Context, cfg config.VendorConfig) (chat.Client, error) {
		return openai.NewClient(cfg), nil
	},
	config.VendorAnthropic: func(_ context.Context, cfg config.VendorConfig) (chat.Client, error) {
		return anthropic.NewClient(cfg), nil
	},
	config.VendorDeepSeek: func(_ context.Context, cfg config.VendorConfig) (chat.Client, error) {
		return deepseek.NewClient(cfg), nil
	},
	config.VendorGemini: func(ctx context.Context, cfg config.VendorConfig) (chat.Client, error) {
		return gemini.NewClient(ctx, cfg)
	},
}

// Open validates the credential, builds the vendor client and, when the
// vendor asks for it, probes the API once. Every failure comes back as a
// *domain.InitializationFailure.
func Open(ctx context.Context, cfg config.VendorConfig) (chat.Client, error) {
	factory, ok := factories[cfg.Name]
	if !ok {
		return nil, &domain.InitializationFailure{Vendor: cfg.Name, Diagnostic: "unknown vendor"}
	}
	return open(ctx, cfg, factory)
}

func open(ctx context.Context, cfg config.VendorConfig, factory Factory) (chat.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &domain.InitializationFailure{
			Vendor:     cfg.Name,
			Diagnostic: fmt.Sprintf("missing API key, set %s", cfg.KeyEnv),
		}
	}

	raw, err := factory(ctx, cfg)
	if err != nil {
		return nil, &domain.InitializationFailure{Vendor: cfg.Name, Diagnostic: err.Error(), Err: err}
	}
	client := Guard(cfg.Name, raw)

	if cfg.ProbeOnStart {
		slog.Info("probing vendor", "vendor", cfg.Name, "model", cfg.Model)
		if _, err := client.Respond(ctx, probePrompt, cfg.SystemMessage); err != nil {
			return nil, &domain.InitializationFailure{
				Vendor:     cfg.Name,
				Diagnostic: "probe failed: " + domain.Diagnostic(err),
				Err:        err,
			}
		}
	}

	slog.Info("vendor connected", "vendor", cfg.Name, "model", cfg.Model)
	return client, nil
}

type guarded struct {
	vendor string
	next   chat.Client
}

// Guard wraps a vendor client so that errors, empty completions and panics
// all surface as *domain.ExchangeFailure values.
func Guard(vendor string, next chat.Client) chat.Client {
	return &guarded{vendor: vendor, next: next}
}

func (g *guarded) Respond(ctx context.Context, prompt, systemMessage string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &domain.ExchangeFailure{
				Vendor:     g.vendor,
				Diagnostic: fmt.Sprintf("response generation failed: %v", r),
			}
		}
	}()

	text, err = g.next.Respond(ctx, prompt, systemMessage)
	if err != nil {
		return "", &domain.ExchangeFailure{Vendor: g.vendor, Diagnostic: err.Error(), Err: err}
	}
	if text == "" {
		return "", &domain.ExchangeFailure{Vendor: g.vendor, Diagnostic: "empty response"}
	}
	return text, nil
}
