package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"llm-chat-playground/internal/config"
)

func TestRespondSendsSystemAndUserMessages(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"world"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewClient(config.VendorConfig{
		APIKey:      "sk-test",
		Endpoint:    srv.URL,
		Model:       "gpt-4",
		MaxTokens:   150,
		Temperature: 0.7,
	})

	reply, err := client.Respond(context.Background(), "hello", "be brief")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if reply != "world" {
		t.Errorf("Expected world, got %q", reply)
	}

	if got["model"] != "gpt-4" {
		t.Errorf("Unexpected model %v", got["model"])
	}
	if got["max_tokens"] != float64(150) {
		t.Errorf("Unexpected max_tokens %v", got["max_tokens"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %v", got["messages"])
	}
	first := msgs[0].(map[string]any)
	second := msgs[1].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Errorf("Unexpected system message %v", first)
	}
	if second["role"] != "user" || second["content"] != "hello" {
		t.Errorf("Unexpected user message %v", second)
	}
}

func TestRespondSendsZeroTemperature(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(config.VendorConfig{APIKey: "k", Endpoint: srv.URL, Model: "gpt-4", MaxTokens: 10, Temperature: 0})
	if _, err := client.Respond(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}

	temp, ok := got["temperature"].(float64)
	if !ok {
		t.Fatalf("Expected temperature in request, got %v", got)
	}
	if temp <= 0 || temp > 1e-30 {
		t.Errorf("Expected near-zero temperature, got %v", temp)
	}
}

func TestRespondSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewClient(config.VendorConfig{APIKey: "bad", Endpoint: srv.URL, Model: "gpt-4", MaxTokens: 10})

	_, err := client.Respond(context.Background(), "hello", "")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("Expected API message in error, got %v", err)
	}
}

func TestRespondEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(config.VendorConfig{APIKey: "k", Endpoint: srv.URL, Model: "gpt-4", MaxTokens: 10})
	if _, err := client.Respond(context.Background(), "hello", ""); err == nil {
		t.Error("Expected error for empty choices")
	}
}
