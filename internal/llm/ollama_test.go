package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Call_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}

		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if req.Model != "llama3.1:8b" || req.Stream {
			t.Errorf("Unexpected request: %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "domanda" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "llama3.1:8b",
			Message:         ollamaMessage{Role: "assistant", Content: "Risposta locale."},
			Done:            true,
			PromptEvalCount: 40,
			EvalCount:       8,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Call(context.Background(), CallRequest{System: "sistema", Prompt: "domanda"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Text != "Risposta locale." || resp.InputTokens != 40 || resp.OutputTokens != 8 {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestOllamaProvider_Call_EstimatesMissingUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Model: "mistral", Message: ollamaMessage{Content: "12345678"}, Done: true})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "mistral"})
	resp, err := provider.Call(context.Background(), CallRequest{Prompt: "abcdefghijklmnop"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.InputTokens != 4 || resp.OutputTokens != 2 {
		t.Errorf("Expected estimated usage 4/2, got %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOllamaProvider_Call_EmptyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Model: "mistral", Done: true})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "mistral"})
	if _, err := provider.Call(context.Background(), CallRequest{Prompt: "x"}); !IsTransient(err) {
		t.Errorf("Expected an empty message to be transient, got %v", err)
	}
}

func TestOllamaProvider_Call_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'llama3.1:8b' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b"})
	_, err := provider.Call(context.Background(), CallRequest{Prompt: "x"})
	ce, ok := err.(*CallError)
	if !ok || ce.Kind != ErrFatal || ce.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected fatal 404 CallError, got %v", err)
	}
	if ce.Err.Error() != "model 'llama3.1:8b' not found" {
		t.Errorf("Expected API message to be extracted, got %q", ce.Err.Error())
	}
}

func TestOllamaProvider_Call_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: url, Model: "llama3.1:8b"})
	_, err := provider.Call(context.Background(), CallRequest{Prompt: "x"})
	if !IsTransient(err) {
		t.Errorf("Expected connection failure to be transient, got %v", err)
	}
}

func TestOllamaProvider_Call_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://localhost:11434"})
	_, err := provider.Call(context.Background(), CallRequest{Prompt: "x"})
	if err == nil || IsTransient(err) {
		t.Errorf("Expected fatal error without a model, got %v", err)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": [{"name": "mistral:latest"}, {"name": "llama3.1:8b"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tests := []struct {
		model string
		want  bool
	}{
		{"", true},
		{"llama3.1:8b", true},
		{"mistral", true},
		{"qwen2:7b", false},
	}
	for _, tt := range tests {
		provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: tt.model})
		if got := provider.IsAvailable(context.Background()); got != tt.want {
			t.Errorf("IsAvailable with model %q = %v, want %v", tt.model, got, tt.want)
		}
	}
}
