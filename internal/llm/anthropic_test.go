package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestAnthropic(t *testing.T, url string) *AnthropicProvider {
	t.Helper()
	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: url, Model: "claude-3-5-sonnet-20241022"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider
}

func TestAnthropicProvider_Call_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Expected anthropic-version header 2023-06-01, got %s", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.System != "sistema" || len(req.Messages) != 1 || req.Messages[0].Content != "domanda" {
			t.Errorf("Unexpected request: %+v", req)
		}

		resp := anthropicResponse{
			ID:      "msg_123",
			Type:    "message",
			Role:    "assistant",
			Content: []anthropicContent{{Type: "text", Text: "Il TFR si calcola "}, {Type: "text", Text: "dividendo per 13,5."}},
			Model:   "claude-3-5-sonnet-20241022",
			Usage:   anthropicUsage{InputTokens: 50, OutputTokens: 20},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	resp, err := newTestAnthropic(t, server.URL).Call(context.Background(), CallRequest{System: "sistema", Prompt: "domanda"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Text != "Il TFR si calcola dividendo per 13,5." {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.InputTokens != 50 || resp.OutputTokens != 20 {
		t.Errorf("Expected usage 50/20, got %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestAnthropicProvider_Call_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusTooManyRequests, ErrTransient},
		{529, ErrTransient}, // overloaded
		{http.StatusInternalServerError, ErrTransient},
		{http.StatusUnauthorized, ErrFatal},
		{http.StatusForbidden, ErrFatal},
		{http.StatusBadRequest, ErrFatal},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "some_error", "message": "boom"}}`))
		}))

		_, err := newTestAnthropic(t, server.URL).Call(context.Background(), CallRequest{Prompt: "x"})
		server.Close()

		ce, ok := err.(*CallError)
		if !ok {
			t.Fatalf("status %d: expected *CallError, got %T", tt.status, err)
		}
		if ce.Kind != tt.kind {
			t.Errorf("status %d: expected %s, got %s", tt.status, tt.kind, ce.Kind)
		}
	}
}

func TestAnthropicProvider_Call_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	if _, err := newTestAnthropic(t, server.URL).Call(context.Background(), CallRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestAnthropicProvider_Call_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newTestAnthropic(t, server.URL).Call(ctx, CallRequest{Prompt: "x"})
	if !IsTransient(err) {
		t.Errorf("Expected transient timeout error, got %v", err)
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/models" {
			t.Errorf("Expected GET /v1/models, got %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	if !newTestAnthropic(t, server.URL).IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer failing.Close()

	if newTestAnthropic(t, failing.URL).IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestAnthropicProvider_Call_ErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "invalid_request_error", "message": "max_tokens too large"}}`))
	}))
	defer server.Close()

	_, err := newTestAnthropic(t, server.URL).Call(context.Background(), CallRequest{Prompt: "x"})
	ce, ok := err.(*CallError)
	if !ok {
		t.Fatalf("Expected *CallError, got %T", err)
	}
	if got := ce.Err.Error(); got != "invalid_request_error - max_tokens too large" {
		t.Errorf("Unexpected error message: %q", got)
	}
}
