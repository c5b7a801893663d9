package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/quaestio/internal/model"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("expected %.3f, got %.3f", tt.want, got)
			}
		})
	}

	if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestSimilarity_Clamped(t *testing.T) {
	if got := Similarity([]float32{1, 0}, []float32{-1, 0}); got != 0 {
		t.Errorf("expected negative similarity clamped to 0, got %f", got)
	}
	if got := Similarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("expected mismatch to give 0, got %f", got)
	}
}

func TestOllamaEngine_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("expected path /api/embeddings, got %s", r.URL.Path)
		}

		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("expected default model, got %s", req.Model)
		}

		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	engine, err := NewOllamaEngine(server.URL, "")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	vecs, err := engine.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 3 {
		t.Errorf("unexpected embeddings: %v", vecs)
	}
}

func TestOllamaEngine_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	engine, _ := NewOllamaEngine(server.URL, "nomic-embed-text")
	if _, err := engine.Embed(context.Background(), "a"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestOpenAIEngine_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected path /embeddings, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	engine, err := NewOpenAIEngine("test-key", server.URL, "")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	vecs, err := engine.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("expected embeddings ordered by index, got %v", vecs)
	}
}

func TestNewEngine(t *testing.T) {
	if e, err := NewEngine(model.EmbeddingConfig{}); err != nil || e != nil {
		t.Errorf("expected disabled engine, got %v (%v)", e, err)
	}
	if _, err := NewEngine(model.EmbeddingConfig{Provider: "word2vec"}); err == nil {
		t.Error("expected unsupported provider error")
	}
	if _, err := NewEngine(model.EmbeddingConfig{Provider: "openai"}); err == nil {
		t.Error("expected missing API key error")
	}
	e, err := NewEngine(model.EmbeddingConfig{Provider: "ollama"})
	if err != nil || e.Name() != "ollama" {
		t.Errorf("expected ollama engine, got %v (%v)", e, err)
	}
}
