// Package embedding provides vector embedding generation for semantic
// curated-answer matching and vector KB search.
// Supports OpenAI, Ollama (local) and Google GenAI backends.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
)

// Engine generates vector embeddings for text
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the engine name
	Name() string
}

// NewEngine creates an embedding engine based on configuration.
// An empty provider disables embeddings and returns a nil engine.
func NewEngine(cfg model.EmbeddingConfig) (Engine, error) {
	var (
		engine Engine
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		engine, err = NewOpenAIEngine(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "ollama":
		engine, err = NewOllamaEngine(cfg.BaseURL, cfg.Model)
	case "genai", "gemini":
		engine, err = NewGenAIEngine(cfg.APIKey, cfg.Model)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'openai', 'ollama' or 'genai')", cfg.Provider)
	}

	if err != nil {
		return nil, err
	}
	return engine, nil
}

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1]
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Similarity clamps cosine similarity into [0, 1] for use as a confidence
func Similarity(a, b []float32) float64 {
	s, err := CosineSimilarity(a, b)
	if err != nil || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
