package kb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/quaestio/internal/embedding"
	"github.com/ppiankov/quaestio/internal/model"
)

// VectorSearcher ranks entries by embedding similarity. Entry embeddings
// are computed on first use.
type VectorSearcher struct {
	entries []model.KBResult
	engine  embedding.Engine

	mu      sync.Mutex
	vectors [][]float32
}

// NewVectorSearcher creates a vector searcher over the corpus
func NewVectorSearcher(c *Corpus, engine embedding.Engine) *VectorSearcher {
	return &VectorSearcher{entries: c.Entries, engine: engine}
}

func (s *VectorSearcher) index(ctx context.Context) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectors != nil {
		return s.vectors, nil
	}

	texts := make([]string, len(s.entries))
	for i, e := range s.entries {
		texts[i] = e.Text
	}
	vectors, err := s.engine.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(s.entries) {
		return nil, fmt.Errorf("expected %d corpus embeddings, got %d", len(s.entries), len(vectors))
	}
	s.vectors = vectors
	return vectors, nil
}

// Search embeds the query and returns the most similar entries
func (s *VectorSearcher) Search(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("no embedding engine configured")
	}

	vectors, err := s.index(ctx)
	if err != nil {
		return nil, err
	}

	q, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	out := make([]model.KBResult, 0, len(s.entries))
	for i, v := range vectors {
		sim := embedding.Similarity(q, v)
		if sim <= 0 {
			continue
		}
		res := s.entries[i]
		res.Score = sim
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
