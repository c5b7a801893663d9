package kb

import (
	"context"
	"math"
	"sort"

	"github.com/ppiankov/quaestio/internal/extract"
	"github.com/ppiankov/quaestio/internal/model"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25Searcher is a lexical searcher over a corpus
type BM25Searcher struct {
	entries []model.KBResult
	terms   []map[string]int
	lengths []int
	df      map[string]int
	avgLen  float64
}

// NewBM25Searcher indexes the corpus
func NewBM25Searcher(c *Corpus) *BM25Searcher {
	s := &BM25Searcher{
		entries: c.Entries,
		terms:   make([]map[string]int, len(c.Entries)),
		lengths: make([]int, len(c.Entries)),
		df:      make(map[string]int),
	}

	total := 0
	for i, e := range c.Entries {
		tokens := extract.Tokenize(e.Text)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			s.df[t]++
		}
		s.terms[i] = tf
		s.lengths[i] = len(tokens)
		total += len(tokens)
	}
	if len(c.Entries) > 0 {
		s.avgLen = float64(total) / float64(len(c.Entries))
	}
	return s
}

// Search ranks entries by BM25 score, normalized to [0, 1]
func (s *BM25Searcher) Search(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qterms := extract.TokenSet(query)
	n := float64(len(s.entries))

	type hit struct {
		idx   int
		score float64
	}
	var hits []hit
	for i := range s.entries {
		var score float64
		for t := range qterms {
			tf := float64(s.terms[i][t])
			if tf == 0 {
				continue
			}
			df := float64(s.df[t])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf + bm25K1*(1-bm25B+bm25B*float64(s.lengths[i])/s.avgLen)
			score += idf * tf * (bm25K1 + 1) / norm
		}
		if score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]model.KBResult, 0, len(hits))
	for _, h := range hits {
		res := s.entries[h.idx]
		res.Score = h.score / hits[0].score
		out = append(out, res)
	}
	return out, nil
}
