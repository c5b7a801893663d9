package kb

import (
	"context"
	"sort"

	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/model"
)

// EntitySearcher matches entries sharing canonical facts with the query
type EntitySearcher struct {
	entries  []model.KBResult
	entities []map[string]bool
}

// NewEntitySearcher indexes corpus entities
func NewEntitySearcher(c *Corpus) *EntitySearcher {
	s := &EntitySearcher{
		entries:  c.Entries,
		entities: make([]map[string]bool, len(c.Entries)),
	}
	for i, e := range c.Entries {
		set := make(map[string]bool, len(e.Entities))
		for _, ent := range e.Entities {
			set[normalizeEntity(ent)] = true
		}
		s.entities[i] = set
	}
	return s
}

// Search scores entries by the share of query facts they mention
func (s *EntitySearcher) Search(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := entityKeys(facts.Parse(query))
	if len(keys) == 0 {
		return nil, nil
	}

	type hit struct {
		idx   int
		score float64
	}
	var hits []hit
	for i, set := range s.entities {
		matched := 0
		for _, k := range keys {
			if set[normalizeEntity(k)] {
				matched++
			}
		}
		if matched > 0 {
			hits = append(hits, hit{idx: i, score: float64(matched) / float64(len(keys))})
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
		res.Score = h.score
		out = append(out, res)
	}
	return out, nil
}
