// Package bundle assembles the bounded generation context from query
// facts, document facts, knowledge-base entries and curated answers.
package bundle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/quaestio/internal/extract"
	"github.com/ppiankov/quaestio/internal/model"
)

// unknownRelevance is used for KB hits that carry no score
const unknownRelevance = 0.5

// Builder merges context sources into a ContextBundle under a token budget
type Builder struct {
	cfg       model.BudgetConfig
	counter   TokenCounter
	authority *AuthorityClassifier
	now       func() time.Time
}

// NewBuilder creates a builder. A nil counter uses DefaultCounter.
func NewBuilder(cfg model.BudgetConfig, counter TokenCounter) *Builder {
	if counter == nil {
		counter = DefaultCounter
	}
	return &Builder{cfg: cfg, counter: counter, now: time.Now}
}

// WithAuthority weights KB parts by the authority of their source
func (b *Builder) WithAuthority(a *AuthorityClassifier) *Builder {
	b.authority = a
	return b
}

// Merge ranks all candidate parts, removes near duplicates and keeps the
// highest-priority parts that fit in budget. Kept parts stay in priority
// order; everything after the first part that does not fit is dropped.
func (b *Builder) Merge(queryFacts []model.AtomicFact, kbResults []model.KBResult, docFacts []model.AtomicFact, golden *model.CuratedAnswer, budget int) model.ContextBundle {
	candidates := b.candidates(queryFacts, kbResults, docFacts, golden)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	candidates, duplicates := b.dedup(candidates)

	bundle := model.ContextBundle{Budget: budget}
	for i, part := range candidates {
		if bundle.TotalTokens+part.Tokens <= budget {
			bundle.Parts = append(bundle.Parts, part)
			bundle.TotalTokens += part.Tokens
			continue
		}

		// Only the top part may be cut down; anything else ends acceptance
		if i == 0 {
			if cut, ok := b.truncate(part, budget); ok {
				bundle.Parts = append(bundle.Parts, cut)
				bundle.TotalTokens += cut.Tokens
				bundle.Dropped = append(bundle.Dropped, candidates[1:]...)
				break
			}
		}
		bundle.Dropped = append(bundle.Dropped, candidates[i:]...)
		break
	}

	bundle.Dropped = append(bundle.Dropped, duplicates...)
	return bundle
}

func (b *Builder) candidates(queryFacts []model.AtomicFact, kbResults []model.KBResult, docFacts []model.AtomicFact, golden *model.CuratedAnswer) []model.ContextPart {
	var parts []model.ContextPart
	add := func(p model.ContextPart) {
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			return
		}
		p.Index = len(parts)
		p.Tokens = b.counter.Count(p.Text)
		parts = append(parts, p)
	}

	if golden != nil {
		add(model.ContextPart{
			Source:   model.SourceGolden,
			Text:     golden.Answer,
			Priority: b.weight(model.SourceGolden),
			Citation: strings.Join(golden.Citations, "; "),
		})
	}

	if len(queryFacts) > 0 {
		add(model.ContextPart{
			Source:   model.SourceFact,
			Text:     "Dati della domanda: " + renderFacts(queryFacts),
			Priority: b.weight(model.SourceFact),
		})
	}

	if len(docFacts) > 0 {
		add(model.ContextPart{
			Source:   model.SourceDoc,
			Text:     "Dati dai documenti: " + renderFacts(docFacts),
			Priority: b.weight(model.SourceDoc),
		})
	}

	now := b.now()
	for _, r := range kbResults {
		relevance := r.Score
		if relevance <= 0 {
			relevance = unknownRelevance
		}
		priority := b.weight(model.SourceKB) * relevance * b.recency(r.Timestamp, golden, now)
		if b.authority != nil {
			priority *= b.authority.Weight(r.Source)
		}
		add(model.ContextPart{
			Source:   model.SourceKB,
			Text:     extract.StripHTML(r.Text),
			Priority: priority,
			Citation: r.Source,
		})
	}

	return parts
}

func (b *Builder) weight(source model.ContextSource) float64 {
	if w, ok := b.cfg.SourceWeights[string(source)]; ok {
		return w
	}
	return 1.0
}

// recency boosts fresh entries, penalizes stale ones and further boosts
// entries newer than the curated answer they are merged with
func (b *Builder) recency(ts time.Time, golden *model.CuratedAnswer, now time.Time) float64 {
	if ts.IsZero() {
		return 1.0
	}

	factor := 1.0
	age := now.Sub(ts)
	switch {
	case b.cfg.RecentWindow > 0 && age <= b.cfg.RecentWindow:
		factor *= nonZero(b.cfg.RecentBoost)
	case b.cfg.StaleWindow > 0 && age > b.cfg.StaleWindow:
		factor *= nonZero(b.cfg.StalePenalty)
	}

	if golden != nil && !golden.UpdatedAt.IsZero() && ts.After(golden.UpdatedAt) {
		factor *= nonZero(b.cfg.DeltaBoost)
	}
	return factor
}

func nonZero(f float64) float64 {
	if f <= 0 {
		return 1.0
	}
	return f
}

// dedup removes parts whose token sets overlap a higher-priority part by at
// least the configured Jaccard threshold
func (b *Builder) dedup(parts []model.ContextPart) (kept, removed []model.ContextPart) {
	threshold := b.cfg.DedupThreshold
	if threshold <= 0 {
		return parts, nil
	}

	sets := make([]map[string]bool, 0, len(parts))
	for _, p := range parts {
		set := extract.TokenSet(p.Text)
		duplicate := false
		for _, s := range sets {
			if Jaccard(set, s) >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			removed = append(removed, p)
			continue
		}
		sets = append(sets, set)
		kept = append(kept, p)
	}
	return kept, removed
}

// Jaccard returns |a ∩ b| / |a ∪ b|, 0 for two empty sets
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// truncate cuts a part at the last sentence boundary that fits the budget,
// falling back to the last word boundary
func (b *Builder) truncate(part model.ContextPart, budget int) (model.ContextPart, bool) {
	if budget <= 0 {
		return part, false
	}

	text := part.Text
	cut := ""
	for _, end := range extract.SentenceEnds(text) {
		candidate := strings.TrimSpace(text[:end])
		if b.counter.Count(candidate) > budget {
			break
		}
		cut = candidate
	}

	if cut == "" {
		for i := 0; i < len(text); i++ {
			if text[i] != ' ' && text[i] != '\n' && text[i] != '\t' {
				continue
			}
			candidate := strings.TrimSpace(text[:i])
			if b.counter.Count(candidate) > budget {
				break
			}
			cut = candidate
		}
	}

	if cut == "" {
		return part, false
	}

	part.Text = cut
	part.Tokens = b.counter.Count(cut)
	part.Truncated = true
	return part, true
}

// renderFacts formats facts as "kind: value" pairs in text order
func renderFacts(fs []model.AtomicFact) string {
	items := make([]string, 0, len(fs))
	seen := make(map[string]bool, len(fs))
	for _, f := range fs {
		item := fmt.Sprintf("%s: %s", f.Kind, f.Value)
		if seen[item] {
			continue
		}
		seen[item] = true
		items = append(items, item)
	}
	return strings.Join(items, "; ")
}
