package golden

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/model"
)

// Matcher looks up curated answers and gates them by confidence
type Matcher struct {
	store    Store
	direct   float64
	advisory float64
	topK     int
	logger   *zap.Logger
}

// NewMatcher creates a matcher over store using the configured thresholds
func NewMatcher(store Store, thresholds model.ThresholdConfig, topK int, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = 1
	}
	return &Matcher{
		store:    store,
		direct:   thresholds.Direct,
		advisory: thresholds.Advisory,
		topK:     topK,
		logger:   logger,
	}
}

// Match tries an exact signature lookup, then semantic search. Store
// failures are logged and treated as a miss; the only error returned is
// cancellation of ctx.
func (m *Matcher) Match(ctx context.Context, sig model.QuerySignature, text string) (model.MatchResult, error) {
	if m.store == nil {
		return model.Miss(), nil
	}

	// The empty signature is shared by every fact-free query
	if sig != facts.EmptySignature {
		answer, err := m.store.LookupBySignature(ctx, sig)
		switch {
		case ctx.Err() != nil:
			return model.Miss(), errs.E(errs.KindCanceled, "curated lookup canceled", ctx.Err())
		case err != nil:
			m.logger.Warn("curated signature lookup failed, treating as miss",
				zap.String("signature", sig.Short()), zap.Error(err))
		case answer != nil:
			return m.gate(model.MatchSignature, 1.0, answer), nil
		}
	}

	candidates, err := m.store.SemanticSearch(ctx, text, m.topK)
	if ctx.Err() != nil {
		return model.Miss(), errs.E(errs.KindCanceled, "curated lookup canceled", ctx.Err())
	}
	if err != nil {
		m.logger.Warn("curated semantic search failed, treating as miss", zap.Error(err))
		return model.Miss(), nil
	}
	if len(candidates) == 0 {
		return model.Miss(), nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	answer := best.Answer
	return m.gate(model.MatchSemantic, best.Score, &answer), nil
}

// Tier maps a confidence to its gating tier
func (m *Matcher) Tier(confidence float64) model.MatchTier {
	switch {
	case confidence >= m.direct:
		return model.TierDirect
	case confidence >= m.advisory:
		return model.TierAdvisory
	default:
		return model.TierMiss
	}
}

func (m *Matcher) gate(kind model.MatchType, confidence float64, answer *model.CuratedAnswer) model.MatchResult {
	tier := m.Tier(confidence)
	if tier == model.TierMiss {
		return model.MatchResult{Type: kind, Confidence: confidence, Tier: model.TierMiss}
	}
	return model.MatchResult{
		Matched:    true,
		Type:       kind,
		Confidence: confidence,
		Tier:       tier,
		Answer:     answer,
	}
}
