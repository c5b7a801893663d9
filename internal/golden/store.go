// Package golden implements the curated-answer fast path: a cheap
// eligibility pre-check, signature and semantic lookup against the curated
// store, and confidence gating into direct, advisory and miss tiers.
package golden

import (
	"context"

	"github.com/ppiankov/quaestio/internal/model"
)

// Store is the read interface of the curated-answer store
type Store interface {
	// LookupBySignature returns the latest curated answer for a signature,
	// or nil when none exists
	LookupBySignature(ctx context.Context, sig model.QuerySignature) (*model.CuratedAnswer, error)

	// SemanticSearch returns up to topK answers ordered by similarity
	SemanticSearch(ctx context.Context, text string, topK int) ([]model.ScoredAnswer, error)
}
