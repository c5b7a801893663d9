package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CuratedAnswer is a pre-vetted answer maintained outside live generation.
// Rows are versioned: a publish bumps Epoch rather than overwriting.
type CuratedAnswer struct {
	ID        string         `json:"id" yaml:"id"`
	Signature QuerySignature `json:"signature" yaml:"signature,omitempty"`
	Question  string         `json:"question" yaml:"question"`
	Answer    string         `json:"answer" yaml:"answer"`
	Citations []string       `json:"citations,omitempty" yaml:"citations,omitempty"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
	Tags      []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Epoch     int64          `json:"epoch" yaml:"epoch,omitempty"`
}

// ScoredAnswer pairs a curated answer with a similarity score
type ScoredAnswer struct {
	Answer CuratedAnswer
	Score  float64
}

// MatchType records which lookup stage produced a match
type MatchType string

const (
	MatchNone      MatchType = ""
	MatchSignature MatchType = "signature"
	MatchSemantic  MatchType = "semantic"
)

// MatchTier is the gating outcome for a match confidence
type MatchTier string

const (
	TierMiss     MatchTier = "miss"     // Below the advisory threshold
	TierAdvisory MatchTier = "advisory" // Eligible, but must be regenerated
	TierDirect   MatchTier = "direct"   // May be served as-is when no delta
)

// MatchResult is the outcome of a curated-answer lookup
type MatchResult struct {
	Matched    bool           `json:"matched"`
	Type       MatchType      `json:"type,omitempty"`
	Confidence float64        `json:"confidence"`
	Tier       MatchTier      `json:"tier"`
	Answer     *CuratedAnswer `json:"answer,omitempty"`
}

// Miss returns an unmatched result
func Miss() MatchResult {
	return MatchResult{Tier: TierMiss}
}

// DeltaReason explains why a curated answer is considered stale
type DeltaReason string

const (
	DeltaNone           DeltaReason = "none"
	DeltaNewerKB        DeltaReason = "newer-kb"
	DeltaConflictingTag DeltaReason = "conflicting-tag"
)

// DeltaDecision decides between serving a curated answer and regenerating
type DeltaDecision struct {
	HasDelta bool        `json:"has_delta"`
	Reason   DeltaReason `json:"reason"`
	Entries  []KBResult  `json:"entries,omitempty"` // KB entries that triggered the delta
}

// KBResult is a single knowledge-base search hit
type KBResult struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // Zero when unknown
	Tags      []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Score     float64   `json:"score" yaml:"-"`                                // Relevance in [0,1]
	Entities  []string  `json:"entities,omitempty" yaml:"entities,omitempty"` // Canonical fact values mentioned
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`     // Citation (URL or reference)
}

// Key identifies the entry when merging result lists: its ID, or a hash of
// its text when the searcher left the ID empty
func (r KBResult) Key() string {
	if r.ID != "" {
		return r.ID
	}
	sum := sha256.Sum256([]byte(r.Text))
	return "text:" + hex.EncodeToString(sum[:])
}
