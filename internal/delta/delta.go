// Package delta decides whether a matched curated answer is still current
// by comparing it against recent knowledge-base entries.
package delta

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/model"
)

// Searcher is the knowledge-base search used to fetch recent entries
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]model.KBResult, error)
}

// Detector compares curated answers against newer KB content
type Detector struct {
	conflictTags map[string]bool
	topK         int
	timeout      time.Duration
	logger       *zap.Logger
}

// NewDetector creates a detector from configuration
func NewDetector(cfg model.DeltaConfig, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}

	tags := make(map[string]bool, len(cfg.ConflictTags))
	for _, t := range cfg.ConflictTags {
		tags[normalizeTag(t)] = true
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}

	return &Detector{
		conflictTags: tags,
		topK:         topK,
		timeout:      cfg.Timeout,
		logger:       logger,
	}
}

// Detect reports a delta when any entry is strictly newer than the curated
// answer or carries a conflict tag aimed at it. Zero timestamps on either
// side never count as newer.
func (d *Detector) Detect(match model.MatchResult, entries []model.KBResult) model.DeltaDecision {
	decision := model.DeltaDecision{Reason: model.DeltaNone}
	if match.Answer == nil {
		return decision
	}
	answer := match.Answer

	var newer, conflicting []model.KBResult
	for _, e := range entries {
		switch {
		case isNewer(e.Timestamp, answer.UpdatedAt):
			newer = append(newer, e)
		case d.conflicts(e, answer):
			conflicting = append(conflicting, e)
		}
	}

	switch {
	case len(newer) > 0:
		decision.HasDelta = true
		decision.Reason = model.DeltaNewerKB
		decision.Entries = append(newer, conflicting...)
	case len(conflicting) > 0:
		decision.HasDelta = true
		decision.Reason = model.DeltaConflictingTag
		decision.Entries = conflicting
	}

	return decision
}

// Recent fetches the top-k recent KB entries for query under the configured
// time box. A failed or timed-out search yields no entries.
func (d *Detector) Recent(ctx context.Context, searcher Searcher, query string) []model.KBResult {
	if searcher == nil {
		return nil
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	entries, err := searcher.Search(ctx, query, d.topK)
	if err != nil {
		d.logger.Warn("recent KB search failed, assuming no delta", zap.Error(err))
		return nil
	}
	return entries
}

func isNewer(entry, answer time.Time) bool {
	if entry.IsZero() || answer.IsZero() {
		return false
	}
	return entry.After(answer)
}

// conflicts checks the entry's tags. A bare conflict tag needs a shared
// topical tag; a targeted one ("supersedes:iva-22") must name the answer
// id or one of its tags.
func (d *Detector) conflicts(e model.KBResult, answer *model.CuratedAnswer) bool {
	answerTags := make(map[string]bool, len(answer.Tags))
	for _, t := range answer.Tags {
		answerTags[normalizeTag(t)] = true
	}

	var bare bool
	for _, raw := range e.Tags {
		kind, target, targeted := strings.Cut(normalizeTag(raw), ":")
		if !d.conflictTags[kind] {
			continue
		}
		if targeted {
			if target == normalizeTag(answer.ID) || answerTags[target] {
				return true
			}
			continue
		}
		bare = true
	}
	if !bare {
		return false
	}

	for _, raw := range e.Tags {
		t := normalizeTag(raw)
		kind, _, _ := strings.Cut(t, ":")
		if d.conflictTags[kind] {
			continue
		}
		if answerTags[t] {
			return true
		}
	}
	return false
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
