package delta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/quaestio/internal/model"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestDetector() *Detector {
	return NewDetector(model.DeltaConfig{
		ConflictTags: []string{"supersedes", "obsoletes", "replaces", "updated"},
		TopK:         5,
		Timeout:      50 * time.Millisecond,
	}, nil)
}

func matched(updated time.Time, tags ...string) model.MatchResult {
	return model.MatchResult{
		Matched: true,
		Tier:    model.TierAdvisory,
		Answer:  &model.CuratedAnswer{ID: "iva-22", UpdatedAt: updated, Tags: tags},
	}
}

func TestDetect_Timestamps(t *testing.T) {
	tests := []struct {
		name     string
		answer   time.Time
		entry    time.Time
		hasDelta bool
	}{
		{"entry one second newer", t0, t0.Add(time.Second), true},
		{"entry one second older", t0, t0.Add(-time.Second), false},
		{"same instant", t0, t0, false},
		{"entry timestamp missing", t0, time.Time{}, false},
		{"answer timestamp missing", time.Time{}, t0, false},
	}

	d := newTestDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(matched(tt.answer), []model.KBResult{{ID: "kb-1", Timestamp: tt.entry}})
			if got.HasDelta != tt.hasDelta {
				t.Errorf("expected HasDelta=%v, got %+v", tt.hasDelta, got)
			}
			if tt.hasDelta && got.Reason != model.DeltaNewerKB {
				t.Errorf("expected reason newer-kb, got %s", got.Reason)
			}
			if !tt.hasDelta && got.Reason != model.DeltaNone {
				t.Errorf("expected reason none, got %s", got.Reason)
			}
		})
	}
}

func TestDetect_ConflictTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		hasDelta bool
	}{
		{"targeted at answer id", []string{"supersedes:iva-22"}, true},
		{"targeted at answer tag", []string{"Replaces:IVA"}, true},
		{"targeted elsewhere", []string{"supersedes:tfr"}, false},
		{"bare with shared topic", []string{"obsoletes", "iva"}, true},
		{"bare without shared topic", []string{"obsoletes", "inps"}, false},
		{"topic without conflict tag", []string{"iva"}, false},
		{"unknown tag kind", []string{"mentions:iva-22"}, false},
	}

	d := newTestDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := model.KBResult{ID: "kb-1", Timestamp: t0.Add(-time.Hour), Tags: tt.tags}
			got := d.Detect(matched(t0, "iva", "aliquote"), []model.KBResult{entry})
			if got.HasDelta != tt.hasDelta {
				t.Errorf("expected HasDelta=%v, got %+v", tt.hasDelta, got)
			}
			if tt.hasDelta && got.Reason != model.DeltaConflictingTag {
				t.Errorf("expected reason conflicting-tag, got %s", got.Reason)
			}
		})
	}
}

func TestDetect_ConfigurableTags(t *testing.T) {
	d := NewDetector(model.DeltaConfig{ConflictTags: []string{"abrogates"}}, nil)
	entry := model.KBResult{ID: "kb-1", Tags: []string{"abrogates:iva-22"}}
	if got := d.Detect(matched(t0), []model.KBResult{entry}); !got.HasDelta {
		t.Error("expected custom conflict tag to trigger a delta")
	}
	entry.Tags = []string{"supersedes:iva-22"}
	if got := d.Detect(matched(t0), []model.KBResult{entry}); got.HasDelta {
		t.Error("expected default tag to be inert when not configured")
	}
}

func TestDetect_NoAnswer(t *testing.T) {
	got := newTestDetector().Detect(model.Miss(), []model.KBResult{{ID: "kb-1", Timestamp: t0}})
	if got.HasDelta || got.Reason != model.DeltaNone {
		t.Errorf("expected no delta without a curated answer, got %+v", got)
	}
}

func TestDetect_EntriesCarried(t *testing.T) {
	entries := []model.KBResult{
		{ID: "old", Timestamp: t0.Add(-time.Hour)},
		{ID: "new", Timestamp: t0.Add(time.Hour)},
		{ID: "tagged", Timestamp: t0.Add(-time.Hour), Tags: []string{"updated:iva-22"}},
	}
	got := newTestDetector().Detect(matched(t0), entries)
	if len(got.Entries) != 2 || got.Entries[0].ID != "new" || got.Entries[1].ID != "tagged" {
		t.Errorf("expected triggering entries [new tagged], got %+v", got.Entries)
	}
}

type searcherFunc func(ctx context.Context, query string, topK int) ([]model.KBResult, error)

func (f searcherFunc) Search(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
	return f(ctx, query, topK)
}

func TestRecent(t *testing.T) {
	d := newTestDetector()

	ok := searcherFunc(func(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
		if topK != 5 {
			t.Errorf("expected topK 5, got %d", topK)
		}
		return []model.KBResult{{ID: "kb-1"}}, nil
	})
	if got := d.Recent(context.Background(), ok, "iva"); len(got) != 1 {
		t.Errorf("expected 1 entry, got %d", len(got))
	}

	failing := searcherFunc(func(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
		return nil, errors.New("index offline")
	})
	if got := d.Recent(context.Background(), failing, "iva"); got != nil {
		t.Errorf("expected no entries on failure, got %v", got)
	}

	slow := searcherFunc(func(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	start := time.Now()
	if got := d.Recent(context.Background(), slow, "iva"); got != nil {
		t.Errorf("expected no entries on timeout, got %v", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected search to be time-boxed, took %v", elapsed)
	}
}
