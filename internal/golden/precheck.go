package golden

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Eligibility is the fast-path pre-check outcome
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

const maxFastPathRunes = 400

var (
	documentRe = regexp.MustCompile(`(?i)\b(?:allegat[oaie]|in allegato|questa fattura|questo contratto|questo documento|la mia busta paga|mia busta paga|il mio cedolino|cedolino allegato|vedi file)\b`)

	complexityRe = regexp.MustCompile(`(?i)\b(?:confronta|confrontare|differenza tra|rispetto a|prima\s.+\bpoi\b|passo dopo passo|step by step|simula|simulazione|pianifica|scenari)\b`)
)

// Precheck decides whether a query may use the curated fast path. Requests
// that depend on attached documents or look complex go straight to
// generation.
func Precheck(query string, hasDocuments bool) Eligibility {
	if hasDocuments {
		return Eligibility{Reason: "documents attached"}
	}

	q := strings.TrimSpace(query)
	if q == "" {
		return Eligibility{Reason: "empty query"}
	}
	if documentRe.MatchString(q) {
		return Eligibility{Reason: "refers to a document"}
	}
	if strings.Count(q, "?") > 1 {
		return Eligibility{Reason: "multiple questions"}
	}
	if complexityRe.MatchString(q) {
		return Eligibility{Reason: "multi-step or comparison"}
	}
	if utf8.RuneCountInString(q) > maxFastPathRunes {
		return Eligibility{Reason: "query too long"}
	}

	return Eligibility{Eligible: true}
}
