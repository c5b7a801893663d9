// Package facts extracts atomic facts from query text, canonicalizes them,
// and derives the query signature used by the curated-answer matcher and
// the response cache.
package facts

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
	"golang.org/x/text/unicode/norm"
)

// numStart stands in for a lookbehind: a number never starts right after a
// digit or a decimal separator. The amount or rate itself is group 1.
const numStart = `(?:^|[^\d.,])`

const amountPattern = `\d{1,3}(?:[.\s]\d{3})+(?:,\d{1,2})?|\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:[.,]\d{1,2})?`

var (
	italianMonths = `gennaio|febbraio|marzo|aprile|maggio|giugno|luglio|agosto|settembre|ottobre|novembre|dicembre`

	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numDateRe  = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`)
	textDateRe = regexp.MustCompile(`\b(\d{1,2})\s+(` + italianMonths + `)\s+(\d{4})\b`)

	moneySuffixRe = regexp.MustCompile(numStart + `(` + amountPattern + `)\s*(?:€|\beuro\b|\beur\b|\beuri\b)`)
	moneyPrefixRe = regexp.MustCompile(`(?:€|\beuro\b|\beur\b)\s*(` + amountPattern + `)(?:[^\d]|$)`)

	rateRe = regexp.MustCompile(numStart + `(\d{1,3}(?:[.,]\d+)?)\s*(?:%|\bper\s*cento\b|\bpercento\b)`)
)

// Extractor extracts raw atomic facts from text
type Extractor struct{}

// NewExtractor creates a new fact extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract finds facts in text. Values are the raw matched text; call
// Canonicalize to normalize them. Facts are returned in text order and
// overlapping matches are resolved first-come: dates, money, rates, then
// lexicon terms.
func (e *Extractor) Extract(text string) []model.AtomicFact {
	text = prepare(text)
	if text == "" {
		return []model.AtomicFact{}
	}

	var spans spanSet
	var found []model.AtomicFact

	add := func(kind model.FactKind, start, end int) {
		if spans.overlaps(start, end) {
			return
		}
		spans.add(start, end)
		found = append(found, model.AtomicFact{
			Kind:  kind,
			Value: strings.TrimSpace(text[start:end]),
			Span:  model.Span{Start: start, End: end},
		})
	}

	for _, re := range []*regexp.Regexp{isoDateRe, numDateRe, textDateRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if _, ok := parseDate(text[loc[0]:loc[1]]); ok {
				add(model.FactDate, loc[0], loc[1])
			}
		}
	}

	// The boundary guards consume one character outside the fact, so spans
	// are cut back to the amount on the guarded side.
	for _, loc := range moneySuffixRe.FindAllStringSubmatchIndex(text, -1) {
		add(model.FactMonetary, loc[2], loc[1])
	}
	for _, loc := range moneyPrefixRe.FindAllStringSubmatchIndex(text, -1) {
		add(model.FactMonetary, loc[0], loc[3])
	}
	for _, loc := range rateRe.FindAllStringSubmatchIndex(text, -1) {
		add(model.FactRate, loc[2], loc[1])
	}

	for _, t := range lexicon {
		for _, loc := range t.pattern.FindAllStringIndex(text, -1) {
			add(t.kind, loc[0], loc[1])
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Span.Start < found[j].Span.Start
	})

	return found
}

// Parse extracts and canonicalizes facts in one step
func Parse(text string) []model.AtomicFact {
	return Canonicalize(NewExtractor().Extract(text))
}

// prepare applies NFKC normalization (folding non-breaking spaces and
// compatibility characters) and lowercases the text.
func prepare(text string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(text)))
}

// spanSet tracks byte ranges already claimed by a fact
type spanSet [][2]int

func (s spanSet) overlaps(start, end int) bool {
	for _, r := range s {
		if start < r[1] && end > r[0] {
			return true
		}
	}
	return false
}

func (s *spanSet) add(start, end int) {
	*s = append(*s, [2]int{start, end})
}
