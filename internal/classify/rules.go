// Package classify labels a query with a professional domain and an action.
// A keyword scorer runs first; low-confidence results escalate to a
// secondary classifier.
package classify

import (
	"regexp"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
	"golang.org/x/text/unicode/norm"
)

// Domains and actions a query can be labelled with
var (
	Domains = []string{"fiscale", "lavoro", "previdenza", "societario", "contabile"}
	Actions = []string{"calcolo", "scadenza", "spiegazione", "adempimento", "confronto"}
)

// Fallback labels when no keyword matches
const (
	DefaultDomain = "generale"
	DefaultAction = "spiegazione"
)

// MethodRules marks a classification produced by keyword scoring
const MethodRules = "rules"

// keyword is a weighted term. Terms match at a word start, so "contribut"
// matches both "contributi" and "contributo".
type keyword struct {
	term   string
	weight float64
}

type label struct {
	name    string
	pattern []*regexp.Regexp
	weights []float64
}

var domainKeywords = map[string][]keyword{
	"fiscale": {
		{"iva", 0.6}, {"irpef", 0.6}, {"ires", 0.6}, {"irap", 0.6}, {"imu", 0.5},
		{"f24", 0.5}, {"730", 0.5}, {"imposta", 0.4}, {"impost", 0.3}, {"tass", 0.4},
		{"detrazion", 0.4}, {"deduzion", 0.3}, {"forfettari", 0.5}, {"regime forfettario", 0.3},
		{"dichiarazione dei redditi", 0.6}, {"fattur", 0.3}, {"ravvediment", 0.5},
		{"ritenuta d'acconto", 0.5}, {"ritenut", 0.3}, {"cedolare", 0.5}, {"agenzia delle entrate", 0.5},
	},
	"lavoro": {
		{"ccnl", 0.6}, {"busta paga", 0.6}, {"stipendi", 0.4}, {"retribuzion", 0.4},
		{"tfr", 0.6}, {"ferie", 0.4}, {"licenziament", 0.6}, {"assunzion", 0.5},
		{"dipendent", 0.3}, {"contratto di lavoro", 0.5}, {"apprendist", 0.5},
		{"straordinari", 0.4}, {"malattia", 0.3}, {"tredicesima", 0.5},
		{"quattordicesima", 0.5}, {"dimission", 0.5}, {"preavviso", 0.4}, {"livello", 0.2},
	},
	"previdenza": {
		{"inps", 0.6}, {"inail", 0.5}, {"contribut", 0.4}, {"pension", 0.6},
		{"gestione separata", 0.6}, {"naspi", 0.6}, {"previdenz", 0.5},
		{"riscatto", 0.3}, {"enasarco", 0.6}, {"cassa integrazione", 0.5},
	},
	"societario": {
		{"srl", 0.4}, {"spa", 0.3}, {"societ", 0.4}, {"soci", 0.3},
		{"capitale sociale", 0.6}, {"assemblea", 0.5}, {"amministrator", 0.4},
		{"statuto", 0.5}, {"atto costitutivo", 0.6}, {"costituzion", 0.3},
		{"cession", 0.3}, {"quote", 0.3}, {"fusion", 0.5}, {"scission", 0.5},
		{"liquidazion", 0.4}, {"registro delle imprese", 0.5}, {"dividend", 0.4},
	},
	"contabile": {
		{"bilancio", 0.6}, {"ammortament", 0.6}, {"partita doppia", 0.6},
		{"scrittur", 0.4}, {"prima nota", 0.6}, {"ratei", 0.5}, {"rateo", 0.5},
		{"riscont", 0.5}, {"stato patrimoniale", 0.6}, {"conto economico", 0.6},
		{"contabil", 0.5}, {"inventari", 0.4}, {"nota integrativa", 0.6},
	},
}

var actionKeywords = map[string][]keyword{
	"calcolo": {
		{"calcol", 0.6}, {"quanto", 0.4}, {"importo", 0.3}, {"a quanto ammonta", 0.5},
		{"aliquota", 0.3}, {"ammont", 0.3}, {"netto", 0.3}, {"lordo", 0.3},
	},
	"scadenza": {
		{"scadenz", 0.6}, {"entro quando", 0.6}, {"entro il", 0.4}, {"termin", 0.4},
		{"quando", 0.3}, {"proroga", 0.5}, {"ultimo giorno", 0.5}, {"scade", 0.5},
	},
	"spiegazione": {
		{"cos'è", 0.6}, {"cosa è", 0.6}, {"che cos", 0.6}, {"cosa significa", 0.6},
		{"come funziona", 0.6}, {"spiega", 0.6}, {"perch", 0.4}, {"definizion", 0.5},
		{"in cosa consiste", 0.6},
	},
	"adempimento": {
		{"adempiment", 0.6}, {"come si", 0.3}, {"obblig", 0.5}, {"devo", 0.3},
		{"bisogna", 0.3}, {"comunicazion", 0.4}, {"invio", 0.3}, {"deposit", 0.4},
		{"presentar", 0.4}, {"modulo", 0.4}, {"procedur", 0.4}, {"iscrizion", 0.4},
		{"versament", 0.4},
	},
	"confronto": {
		{"differenz", 0.6}, {"confront", 0.6}, {"meglio", 0.5}, {"conven", 0.5},
		{"rispetto a", 0.5}, {"versus", 0.5}, {"vs", 0.5}, {"oppure", 0.3},
	},
}

// Facts that count as evidence for an action on top of keywords
var factEvidence = map[model.FactKind]struct {
	action string
	weight float64
}{
	model.FactMonetary: {"calcolo", 0.35},
	model.FactRate:     {"calcolo", 0.35},
	model.FactDate:     {"scadenza", 0.3},
}

var (
	domainLabels = compile(Domains, domainKeywords)
	actionLabels = compile(Actions, actionKeywords)
)

func compile(names []string, keywords map[string][]keyword) []label {
	labels := make([]label, 0, len(names))
	for _, name := range names {
		l := label{name: name}
		for _, k := range keywords[name] {
			l.pattern = append(l.pattern, regexp.MustCompile(`(?:^|[^\p{L}\p{N}])`+regexp.QuoteMeta(k.term)))
			l.weights = append(l.weights, k.weight)
		}
		labels = append(labels, l)
	}
	return labels
}

// Rules scores the query against the keyword tables. Matched weights
// combine as a noisy-or; the confidence is the weaker of the domain and
// action scores.
func Rules(query string, facts []model.AtomicFact) model.Classification {
	text := prepare(query)

	domain, domainScore := best(text, domainLabels, nil)

	extra := make(map[string][]float64)
	seen := make(map[model.FactKind]bool)
	for _, f := range facts {
		ev, ok := factEvidence[f.Kind]
		if !ok || seen[f.Kind] {
			continue
		}
		seen[f.Kind] = true
		extra[ev.action] = append(extra[ev.action], ev.weight)
	}
	action, actionScore := best(text, actionLabels, extra)

	if domain == "" {
		domain = DefaultDomain
	}
	if action == "" {
		action = DefaultAction
	}

	return model.Classification{
		Domain:     domain,
		Action:     action,
		Confidence: min(domainScore, actionScore),
		Method:     MethodRules,
	}
}

// best returns the highest-scoring label; ties keep declaration order
func best(text string, labels []label, extra map[string][]float64) (string, float64) {
	var name string
	var top float64
	for _, l := range labels {
		miss := 1.0
		for i, re := range l.pattern {
			if re.MatchString(text) {
				miss *= 1 - l.weights[i]
			}
		}
		for _, w := range extra[l.name] {
			miss *= 1 - w
		}
		if score := 1 - miss; score > top {
			name, top = l.name, score
		}
	}
	return name, top
}

func prepare(text string) string {
	text = norm.NFKC.String(strings.ToLower(text))
	return strings.NewReplacer("’", "'", "`", "'").Replace(text)
}
