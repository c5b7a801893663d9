package model

// ContextSource identifies where a context part came from
type ContextSource string

const (
	SourceFact   ContextSource = "fact"
	SourceKB     ContextSource = "kb"
	SourceDoc    ContextSource = "doc"
	SourceGolden ContextSource = "golden"
)

// ContextPart is one candidate piece of generation context
// AuthorityTier ranks where a knowledge-base entry comes from
type AuthorityTier string

const (
	AuthorityPrimary   AuthorityTier = "primary"   // Laws, decrees, official journals
	AuthoritySecondary AuthorityTier = "secondary" // Agency circulars, rulings, CCNL texts
	AuthorityTertiary  AuthorityTier = "tertiary"  // Commentary and everything else
)

type ContextPart struct {
	Source    ContextSource `json:"source"`
	Text      string        `json:"text"`
	Priority  float64       `json:"priority"`
	Tokens    int           `json:"tokens"`
	Index     int           `json:"index"`               // Insertion order, used to break ties
	Citation  string        `json:"citation,omitempty"`  // Optional reference carried into the answer
	Truncated bool          `json:"truncated,omitempty"` // Cut at a sentence boundary to fit the budget
}

// ContextBundle is the bounded context handed to a model provider
type ContextBundle struct {
	Parts       []ContextPart `json:"parts"`
	TotalTokens int           `json:"total_tokens"`
	Budget      int           `json:"budget"`
	Dropped     []ContextPart `json:"dropped,omitempty"`
}

// Citations returns the distinct citations of the kept parts in order
func (b ContextBundle) Citations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range b.Parts {
		if p.Citation == "" || seen[p.Citation] {
			continue
		}
		seen[p.Citation] = true
		out = append(out, p.Citation)
	}
	return out
}
