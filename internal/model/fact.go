package model

// FactKind classifies an atomic fact extracted from query text
type FactKind string

const (
	FactMonetary     FactKind = "monetary"              // Amounts, canonical "EUR:<minor units>"
	FactDate         FactKind = "date"                  // Calendar dates, canonical ISO YYYY-MM-DD
	FactLegalEntity  FactKind = "legal-entity"          // Company forms (srl, spa, ...)
	FactProfCategory FactKind = "professional-category" // CCNL sectors and job levels
	FactGeography    FactKind = "geography"             // Regions and cities
	FactRate         FactKind = "rate"                  // Percentages, canonical decimal fraction
)

// Span is a byte range in the source text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// AtomicFact is a single normalized fact found in a query or document
type AtomicFact struct {
	Kind  FactKind `json:"kind"`
	Value string   `json:"value"`          // Normalized value once canonicalized
	Span  Span     `json:"span,omitempty"` // Where the fact was found (not part of identity)
}

// QuerySignature is a fixed-length hex digest over a canonical fact set
type QuerySignature string

// String returns the signature as a string
func (s QuerySignature) String() string {
	return string(s)
}

// Short returns an abbreviated signature for logs
func (s QuerySignature) Short() string {
	if len(s) <= 12 {
		return string(s)
	}
	return string(s[:12])
}
