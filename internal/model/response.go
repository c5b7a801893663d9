package model

// Document is an attached document, already hashed by the upload layer
type Document struct {
	Hash string `json:"hash"`
	Name string `json:"name,omitempty"`
	Body []byte `json:"-"`
}

// Request is a single user query entering the pipeline
type Request struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	Documents []Document `json:"documents,omitempty"`
}

// DocHashes returns the hashes of the attached documents
func (r Request) DocHashes() []string {
	hashes := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		hashes = append(hashes, d.Hash)
	}
	return hashes
}

// Classification is the domain/action label for a query
type Classification struct {
	Domain     string  `json:"domain"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"` // "rules" or the secondary classifier name
}

// ResponseSource tells where an answer came from
type ResponseSource string

const (
	FromGolden    ResponseSource = "golden"
	FromCache     ResponseSource = "cache"
	FromGenerated ResponseSource = "generated"
)

// Response is the final answer returned to the caller
type Response struct {
	RequestID      string                `json:"request_id"`
	Text           string                `json:"text"`
	Source         ResponseSource        `json:"source"`
	Citations      []string              `json:"citations,omitempty"`
	CuratedID      string                `json:"curated_id,omitempty"`
	Match          MatchResult           `json:"match"`
	Delta          *DeltaDecision        `json:"delta,omitempty"`
	Classification *Classification       `json:"classification,omitempty"`
	Routing        *RoutingDecision      `json:"routing,omitempty"`
	Attempts       []ProviderCallAttempt `json:"attempts,omitempty"`
	Provider       string                `json:"provider,omitempty"`
	Model          string                `json:"model,omitempty"`
	InputTokens    int                   `json:"input_tokens,omitempty"`
	OutputTokens   int                   `json:"output_tokens,omitempty"`
	Cost           float64               `json:"cost,omitempty"`
	Signature      QuerySignature        `json:"signature"`
	CacheKey       CacheKey              `json:"cache_key,omitempty"`
	Epochs         Epochs                `json:"epochs"`
}
