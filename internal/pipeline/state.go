package pipeline

import (
	"github.com/ppiankov/quaestio/internal/execute"
	"github.com/ppiankov/quaestio/internal/golden"
	"github.com/ppiankov/quaestio/internal/model"
)

// State is the request-scoped value passed from stage to stage. Stages
// never modify the State they receive; each returns an updated copy.
type State struct {
	Request        model.Request
	Facts          []model.AtomicFact
	DocFacts       []model.AtomicFact
	Signature      model.QuerySignature
	Epochs         model.Epochs
	CacheKey       model.CacheKey
	Eligibility    golden.Eligibility
	Match          model.MatchResult
	Recent         []model.KBResult // Entries fetched for delta detection
	Delta          *model.DeltaDecision
	Classification *model.Classification
	KB             []model.KBResult
	Bundle         *model.ContextBundle
	Routing        *model.RoutingDecision
	Execution      *execute.Result
	Response       *model.Response // Set once the request is resolved
}

// Done reports whether a stage produced the final response
func (s State) Done() bool {
	return s.Response != nil
}

// with returns a copy of s updated by fn
func (s State) with(fn func(*State)) State {
	fn(&s)
	return s
}
