// Package pipeline resolves a query end to end: curated fast path, response
// cache, then retrieval and generation with cost-aware routing.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/bundle"
	"github.com/ppiankov/quaestio/internal/cache"
	"github.com/ppiankov/quaestio/internal/classify"
	"github.com/ppiankov/quaestio/internal/delta"
	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/execute"
	"github.com/ppiankov/quaestio/internal/extract"
	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/golden"
	"github.com/ppiankov/quaestio/internal/llm"
	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
	"github.com/ppiankov/quaestio/internal/route"
)

// Searcher is the knowledge-base search
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]model.KBResult, error)
}

// Classifier labels a query
type Classifier interface {
	Classify(ctx context.Context, query string, facts []model.AtomicFact) model.Classification
}

// Router picks a provider for a classified query
type Router interface {
	Route(c model.Classification, inTokens, outTokens int) (model.RoutingDecision, error)
}

// Executor runs a routed completion
type Executor interface {
	Execute(ctx context.Context, decision model.RoutingDecision, req llm.CallRequest) (*execute.Result, error)
}

// Deps are the collaborators of a Resolver. Matcher, KB, Documents and
// Cache may be nil; the corresponding stage is then skipped.
type Deps struct {
	Config     *model.Config
	Matcher    *golden.Matcher
	Detector   *delta.Detector
	KB         Searcher
	Documents  extract.DocumentExtractor
	Classifier Classifier
	Builder    *bundle.Builder
	Router     Router
	Executor   Executor
	Cache      *cache.ResponseCache
	Epochs     *cache.EpochResolver
	Counter    bundle.TokenCounter
	Logger     *zap.Logger
}

// Resolver coordinates the stages for one request at a time; it holds no
// per-request state and is safe for concurrent use
type Resolver struct {
	deps   Deps
	cfg    *model.Config
	logger *zap.Logger
}

// New creates a resolver
func New(deps Deps) *Resolver {
	cfg := deps.Config
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if deps.Detector == nil {
		deps.Detector = delta.NewDetector(cfg.Delta, deps.Logger)
	}
	if deps.Counter == nil {
		deps.Counter = bundle.DefaultCounter
	}
	if deps.Builder == nil {
		deps.Builder = bundle.NewBuilder(cfg.Budget, deps.Counter).
			WithAuthority(bundle.NewAuthorityClassifier(cfg.Authority))
	}
	if deps.Epochs == nil {
		deps.Epochs = cache.NewEpochResolver(nil, nil, nil, cfg.Cache.ParserVersion, deps.Logger)
	}
	return &Resolver{deps: deps, cfg: cfg, logger: logging.OrNop(deps.Logger)}
}

// Resolve answers a request. The only error returned is a terminal
// *errs.Error with a stable kind.
func (r *Resolver) Resolve(ctx context.Context, req model.Request) (*model.Response, error) {
	s, err := r.Run(ctx, req)
	if err != nil {
		return nil, errs.Terminal(err)
	}
	return s.Response, nil
}

// Run executes the stages and returns the final State for inspection
func (r *Resolver) Run(ctx context.Context, req model.Request) (State, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	s := State{Request: req}

	if strings.TrimSpace(req.Query) == "" {
		return s, errs.E(errs.KindInvalidInput, "empty query", nil)
	}

	start := time.Now()
	stages := []struct {
		name string
		run  func(context.Context, State) (State, error)
	}{
		{"facts", r.extractFacts},
		{"key", r.resolveKey},
		{"golden", r.matchGolden},
		{"cache", r.lookupCache},
		{"classify", r.classify},
		{"kb", r.retrieve},
		{"bundle", r.buildBundle},
		{"route", r.route},
		{"execute", r.execute},
	}

	var err error
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return s, errs.E(errs.KindCanceled, "request canceled before "+stage.name, err)
		}
		s, err = stage.run(ctx, s)
		if err != nil {
			r.logger.Warn("request failed",
				zap.String("request_id", req.ID),
				zap.String("stage", stage.name),
				zap.String("kind", string(errs.KindOf(err))),
				zap.Error(err))
			return s, err
		}
		if s.Done() {
			break
		}
	}

	r.logger.Info("request resolved",
		zap.String("request_id", req.ID),
		zap.String("signature", s.Signature.Short()),
		zap.String("tier", string(s.Match.Tier)),
		zap.String("source", string(s.Response.Source)),
		zap.String("cache_key", string(s.CacheKey)),
		zap.Float64("cost", s.Response.Cost),
		zap.Duration("latency", time.Since(start)))

	return s, nil
}

// Key computes the signature, epochs and cache key a request would use
func (r *Resolver) Key(ctx context.Context, req model.Request) (State, error) {
	s, err := r.extractFacts(ctx, State{Request: req})
	if err != nil {
		return s, err
	}
	return r.resolveKey(ctx, s)
}

func (r *Resolver) extractFacts(ctx context.Context, s State) (State, error) {
	queryFacts := facts.Parse(s.Request.Query)

	var docFacts []model.AtomicFact
	if r.deps.Documents != nil {
		for _, doc := range s.Request.Documents {
			fs, err := r.deps.Documents.Extract(ctx, doc)
			if err != nil {
				if ctx.Err() != nil {
					return s, errs.E(errs.KindCanceled, "document extraction canceled", ctx.Err())
				}
				r.logger.Warn("document extraction failed",
					zap.String("request_id", s.Request.ID),
					zap.String("document", doc.Name),
					zap.Error(err))
				continue
			}
			docFacts = append(docFacts, fs...)
		}
	}

	return s.with(func(s *State) {
		s.Facts = queryFacts
		s.DocFacts = docFacts
		s.Signature = facts.Signature(queryFacts)
	}), nil
}

// resolveKey snapshots epochs once per request; the response is stored
// under this key even if an epoch moves while generation runs
func (r *Resolver) resolveKey(ctx context.Context, s State) (State, error) {
	epochs := r.deps.Epochs.Resolve(ctx)

	var key model.CacheKey
	if r.deps.Cache != nil {
		key = r.deps.Cache.Key(s.Signature, s.Request.DocHashes(), epochs)
	} else {
		key = cache.ComputeKey(s.Signature, s.Request.DocHashes(), epochs)
	}

	return s.with(func(s *State) {
		s.Epochs = epochs
		s.CacheKey = key
	}), nil
}

func (r *Resolver) matchGolden(ctx context.Context, s State) (State, error) {
	elig := golden.Precheck(s.Request.Query, len(s.Request.Documents) > 0)
	s = s.with(func(s *State) {
		s.Eligibility = elig
		s.Match = model.Miss()
	})
	if !elig.Eligible || r.deps.Matcher == nil {
		return s, nil
	}

	match, err := r.deps.Matcher.Match(ctx, s.Signature, s.Request.Query)
	if err != nil {
		return s, err
	}
	s = s.with(func(s *State) { s.Match = match })
	if !match.Matched {
		return s, nil
	}

	recent := r.deps.Detector.Recent(ctx, r.deps.KB, s.Request.Query)
	decision := r.deps.Detector.Detect(match, recent)
	s = s.with(func(s *State) {
		s.Recent = recent
		s.Delta = &decision
	})

	r.logger.Debug("curated match",
		zap.String("request_id", s.Request.ID),
		zap.String("signature", s.Signature.Short()),
		zap.String("tier", string(match.Tier)),
		zap.Float64("confidence", match.Confidence),
		zap.String("delta", string(decision.Reason)))

	if match.Tier != model.TierDirect || decision.HasDelta {
		return s, nil
	}

	answer := match.Answer
	return s.with(func(s *State) {
		s.Response = &model.Response{
			RequestID: s.Request.ID,
			Text:      answer.Answer,
			Source:    model.FromGolden,
			Citations: answer.Citations,
			CuratedID: answer.ID,
			Match:     match,
			Delta:     &decision,
			Signature: s.Signature,
			CacheKey:  s.CacheKey,
			Epochs:    s.Epochs,
		}
	}), nil
}

func (r *Resolver) lookupCache(ctx context.Context, s State) (State, error) {
	cached, ok := r.deps.Cache.Lookup(ctx, s.CacheKey)
	if !ok {
		return s, nil
	}
	cached.RequestID = s.Request.ID
	cached.Match = s.Match
	cached.Delta = s.Delta
	return s.with(func(s *State) { s.Response = cached }), nil
}

func (r *Resolver) classify(ctx context.Context, s State) (State, error) {
	c := model.Classification{Domain: classify.DefaultDomain, Action: classify.DefaultAction, Method: "none"}
	if r.deps.Classifier != nil {
		c = r.deps.Classifier.Classify(ctx, s.Request.Query, s.Facts)
	}
	return s.with(func(s *State) { s.Classification = &c }), nil
}

func (r *Resolver) retrieve(ctx context.Context, s State) (State, error) {
	var results []model.KBResult
	if r.deps.KB != nil {
		var err error
		results, err = r.deps.KB.Search(ctx, s.Request.Query, r.cfg.KB.TopK)
		if err != nil {
			if ctx.Err() != nil {
				return s, errs.E(errs.KindCanceled, "knowledge-base search canceled", ctx.Err())
			}
			r.logger.Warn("knowledge-base search failed, continuing without", zap.Error(err))
			results = nil
		}
	}

	// Entries that invalidated a curated answer must reach the model
	if s.Delta != nil && s.Delta.HasDelta {
		results = mergeEntries(s.Delta.Entries, results)
	}
	return s.with(func(s *State) { s.KB = results }), nil
}

func (r *Resolver) buildBundle(_ context.Context, s State) (State, error) {
	var curated *model.CuratedAnswer
	if s.Match.Matched {
		curated = s.Match.Answer
	}
	b := r.deps.Builder.Merge(s.Facts, s.KB, s.DocFacts, curated, r.cfg.Budget.ContextTokens)
	return s.with(func(s *State) { s.Bundle = &b }), nil
}

func (r *Resolver) route(_ context.Context, s State) (State, error) {
	if r.deps.Router == nil {
		return s, errs.E(errs.KindInternal, "no provider router configured", nil)
	}

	in := r.deps.Counter.Count(llm.DefaultSystemPrompt) +
		r.deps.Counter.Count(s.Request.Query) +
		s.Bundle.TotalTokens
	decision, err := r.deps.Router.Route(*s.Classification, in, r.cfg.Budget.OutputTokens)
	if err != nil {
		return s, err
	}
	return s.with(func(s *State) { s.Routing = &decision }), nil
}

func (r *Resolver) execute(ctx context.Context, s State) (State, error) {
	if r.deps.Executor == nil {
		return s, errs.E(errs.KindInternal, "no call executor configured", nil)
	}

	req := llm.CallRequest{
		System:    llm.DefaultSystemPrompt,
		Prompt:    llm.BuildPrompt(s.Request.Query, bundle.Render(*s.Bundle)),
		MaxTokens: r.cfg.Budget.OutputTokens,
	}

	result, err := r.deps.Executor.Execute(ctx, *s.Routing, req)
	s = s.with(func(s *State) { s.Execution = result })
	if err != nil {
		return s, err
	}

	call := result.Response
	resp := &model.Response{
		RequestID:      s.Request.ID,
		Text:           call.Text,
		Source:         model.FromGenerated,
		Citations:      s.Bundle.Citations(),
		Match:          s.Match,
		Delta:          s.Delta,
		Classification: s.Classification,
		Routing:        s.Routing,
		Attempts:       result.Attempts,
		Provider:       result.Provider.ID,
		Model:          call.Model,
		InputTokens:    call.InputTokens,
		OutputTokens:   call.OutputTokens,
		Cost:           route.EstimateCost(result.Provider, call.InputTokens, call.OutputTokens),
		Signature:      s.Signature,
		CacheKey:       s.CacheKey,
		Epochs:         s.Epochs,
	}
	if resp.Model == "" {
		resp.Model = result.Provider.Model
	}

	if err := r.deps.Cache.Store(ctx, s.CacheKey, *resp, r.cfg.Cache.ResponseTTL); err != nil {
		r.logger.Warn("response not cached",
			zap.String("request_id", s.Request.ID),
			zap.String("cache_key", string(s.CacheKey)),
			zap.Error(err))
	}

	return s.with(func(s *State) { s.Response = resp }), nil
}

// mergeEntries puts priority entries first and drops later duplicates
func mergeEntries(priority, rest []model.KBResult) []model.KBResult {
	seen := make(map[string]bool, len(priority)+len(rest))
	out := make([]model.KBResult, 0, len(priority)+len(rest))
	for _, list := range [][]model.KBResult{priority, rest} {
		for _, e := range list {
			if seen[e.Key()] {
				continue
			}
			seen[e.Key()] = true
			out = append(out, e)
		}
	}
	return out
}
