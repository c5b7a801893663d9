// Package kb retrieves knowledge-base entries. A Retriever fans a query out
// to several search strategies concurrently and fuses their rankings.
package kb

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/model"
)

// Searcher is a single knowledge-base search strategy
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]model.KBResult, error)
}

// rrfK dampens the weight of top ranks in reciprocal rank fusion
const rrfK = 60

// Strategy is a named searcher taking part in the fan-out
type Strategy struct {
	Name     string
	Searcher Searcher
}

// Retriever runs every strategy in parallel, each under its own timeout.
// A failing or slow strategy contributes nothing.
type Retriever struct {
	strategies    []Strategy
	branchTimeout time.Duration
	logger        *zap.Logger
}

// NewRetriever creates a fan-out retriever
func NewRetriever(strategies []Strategy, branchTimeout time.Duration, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		strategies:    strategies,
		branchTimeout: branchTimeout,
		logger:        logger,
	}
}

// Search queries all strategies and merges their results by reciprocal
// rank fusion. Only cancellation of ctx is reported as an error.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
	if topK <= 0 || len(r.strategies) == 0 {
		return nil, nil
	}

	ranked := make([][]model.KBResult, len(r.strategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range r.strategies {
		g.Go(func() error {
			bctx := gctx
			if r.branchTimeout > 0 {
				var cancel context.CancelFunc
				bctx, cancel = context.WithTimeout(gctx, r.branchTimeout)
				defer cancel()
			}

			start := time.Now()
			results, err := s.Searcher.Search(bctx, query, topK)
			if err != nil {
				r.logger.Warn("KB strategy failed, continuing without it",
					zap.String("strategy", s.Name),
					zap.Duration("latency", time.Since(start)),
					zap.Error(err))
				return nil // A failed branch must not cancel its siblings
			}

			r.logger.Debug("KB strategy finished",
				zap.String("strategy", s.Name),
				zap.Int("results", len(results)),
				zap.Duration("latency", time.Since(start)))
			ranked[i] = results
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errs.E(errs.KindCanceled, "KB retrieval canceled", err)
	}

	return Fuse(ranked, topK), nil
}

// Fuse merges ranked lists by reciprocal rank fusion. An entry found by
// several strategies is kept once, with its fields from the first list that
// returned it. Scores are normalized so the best entry scores 1.
func Fuse(lists [][]model.KBResult, topK int) []model.KBResult {
	type fused struct {
		result model.KBResult
		score  float64
		first  int
	}

	byKey := make(map[string]*fused)
	var order []*fused
	for _, list := range lists {
		for rank, res := range list {
			f, ok := byKey[res.Key()]
			if !ok {
				f = &fused{result: res, first: len(order)}
				byKey[res.Key()] = f
				order = append(order, f)
			}
			f.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].first < order[j].first
	})

	if len(order) > topK {
		order = order[:topK]
	}

	out := make([]model.KBResult, 0, len(order))
	for _, f := range order {
		res := f.result
		res.Score = f.score / order[0].score
		out = append(out, res)
	}
	return out
}
