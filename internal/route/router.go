package route

import (
	"math"
	"sort"

	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
	"go.uber.org/zap"
)

// Router picks providers from a fixed set of profiles
type Router struct {
	cfg       model.RoutingConfig
	providers []model.ProviderProfile
	logger    *zap.Logger
}

// NewRouter creates a router over providers. The routing config supplies
// strategies, ceilings and the quality floor.
func NewRouter(cfg model.RoutingConfig, providers []model.ProviderProfile, logger *zap.Logger) *Router {
	return &Router{
		cfg:       cfg,
		providers: providers,
		logger:    logging.OrNop(logger),
	}
}

// StrategyFor maps a classification to a strategy: "domain/action" first,
// then "domain/*", then the default. Unknown names fall back to balanced.
func (r *Router) StrategyFor(domain, action string) Strategy {
	for _, key := range []string{domain + "/" + action, domain + "/*"} {
		if name, ok := r.cfg.Strategies[key]; ok {
			if s, err := ParseStrategy(name); err == nil {
				return s
			}
		}
	}
	s, _ := ParseStrategy(r.cfg.DefaultStrategy)
	return s
}

// Ceiling returns the per-request cost ceiling for a domain. A zero
// ceiling means unlimited.
func (r *Router) Ceiling(domain string) float64 {
	if c, ok := r.cfg.CostCeilings[domain]; ok && c > 0 {
		return c
	}
	if r.cfg.DefaultCeiling > 0 {
		return r.cfg.DefaultCeiling
	}
	return math.MaxFloat64
}

type candidate struct {
	profile model.ProviderProfile
	cost    float64
	score   float64
	order   int
}

// Route selects a provider for the classified query. The strategy's top
// pick is used when it fits the domain ceiling; otherwise the request moves
// down the price ladder to the next-cheapest acceptable provider, the most
// expensive one still under the ceiling. Remaining acceptable providers
// under the ceiling form the failover list in strategy order.
func (r *Router) Route(c model.Classification, inTokens, outTokens int) (model.RoutingDecision, error) {
	strategy := r.StrategyFor(c.Domain, c.Action)
	ceiling := r.Ceiling(c.Domain)

	var ranked []candidate
	for i, p := range r.providers {
		if !strategy.acceptable(p, r.cfg.QualityFloor) {
			continue
		}
		cost := EstimateCost(p, inTokens, outTokens)
		ranked = append(ranked, candidate{profile: p, cost: cost, score: strategy.score(p, cost), order: i})
	}

	decision := model.RoutingDecision{
		Strategy:     strategy.String(),
		MaxCost:      ceiling,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
	}

	if len(ranked) == 0 {
		return decision, errs.E(errs.KindBudgetExceeded, "no provider meets the quality floor", nil)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].cost != ranked[j].cost {
			return ranked[i].cost < ranked[j].cost
		}
		return ranked[i].order < ranked[j].order
	})

	selected := 0
	if ranked[0].cost > ceiling {
		decision.Rerouted = true
		selected = -1
		for i, cand := range ranked {
			if cand.cost > ceiling {
				continue
			}
			if selected < 0 || cand.cost > ranked[selected].cost {
				selected = i
			}
		}
		if selected < 0 {
			r.logger.Warn("no provider under cost ceiling",
				zap.String("domain", c.Domain),
				zap.String("strategy", strategy.String()),
				zap.Float64("ceiling", ceiling),
				zap.Float64("cheapest", cheapestCost(ranked)))
			return decision, errs.E(errs.KindBudgetExceeded, "every provider exceeds the cost ceiling", nil)
		}
	}

	decision.Selected = ranked[selected].profile
	decision.EstimatedCost = ranked[selected].cost
	for i, cand := range ranked {
		if i == selected || cand.cost > ceiling {
			continue
		}
		decision.Failover = append(decision.Failover, cand.profile)
	}

	r.logger.Debug("routed",
		zap.String("domain", c.Domain),
		zap.String("action", c.Action),
		zap.String("strategy", decision.Strategy),
		zap.String("provider", decision.Selected.ID),
		zap.Float64("cost", decision.EstimatedCost),
		zap.Bool("rerouted", decision.Rerouted))

	return decision, nil
}

func cheapestCost(cands []candidate) float64 {
	low := math.MaxFloat64
	for _, c := range cands {
		low = min(low, c.cost)
	}
	return low
}
