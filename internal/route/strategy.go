// Package route selects a model provider for a classified query under a
// cost-aware strategy.
package route

import (
	"fmt"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
)

// Strategy is a provider selection policy
type Strategy int

const (
	Cheapest Strategy = iota // Minimum cost among providers above the quality floor
	Best                     // Maximum quality up to the cost ceiling
	Balanced                 // Maximum quality per unit of cost
)

// String returns the configuration name of the strategy
func (s Strategy) String() string {
	switch s {
	case Cheapest:
		return "cheapest"
	case Best:
		return "best"
	case Balanced:
		return "balanced"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses a configuration name
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cheapest":
		return Cheapest, nil
	case "best", "best-quality", "quality":
		return Best, nil
	case "balanced":
		return Balanced, nil
	default:
		return Balanced, fmt.Errorf("unknown routing strategy: %s (supported: cheapest, best, balanced)", name)
	}
}

// minCost keeps the balanced ratio finite for free providers
const minCost = 1e-6

// score ranks a provider under the strategy; higher is better
func (s Strategy) score(p model.ProviderProfile, cost float64) float64 {
	switch s {
	case Cheapest:
		return -cost
	case Best:
		return p.Quality
	default:
		return p.Quality / max(cost, minCost)
	}
}

// acceptable reports whether a provider may serve under the strategy at all
func (s Strategy) acceptable(p model.ProviderProfile, floor float64) bool {
	if s == Cheapest {
		return p.Quality >= floor
	}
	return true
}

// EstimateCost prices one call: the per-call price plus input and output
// tokens at the per-1K rates
func EstimateCost(p model.ProviderProfile, inTokens, outTokens int) float64 {
	return p.PricePerCall +
		float64(inTokens)/1000*p.InputPer1K +
		float64(outTokens)/1000*p.OutputPer1K
}
