package bundle

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
)

// AuthorityClassifier sorts KB entry sources into authority tiers
type AuthorityClassifier struct {
	config       model.AuthorityConfig
	primaryMap   map[string]bool
	secondaryMap map[string]bool
	references   []compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.AuthorityTier
}

// NewAuthorityClassifier creates a classifier. Invalid reference patterns
// are skipped.
func NewAuthorityClassifier(config model.AuthorityConfig) *AuthorityClassifier {
	c := &AuthorityClassifier{
		config:       config,
		primaryMap:   make(map[string]bool, len(config.PrimaryDomains)),
		secondaryMap: make(map[string]bool, len(config.SecondaryDomains)),
	}

	for _, d := range config.PrimaryDomains {
		c.primaryMap[strings.ToLower(d)] = true
	}
	for _, d := range config.SecondaryDomains {
		c.secondaryMap[strings.ToLower(d)] = true
	}

	for _, rp := range config.ReferencePatterns {
		re, err := regexp.Compile(rp.Pattern)
		if err != nil {
			continue
		}
		c.references = append(c.references, compiledPattern{pattern: re, tier: parseTier(rp.Tier)})
	}

	return c
}

// Classify returns the tier of a source. URLs are matched by host (a
// configured domain also covers its subdomains); anything else is matched
// against the reference patterns. Unknown sources are tertiary.
func (a *AuthorityClassifier) Classify(source string) model.AuthorityTier {
	source = strings.TrimSpace(source)
	if source == "" {
		return model.AuthorityTertiary
	}

	if u, err := url.Parse(source); err == nil && u.Host != "" {
		return a.classifyHost(strings.ToLower(u.Hostname()))
	}

	for _, cp := range a.references {
		if cp.pattern.MatchString(source) {
			return cp.tier
		}
	}
	return model.AuthorityTertiary
}

func (a *AuthorityClassifier) classifyHost(host string) model.AuthorityTier {
	if tier, ok := a.config.DomainMap[host]; ok {
		return parseTier(tier)
	}

	if matchDomain(host, a.primaryMap) {
		return model.AuthorityPrimary
	}
	if matchDomain(host, a.secondaryMap) {
		return model.AuthoritySecondary
	}

	// Italian public administration
	if strings.HasSuffix(host, ".gov.it") {
		return model.AuthoritySecondary
	}
	return model.AuthorityTertiary
}

// Weight returns the priority multiplier for a source, 1 when the tier has
// no configured weight
func (a *AuthorityClassifier) Weight(source string) float64 {
	if w, ok := a.config.Weights[string(a.Classify(source))]; ok && w > 0 {
		return w
	}
	return 1.0
}

func matchDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for d := range domains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.AuthorityPrimary
	case "secondary", "2":
		return model.AuthoritySecondary
	default:
		return model.AuthorityTertiary
	}
}
