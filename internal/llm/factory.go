package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch strings.ToLower(config.Provider) {
	case "openai":
		p, err = NewOpenAIProvider(config)
	case "anthropic", "claude":
		p, err = NewAnthropicProvider(config)
	case "ollama":
		p, err = NewOllamaProvider(config)
	case "":
		// No provider configured - LLM disabled
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}

	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConfigFromProfile builds a provider config from a routing profile. The
// API key is read from the environment variable the profile names.
func ConfigFromProfile(profile model.ProviderProfile, outputTokens int) Config {
	cfg := DefaultConfig()
	cfg.Provider = profile.Provider
	cfg.Model = profile.Model
	cfg.BaseURL = profile.BaseURL
	if profile.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(profile.APIKeyEnv)
	}
	if outputTokens > 0 {
		cfg.MaxTokens = outputTokens
	}
	cfg.HTTPProxy = os.Getenv("QUAESTIO_HTTP_PROXY")
	cfg.HTTPSProxy = os.Getenv("QUAESTIO_HTTPS_PROXY")
	cfg.NoProxy = os.Getenv("QUAESTIO_NO_PROXY")
	return cfg
}

// Registry maps provider profile ids to live providers
type Registry map[string]Provider

// NewRegistry creates a provider for every profile. Profiles whose
// provider cannot be constructed (for example a missing API key) are
// skipped and reported in the returned error list.
func NewRegistry(profiles []model.ProviderProfile, outputTokens int) (Registry, []error) {
	reg := make(Registry, len(profiles))
	var failures []error
	for _, profile := range profiles {
		p, err := NewProvider(ConfigFromProfile(profile, outputTokens))
		if err != nil {
			failures = append(failures, fmt.Errorf("provider %s: %w", profile.ID, err))
			continue
		}
		if p != nil {
			reg[profile.ID] = p
		}
	}
	return reg, failures
}
