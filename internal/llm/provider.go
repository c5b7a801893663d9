// Package llm provides the model providers the call executor talks to.
// Every provider exposes the same Call operation and reports failures as
// *CallError so the executor can tell transient from fatal outcomes.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Call sends one completion request. Failures are *CallError.
	Call(ctx context.Context, req CallRequest) (*CallResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CallRequest is a single completion request
type CallRequest struct {
	// System is the system instruction
	System string

	// Prompt is the user message
	Prompt string

	// Model overrides the provider's configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; 0 uses the provider default
	Temperature float64
}

// CallResponse is a completion result with reported usage
type CallResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		MaxTokens: 1000,
	}
}

// DefaultSystemPrompt frames the assistant for Italian professional queries
const DefaultSystemPrompt = `Sei un assistente per professionisti italiani (commercialisti, consulenti del lavoro).
Rispondi in italiano, in modo preciso e sintetico.
Usa solo le informazioni del contesto fornito; se non bastano, dichiaralo esplicitamente.
Cita le fonti solo tra quelle elencate nel contesto.`

// BuildPrompt joins the query with its rendered context block
func BuildPrompt(query, contextBlock string) string {
	var sb strings.Builder
	if strings.TrimSpace(contextBlock) != "" {
		sb.WriteString("Contesto:\n")
		sb.WriteString(contextBlock)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Domanda: %s\n", strings.TrimSpace(query))
	return sb.String()
}

func maxTokens(req, configured int) int {
	if req > 0 {
		return req
	}
	if configured > 0 {
		return configured
	}
	return 1000
}

func temperature(t float64) float64 {
	if t > 0 {
		return t
	}
	return 0.3 // Lower temperature for more focused, factual output
}
