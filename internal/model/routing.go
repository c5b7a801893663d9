package model

import "time"

// ProviderProfile describes a routable model provider and its pricing
type ProviderProfile struct {
	ID             string  `json:"id" yaml:"id"`             // Unique route id, e.g. "openai-mini"
	Provider       string  `json:"provider" yaml:"provider"` // openai, anthropic, ollama
	Model          string  `json:"model" yaml:"model"`
	Quality        float64 `json:"quality" yaml:"quality"` // Relative quality score in [0,1]
	PricePerCall   float64 `json:"price_per_call" yaml:"price_per_call"`
	InputPer1K     float64 `json:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1K    float64 `json:"output_per_1k" yaml:"output_per_1k"`
	RequestsPerSec float64 `json:"requests_per_sec,omitempty" yaml:"requests_per_sec,omitempty"`
	APIKeyEnv      string  `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL        string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// RoutingDecision is the router's choice for one request
type RoutingDecision struct {
	Strategy      string            `json:"strategy"`
	Selected      ProviderProfile   `json:"selected"`
	Failover      []ProviderProfile `json:"failover,omitempty"`
	EstimatedCost float64           `json:"estimated_cost"`
	MaxCost       float64           `json:"max_cost"`
	InputTokens   int               `json:"input_tokens"`
	OutputTokens  int               `json:"output_tokens"`
	Rerouted      bool              `json:"rerouted,omitempty"` // Strategy pick exceeded the ceiling
}

// CallOutcome is the result class of a single provider call
type CallOutcome string

const (
	OutcomeSuccess   CallOutcome = "success"
	OutcomeTransient CallOutcome = "transient-failure"
	OutcomeFatal     CallOutcome = "fatal"
)

// ProviderCallAttempt records one call in the retry/failover sequence
type ProviderCallAttempt struct {
	ProviderID string        `json:"provider_id"`
	Attempt    int           `json:"attempt"` // 1-based
	Outcome    CallOutcome   `json:"outcome"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}
