package model

import "time"

// Config is the complete quaestio configuration
type Config struct {
	Environment string           `yaml:"environment" mapstructure:"environment"` // "production" enables forced failover at the attempt limit
	Thresholds  ThresholdConfig  `yaml:"thresholds" mapstructure:"thresholds"`
	Budget      BudgetConfig     `yaml:"budget" mapstructure:"budget"`
	Authority   AuthorityConfig  `yaml:"authority" mapstructure:"authority"`
	Routing     RoutingConfig    `yaml:"routing" mapstructure:"routing"`
	Retry       RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Cache       CacheConfig      `yaml:"cache" mapstructure:"cache"`
	KB          KBConfig         `yaml:"kb" mapstructure:"kb"`
	Golden      GoldenConfig     `yaml:"golden" mapstructure:"golden"`
	Delta       DeltaConfig      `yaml:"delta" mapstructure:"delta"`
	Classifier  ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Logging     LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Concurrency int              `yaml:"concurrency" mapstructure:"concurrency"` // Batch workers
}

// ThresholdConfig holds the confidence gates
type ThresholdConfig struct {
	Direct     float64 `yaml:"direct" mapstructure:"direct"`         // Serve curated answer as-is
	Advisory   float64 `yaml:"advisory" mapstructure:"advisory"`     // Curated answer joins regeneration
	Classifier float64 `yaml:"classifier" mapstructure:"classifier"` // Rule-based classifier acceptance
}

// BudgetConfig holds context budget settings
type BudgetConfig struct {
	ContextTokens  int                `yaml:"context_tokens" mapstructure:"context_tokens"`
	OutputTokens   int                `yaml:"output_tokens" mapstructure:"output_tokens"` // Expected output used for cost estimates
	DedupThreshold float64            `yaml:"dedup_threshold" mapstructure:"dedup_threshold"`
	SourceWeights  map[string]float64 `yaml:"source_weights" mapstructure:"source_weights"`
	RecentWindow   time.Duration      `yaml:"recent_window" mapstructure:"recent_window"`
	StaleWindow    time.Duration      `yaml:"stale_window" mapstructure:"stale_window"`
	RecentBoost    float64            `yaml:"recent_boost" mapstructure:"recent_boost"`
	StalePenalty   float64            `yaml:"stale_penalty" mapstructure:"stale_penalty"`
	DeltaBoost     float64            `yaml:"delta_boost" mapstructure:"delta_boost"`
}

// RoutingConfig holds provider routing policy
// AuthorityConfig classifies KB entry sources. Sources are URLs or
// normative references such as "DPR 633/1972 art. 16".
type AuthorityConfig struct {
	PrimaryDomains    []string           `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains  []string           `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap         map[string]string  `yaml:"domain_map" mapstructure:"domain_map"` // host -> tier, overrides the lists
	ReferencePatterns []ReferencePattern `yaml:"reference_patterns" mapstructure:"reference_patterns"`
	Weights           map[string]float64 `yaml:"weights" mapstructure:"weights"` // tier -> priority multiplier
}

type ReferencePattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

type RoutingConfig struct {
	DefaultStrategy string             `yaml:"default_strategy" mapstructure:"default_strategy"`
	Strategies      map[string]string  `yaml:"strategies" mapstructure:"strategies"`       // "domain/action" or "domain/*" -> strategy
	CostCeilings    map[string]float64 `yaml:"cost_ceilings" mapstructure:"cost_ceilings"` // domain -> max cost per request
	DefaultCeiling  float64            `yaml:"default_ceiling" mapstructure:"default_ceiling"`
	QualityFloor    float64            `yaml:"quality_floor" mapstructure:"quality_floor"`
	Providers       []ProviderProfile  `yaml:"providers" mapstructure:"providers"`
}

// RetryConfig holds call executor limits
type RetryConfig struct {
	MaxRetries          int           `yaml:"max_retries" mapstructure:"max_retries"`                     // Total attempts = MaxRetries + 1
	SameProviderRetries int           `yaml:"same_provider_retries" mapstructure:"same_provider_retries"` // Retries on one provider before failover
	BaseBackoff         time.Duration `yaml:"base_backoff" mapstructure:"base_backoff"`
	MaxBackoff          time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	CallTimeout         time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	Burst               int           `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir           string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	ResponseTTL   time.Duration `yaml:"response_ttl" mapstructure:"response_ttl"`
	SchemaVersion string        `yaml:"schema_version" mapstructure:"schema_version"`
	EpochFile     string        `yaml:"epoch_file" mapstructure:"epoch_file"` // YAML file with kb/ccnl epochs
	ParserVersion string        `yaml:"parser_version" mapstructure:"parser_version"`
}

// KBConfig holds knowledge-base retrieval settings
type KBConfig struct {
	CorpusPath    string        `yaml:"corpus_path" mapstructure:"corpus_path"`
	TopK          int           `yaml:"top_k" mapstructure:"top_k"`
	BranchTimeout time.Duration `yaml:"branch_timeout" mapstructure:"branch_timeout"`
	Strategies    []string      `yaml:"strategies" mapstructure:"strategies"` // bm25, vector, entity
}

// GoldenConfig holds curated-answer store settings
type GoldenConfig struct {
	Enabled   bool            `yaml:"enabled" mapstructure:"enabled"`
	DBPath    string          `yaml:"db_path" mapstructure:"db_path"`
	TopK      int             `yaml:"top_k" mapstructure:"top_k"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
}

// EmbeddingConfig selects the embedding engine
type EmbeddingConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // openai, ollama, genai, "" (disabled)
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	APIKey   string `yaml:"-" mapstructure:"api_key"`
}

// DeltaConfig holds delta detection settings
type DeltaConfig struct {
	ConflictTags []string      `yaml:"conflict_tags" mapstructure:"conflict_tags"`
	TopK         int           `yaml:"top_k" mapstructure:"top_k"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ClassifierConfig holds the secondary classifier settings
type ClassifierConfig struct {
	SecondaryProvider string `yaml:"secondary_provider" mapstructure:"secondary_provider"` // Provider profile id, "" disables escalation
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Thresholds: ThresholdConfig{
			Direct:     0.90,
			Advisory:   0.70,
			Classifier: 0.60,
		},
		Budget: BudgetConfig{
			ContextTokens:  3000,
			OutputTokens:   600,
			DedupThreshold: 0.85,
			SourceWeights: map[string]float64{
				string(SourceGolden): 1.2,
				string(SourceFact):   1.0,
				string(SourceDoc):    0.9,
				string(SourceKB):     0.8,
			},
			RecentWindow: 30 * 24 * time.Hour,
			StaleWindow:  365 * 24 * time.Hour,
			RecentBoost:  1.2,
			StalePenalty: 0.8,
			DeltaBoost:   1.5,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"gazzettaufficiale.it",
				"normattiva.it",
				"eur-lex.europa.eu",
			},
			SecondaryDomains: []string{
				"agenziaentrate.gov.it",
				"inps.it",
				"lavoro.gov.it",
				"ispettorato.gov.it",
				"cnel.it",
			},
			ReferencePatterns: []ReferencePattern{
				{Pattern: `(?i)^(d\.?\s?lgs\.?|d\.?\s?p\.?\s?r\.?|d\.?\s?l\.?|l\.|legge|codice civile|c\.c\.)(\s|$)`, Tier: "primary"},
				{Pattern: `(?i)^(circolare|risoluzione|interpello|messaggio inps|ccnl)(\s|$)`, Tier: "secondary"},
			},
			Weights: map[string]float64{
				string(AuthorityPrimary):   1.2,
				string(AuthoritySecondary): 1.0,
				string(AuthorityTertiary):  0.8,
			},
		},
		Routing: RoutingConfig{
			DefaultStrategy: "balanced",
			Strategies: map[string]string{
				"fiscale/calcolo":     "cheapest",
				"lavoro/*":            "balanced",
				"societario/*":        "best",
				"previdenza/scadenza": "cheapest",
			},
			CostCeilings: map[string]float64{
				"societario": 0.10,
			},
			DefaultCeiling: 0.05,
			QualityFloor:   0.6,
			Providers: []ProviderProfile{
				{ID: "openai-mini", Provider: "openai", Model: "gpt-4o-mini", Quality: 0.75, InputPer1K: 0.00015, OutputPer1K: 0.0006, RequestsPerSec: 5, APIKeyEnv: "OPENAI_API_KEY"},
				{ID: "anthropic-sonnet", Provider: "anthropic", Model: "claude-3-5-sonnet-20241022", Quality: 0.9, InputPer1K: 0.003, OutputPer1K: 0.015, RequestsPerSec: 2, APIKeyEnv: "ANTHROPIC_API_KEY"},
				{ID: "ollama-local", Provider: "ollama", Model: "llama3.1:8b", Quality: 0.55, RequestsPerSec: 1},
			},
		},
		Retry: RetryConfig{
			MaxRetries:          3,
			SameProviderRetries: 1,
			BaseBackoff:         500 * time.Millisecond,
			MaxBackoff:          8 * time.Second,
			CallTimeout:         30 * time.Second,
			Burst:               2,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Dir:           "",
			MemoryTTL:     15 * time.Minute,
			DiskTTL:       7 * 24 * time.Hour,
			ResponseTTL:   24 * time.Hour,
			SchemaVersion: "1",
			ParserVersion: "1.0.0",
		},
		KB: KBConfig{
			TopK:          8,
			BranchTimeout: 2 * time.Second,
			Strategies:    []string{"bm25", "vector", "entity"},
		},
		Golden: GoldenConfig{
			Enabled: true,
			TopK:    3,
			Embedding: EmbeddingConfig{
				Provider: "",
			},
		},
		Delta: DeltaConfig{
			ConflictTags: []string{"supersedes", "obsoletes", "replaces", "updated"},
			TopK:         5,
			Timeout:      1500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Concurrency: 4,
	}
}

// IsProduction reports whether the production retry policy applies
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
