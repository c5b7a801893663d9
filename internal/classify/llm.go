package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/quaestio/internal/llm"
	"github.com/ppiankov/quaestio/internal/model"
)

const classifierPrompt = `Classifica la domanda di un professionista italiano.
Domini ammessi: %s.
Azioni ammesse: %s.
Rispondi solo con un oggetto JSON: {"domain": "...", "action": "...", "confidence": 0.0}

Domanda: %s`

// LLMClassifier asks a model provider for a JSON label
type LLMClassifier struct {
	provider llm.Provider
}

// NewLLMClassifier creates a secondary classifier backed by provider
func NewLLMClassifier(provider llm.Provider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

// Name returns the classifier name
func (c *LLMClassifier) Name() string {
	return "llm:" + c.provider.Name()
}

type llmLabel struct {
	Domain     string  `json:"domain"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Classify sends the query to the provider and validates the returned labels
func (c *LLMClassifier) Classify(ctx context.Context, query string) (model.Classification, error) {
	resp, err := c.provider.Call(ctx, llm.CallRequest{
		Prompt:      fmt.Sprintf(classifierPrompt, strings.Join(Domains, ", "), strings.Join(Actions, ", "), strings.TrimSpace(query)),
		MaxTokens:   100,
		Temperature: 0.01,
	})
	if err != nil {
		return model.Classification{}, fmt.Errorf("classify call: %w", err)
	}

	label, err := parseLabel(resp.Text)
	if err != nil {
		return model.Classification{}, err
	}

	return model.Classification{
		Domain:     label.Domain,
		Action:     label.Action,
		Confidence: max(0, min(1, label.Confidence)),
		Method:     c.Name(),
	}, nil
}

// parseLabel extracts the first JSON object from text, tolerating code
// fences and surrounding prose
func parseLabel(text string) (llmLabel, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return llmLabel{}, fmt.Errorf("no JSON object in classifier output: %q", text)
	}

	var label llmLabel
	if err := json.Unmarshal([]byte(text[start:end+1]), &label); err != nil {
		return llmLabel{}, fmt.Errorf("parse classifier output: %w", err)
	}

	label.Domain = strings.ToLower(strings.TrimSpace(label.Domain))
	label.Action = strings.ToLower(strings.TrimSpace(label.Action))
	if !slices.Contains(Domains, label.Domain) {
		return llmLabel{}, fmt.Errorf("unknown domain %q", label.Domain)
	}
	if !slices.Contains(Actions, label.Action) {
		return llmLabel{}, fmt.Errorf("unknown action %q", label.Action)
	}
	return label, nil
}
