package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/quaestio/internal/util"
)

// OllamaProvider talks to a local Ollama server through its chat API
type OllamaProvider struct {
	baseURL  string
	endpoint jsonEndpoint
	config   Config
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`

	// Only present when done
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaProvider creates an Ollama provider. The base URL defaults to
// the local daemon.
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		endpoint: jsonEndpoint{
			provider:   "ollama",
			client:     util.NewHTTPClient(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			apiMessage: ollamaErrorMessage,
		},
		config: config,
	}, nil
}

func ollamaErrorMessage(body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) != nil {
		return ""
	}
	return apiErr.Error
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable reports whether the daemon answers and, when a model is
// configured, has it pulled
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	var tags ollamaTags
	if err := p.endpoint.do(ctx, http.MethodGet, p.baseURL+"/api/tags", nil, &tags); err != nil {
		return false
	}
	if p.config.Model == "" {
		return true
	}
	for _, m := range tags.Models {
		if m.Name == p.config.Model || strings.TrimSuffix(m.Name, ":latest") == p.config.Model {
			return true
		}
	}
	return false
}

// Call sends the system and user messages as one non-streaming chat turn
func (p *OllamaProvider) Call(ctx context.Context, req CallRequest) (*CallResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, &CallError{Provider: p.Name(), Kind: ErrFatal, Err: fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")}
	}

	var messages []ollamaMessage
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.Prompt})

	var resp ollamaChatResponse
	err := p.endpoint.do(ctx, http.MethodPost, p.baseURL+"/api/chat", ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Options: ollamaOptions{
			Temperature: temperature(req.Temperature),
			NumPredict:  maxTokens(req.MaxTokens, p.config.MaxTokens),
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return nil, &CallError{Provider: p.Name(), Kind: ErrTransient, Err: fmt.Errorf("empty chat message from Ollama")}
	}

	// Some models report no counts; fall back to 4 characters per token
	in, out := resp.PromptEvalCount, resp.EvalCount
	if in == 0 && out == 0 {
		in = (len(req.System) + len(req.Prompt)) / 4
		out = len(text) / 4
	}

	return &CallResponse{
		Text:         text,
		Model:        resp.Model,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}
