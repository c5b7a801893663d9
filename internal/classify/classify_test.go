package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/llm"
	"github.com/ppiankov/quaestio/internal/model"
)

func TestRules(t *testing.T) {
	tests := []struct {
		query  string
		domain string
		action string
	}{
		{"Come si calcola l'IVA al 22% su 1000 euro?", "fiscale", "calcolo"},
		{"Quanto vale e come si calcola la tredicesima in busta paga?", "lavoro", "calcolo"},
		{"Entro quando va presentato il modello F24?", "fiscale", "scadenza"},
		{"Differenza tra srl e spa per i soci", "societario", "confronto"},
		{"Come funziona il ravvedimento operoso?", "fiscale", "spiegazione"},
		{"Registrare l'ammortamento in bilancio", "contabile", DefaultAction},
		{"Quali contributi INPS versa un artigiano?", "previdenza", DefaultAction},
		{"buongiorno", DefaultDomain, DefaultAction},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Rules(tt.query, facts.Parse(tt.query))
			if got.Domain != tt.domain || got.Action != tt.action {
				t.Errorf("Rules(%q) = %s/%s, want %s/%s", tt.query, got.Domain, got.Action, tt.domain, tt.action)
			}
			if got.Method != MethodRules {
				t.Errorf("expected method %q, got %q", MethodRules, got.Method)
			}
		})
	}
}

func TestRules_ConfidenceIsWeakerSide(t *testing.T) {
	got := Rules("Come funziona il ravvedimento operoso?", nil)
	if got.Confidence < 0.49 || got.Confidence > 0.51 {
		t.Errorf("expected confidence of the domain side (0.5), got %f", got.Confidence)
	}

	if got := Rules("buongiorno", nil); got.Confidence != 0 {
		t.Errorf("expected zero confidence without keywords, got %f", got.Confidence)
	}
}

func TestRules_FactsAddEvidence(t *testing.T) {
	query := "iva 22% su 1000 euro"
	without := Rules(query, nil)
	with := Rules(query, facts.Parse(query))

	if with.Action != "calcolo" {
		t.Errorf("expected amount and rate facts to imply calcolo, got %s", with.Action)
	}
	if with.Confidence <= without.Confidence {
		t.Errorf("expected fact evidence to raise confidence: %f <= %f", with.Confidence, without.Confidence)
	}
}

type stubSecondary struct {
	result model.Classification
	err    error
	calls  int
}

func (s *stubSecondary) Name() string { return "stub" }

func (s *stubSecondary) Classify(ctx context.Context, query string) (model.Classification, error) {
	s.calls++
	return s.result, s.err
}

type recordingObserver struct {
	outcomes []Outcome
}

func (o *recordingObserver) Observe(_ context.Context, out Outcome) {
	o.outcomes = append(o.outcomes, out)
}

func TestClassifier_ConfidentRulesSkipSecondary(t *testing.T) {
	sec := &stubSecondary{result: model.Classification{Domain: "contabile", Action: "calcolo", Confidence: 0.99}}
	obs := &recordingObserver{}
	c := New(0.60, sec, obs, nil)

	got := c.Classify(context.Background(), "Quanto vale e come si calcola la tredicesima in busta paga?", nil)
	if got.Domain != "lavoro" || got.Method != MethodRules {
		t.Errorf("expected rule result, got %+v", got)
	}
	if sec.calls != 0 {
		t.Errorf("expected no secondary call, got %d", sec.calls)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0].Escalated {
		t.Errorf("expected one non-escalated outcome, got %+v", obs.outcomes)
	}
}

func TestClassifier_Escalation(t *testing.T) {
	query := "Come funziona il ravvedimento operoso?"

	tests := []struct {
		name       string
		secondary  *stubSecondary
		wantMethod string
	}{
		{"higher confidence wins", &stubSecondary{result: model.Classification{Domain: "fiscale", Action: "adempimento", Confidence: 0.9, Method: "stub"}}, "stub"},
		{"lower confidence ignored", &stubSecondary{result: model.Classification{Domain: "lavoro", Action: "calcolo", Confidence: 0.3, Method: "stub"}}, MethodRules},
		{"failure keeps rules", &stubSecondary{err: errors.New("provider down")}, MethodRules},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			got := New(0.60, tt.secondary, obs, nil).Classify(context.Background(), query, nil)

			if got.Method != tt.wantMethod {
				t.Errorf("expected method %s, got %+v", tt.wantMethod, got)
			}
			if tt.secondary.calls != 1 {
				t.Errorf("expected one secondary call, got %d", tt.secondary.calls)
			}
			if len(obs.outcomes) != 1 || !obs.outcomes[0].Escalated {
				t.Fatalf("expected one escalated outcome, got %+v", obs.outcomes)
			}
			if tt.secondary.err == nil && obs.outcomes[0].Secondary == nil {
				t.Error("expected observer to see the secondary result")
			}
		})
	}
}

func TestClassifier_NoSecondary(t *testing.T) {
	got := New(0, nil, NewLogObserver(nil), nil).Classify(context.Background(), "Come funziona il ravvedimento operoso?", nil)
	if got.Domain != "fiscale" || got.Method != MethodRules {
		t.Errorf("expected rule result without secondary, got %+v", got)
	}
}

type stubProvider struct {
	text string
	err  error
	req  llm.CallRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) Call(ctx context.Context, req llm.CallRequest) (*llm.CallResponse, error) {
	p.req = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CallResponse{Text: p.text}, nil
}

func TestLLMClassifier(t *testing.T) {
	p := &stubProvider{text: "```json\n{\"domain\": \"Lavoro\", \"action\": \"calcolo\", \"confidence\": 1.4}\n```"}
	got, err := NewLLMClassifier(p).Classify(context.Background(), "TFR per 5 anni")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	want := model.Classification{Domain: "lavoro", Action: "calcolo", Confidence: 1, Method: "llm:stub"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if p.req.Prompt == "" || p.req.MaxTokens != 100 {
		t.Errorf("unexpected request: %+v", p.req)
	}
}

func TestLLMClassifier_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    *stubProvider
	}{
		{"call failure", &stubProvider{err: errors.New("boom")}},
		{"no json", &stubProvider{text: "non saprei"}},
		{"bad json", &stubProvider{text: "{domain: lavoro}"}},
		{"unknown domain", &stubProvider{text: `{"domain": "sanitario", "action": "calcolo", "confidence": 0.8}`}},
		{"unknown action", &stubProvider{text: `{"domain": "lavoro", "action": "stima", "confidence": 0.8}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLLMClassifier(tt.p).Classify(context.Background(), "x"); err == nil {
				t.Error("expected error")
			}
		})
	}
}
