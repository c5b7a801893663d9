package facts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ppiankov/quaestio/internal/model"
)

func valuesOf(facts []model.AtomicFact) map[model.FactKind][]string {
	out := make(map[model.FactKind][]string)
	for _, f := range facts {
		out[f.Kind] = append(out[f.Kind], f.Value)
	}
	return out
}

func TestParse_VATScenario(t *testing.T) {
	a := Parse("importo IVA al 22% su 1000 euro")
	b := Parse("IVA 22% su 1.000,00€")

	want := map[model.FactKind][]string{
		model.FactRate:     {"0.22"},
		model.FactMonetary: {"EUR:100000"},
	}

	if diff := cmp.Diff(want, valuesOf(a)); diff != "" {
		t.Errorf("first phrasing facts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, valuesOf(b)); diff != "" {
		t.Errorf("second phrasing facts mismatch (-want +got):\n%s", diff)
	}

	if Signature(a) != Signature(b) {
		t.Errorf("expected identical signatures, got %s and %s", Signature(a), Signature(b))
	}
}

func TestParse_NumbersDoNotStartMidNumber(t *testing.T) {
	tests := []struct {
		in       string
		monetary []string
		rate     []string
	}{
		{"nel 2024 100 euro di bollo", []string{"EUR:10000"}, nil},
		{"scadenza 2025 50 euro", []string{"EUR:5000"}, nil},
		{"bollo di € 100 2024", []string{"EUR:10000"}, nil},
		{"codice 1022% errato", nil, nil},
		{"anno 2024 aliquota 22%", nil, []string{"0.22"}},
		{"1 000 euro", []string{"EUR:100000"}, nil},
	}

	for _, tt := range tests {
		got := valuesOf(Parse(tt.in))
		if diff := cmp.Diff(tt.monetary, got[model.FactMonetary]); diff != "" {
			t.Errorf("%q monetary mismatch (-want +got):\n%s", tt.in, diff)
		}
		if diff := cmp.Diff(tt.rate, got[model.FactRate]); diff != "" {
			t.Errorf("%q rate mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestExtract_MoneySpanExcludesGuard(t *testing.T) {
	got := NewExtractor().Extract("nel 2024 100 euro")
	if len(got) != 1 {
		t.Fatalf("expected one fact, got %+v", got)
	}
	if got[0].Value != "100 euro" || got[0].Span != (model.Span{Start: 9, End: 17}) {
		t.Errorf("unexpected fact %+v", got[0])
	}
}

func TestSignature_EquivalentPhrasings(t *testing.T) {
	groups := [][]string{
		{"1.000,00 €", "1000 EUR", "€ 1.000", "1 000 euro", "1000,00 euro"},
		{"scadenza 31/12/2024", "scadenza 2024-12-31", "scadenza 31 dicembre 2024", "scadenza 31.12.2024"},
		{"una S.r.l. a Milano", "una srl a milano", "una s.r.l a MILANO"},
		{"aliquota 4%", "aliquota 4 per cento", "aliquota 4 %"},
	}

	for _, group := range groups {
		first := Signature(Parse(group[0]))
		for _, phrasing := range group[1:] {
			if got := Signature(Parse(phrasing)); got != first {
				t.Errorf("signature of %q differs from %q", phrasing, group[0])
			}
		}
	}
}

func TestSignature_OrderIndependent(t *testing.T) {
	f1 := model.AtomicFact{Kind: model.FactRate, Value: "22%", Span: model.Span{Start: 0, End: 3}}
	f2 := model.AtomicFact{Kind: model.FactMonetary, Value: "1000 euro", Span: model.Span{Start: 10, End: 19}}
	f3 := model.AtomicFact{Kind: model.FactGeography, Value: "Lombardia"}

	s1 := Signature([]model.AtomicFact{f1, f2, f3})
	s2 := Signature([]model.AtomicFact{f3, f1, f2})
	s3 := Signature([]model.AtomicFact{f2, f3, f1, f2}) // duplicate must not matter

	if s1 != s2 || s1 != s3 {
		t.Errorf("expected order-independent signature, got %s, %s, %s", s1, s2, s3)
	}
	if len(s1) != 64 {
		t.Errorf("expected 64-char digest, got %d", len(s1))
	}
}

func TestSignature_Empty(t *testing.T) {
	if Signature(Parse("")) != EmptySignature {
		t.Error("expected empty input to produce EmptySignature")
	}
	if Signature(Parse("come funziona il ravvedimento operoso?")) != EmptySignature {
		t.Error("expected fact-free query to produce EmptySignature")
	}
	if EmptySignature == "" {
		t.Error("expected EmptySignature to be a well-defined digest")
	}
}

func TestSignature_DistinguishesValues(t *testing.T) {
	if Signature(Parse("IVA 22% su 1000 euro")) == Signature(Parse("IVA 10% su 1000 euro")) {
		t.Error("expected different rates to produce different signatures")
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"IVA 22% su 1.000,00€ entro il 16/01/2025",
		"S.p.A. con sede a Roma, CCNL commercio, impiegati di 3° livello",
		"contributi 27,5 per cento su € 12.345,67 in Emilia Romagna",
		"apprendista metalmeccanico a Valle d'Aosta dal 1 marzo 2024",
		"srls forfettaria, 5% su 1,234.50 EUR",
	}

	for _, in := range inputs {
		once := Canonicalize(NewExtractor().Extract(in))
		twice := Canonicalize(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("canonicalize not idempotent for %q (-once +twice):\n%s", in, diff)
		}
	}
}

func TestCanonicalValue(t *testing.T) {
	tests := []struct {
		kind model.FactKind
		in   string
		want string
	}{
		{model.FactMonetary, "1.000,00 €", "EUR:100000"},
		{model.FactMonetary, "€ 12.345,67", "EUR:1234567"},
		{model.FactMonetary, "1,234.50 EUR", "EUR:123450"},
		{model.FactMonetary, "12,5 euro", "EUR:1250"},
		{model.FactMonetary, "EUR:500", "EUR:500"},
		{model.FactRate, "22%", "0.22"},
		{model.FactRate, "4 %", "0.04"},
		{model.FactRate, "27,5 per cento", "0.275"},
		{model.FactRate, "100%", "1"},
		{model.FactRate, "0.220", "0.22"},
		{model.FactDate, "16/01/2025", "2025-01-16"},
		{model.FactDate, "1 marzo 2024", "2024-03-01"},
		{model.FactDate, "2024-3-1", "2024-03-01"},
		{model.FactLegalEntity, "S.r.l.", "srl"},
		{model.FactLegalEntity, "S.p.A.", "spa"},
		{model.FactLegalEntity, "srls", "srls"},
		{model.FactProfCategory, "impiegati", "impiegato"},
		{model.FactProfCategory, "metalmeccanici", "metalmeccanico"},
		{model.FactGeography, "Emilia Romagna", "emilia-romagna"},
		{model.FactGeography, "Valle d'Aosta", "valle-d-aosta"},
	}

	for _, tt := range tests {
		if got := CanonicalValue(tt.kind, tt.in); got != tt.want {
			t.Errorf("CanonicalValue(%s, %q) = %q, want %q", tt.kind, tt.in, got, tt.want)
		}
	}
}

func TestExtract_RejectsImpossibleDates(t *testing.T) {
	got := NewExtractor().Extract("scadenza 31/02/2024")
	for _, f := range got {
		if f.Kind == model.FactDate {
			t.Errorf("expected no date fact for 31/02, got %q", f.Value)
		}
	}
}

func TestExtract_TextOrderAndSpans(t *testing.T) {
	text := "srl a Torino: 500 euro"
	got := NewExtractor().Extract(text)

	kinds := make([]model.FactKind, 0, len(got))
	for _, f := range got {
		kinds = append(kinds, f.Kind)
		if f.Span.End <= f.Span.Start {
			t.Errorf("invalid span for %q: %+v", f.Value, f.Span)
		}
	}

	want := []model.FactKind{model.FactLegalEntity, model.FactGeography, model.FactMonetary}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("fact order mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_RegionBeatsCity(t *testing.T) {
	got := Parse("sede in Friuli Venezia Giulia")
	want := []model.AtomicFact{{Kind: model.FactGeography, Value: "friuli-venezia-giulia"}}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.AtomicFact{}, "Span")); diff != "" {
		t.Errorf("unexpected facts (-want +got):\n%s", diff)
	}
}
