package extract

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/quaestio/internal/model"
)

func TestStripHTML(t *testing.T) {
	in := `<html><head><title>x</title></head><body>
		<p>Aliquota <b>IVA</b> ordinaria.</p>
		<script>var a = 1;</script>
		<p>Si applica al 22%.</p>
	</body></html>`

	got := StripHTML(in)
	want := "Aliquota IVA ordinaria. Si applica al 22%."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := StripHTML("  testo semplice  "); got != "testo semplice" {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Prima frase. Seconda frase! Terza senza punto")
	want := []string{"Prima frase.", "Seconda frase!", "Terza senza punto"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sentences mismatch (-want +got):\n%s", diff)
	}

	// Decimal points inside numbers do not end a sentence
	got = SplitSentences("Importo 1.000 euro. Fine.")
	if len(got) != 2 {
		t.Errorf("expected 2 sentences, got %v", got)
	}
}

func TestSentenceEnds(t *testing.T) {
	text := "Uno. Due."
	want := []int{4, 9}
	if diff := cmp.Diff(want, SentenceEnds(text)); diff != "" {
		t.Errorf("ends mismatch (-want +got):\n%s", diff)
	}
	if SentenceEnds("") != nil {
		t.Error("expected no ends for empty text")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Qual è l'aliquota IVA per le S.r.l. di Milano?")
	want := []string{"aliquota", "iva", "milano"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Extract(t *testing.T) {
	r := NewRegistry()

	doc := model.Document{Name: "fattura.html", Body: []byte("<p>Totale <b>1.220,00 €</b> con IVA al 22%</p>")}
	got, err := r.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	values := map[model.FactKind]string{}
	for _, f := range got {
		values[f.Kind] = f.Value
	}
	if values[model.FactMonetary] != "EUR:122000" || values[model.FactRate] != "0.22" {
		t.Errorf("unexpected facts: %+v", got)
	}

	text := model.Document{Name: "note.txt", Body: []byte("assunzione a Torino dal 1 marzo 2024")}
	got, err = r.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected geography and date facts, got %+v", got)
	}
}

func TestRegistry_RejectsBinary(t *testing.T) {
	pdf := model.Document{Name: "busta.pdf", Body: []byte("%PDF-1.7\n\x00\x01binary")}
	if _, err := NewRegistry().Extract(context.Background(), pdf); err == nil {
		t.Error("expected binary document to be rejected")
	}
}

func TestNewDocument(t *testing.T) {
	a := NewDocument("a.txt", []byte("Fattura 100 euro"))
	b := NewDocument("copia.txt", []byte("Fattura 100 euro"))
	c := NewDocument("a.txt", []byte("Fattura 200 euro"))

	if a.Hash != b.Hash {
		t.Error("expected identical content to share a hash regardless of name")
	}
	if a.Hash == c.Hash {
		t.Error("expected different content to produce different hashes")
	}
	if len(a.Hash) != 64 {
		t.Errorf("expected 64-char hash, got %d", len(a.Hash))
	}
}
