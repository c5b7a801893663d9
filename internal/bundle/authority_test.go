package bundle

import (
	"testing"

	"github.com/ppiankov/quaestio/internal/model"
)

func TestAuthorityClassifier_Classify(t *testing.T) {
	classifier := NewAuthorityClassifier(model.DefaultConfig().Authority)

	tests := []struct {
		source   string
		expected model.AuthorityTier
		desc     string
	}{
		{"https://www.gazzettaufficiale.it/eli/id/2024/12/31/24G00229/sg", model.AuthorityPrimary, "official journal with subdomain"},
		{"https://normattiva.it/uri-res/N2Ls?urn:nir:stato:decreto.presidente.repubblica:1972-10-26;633", model.AuthorityPrimary, "normattiva exact host"},
		{"https://www.agenziaentrate.gov.it/portale/circolari", model.AuthoritySecondary, "revenue agency"},
		{"https://www.mef.gov.it/notizie", model.AuthoritySecondary, "unlisted public administration host"},
		{"https://www.ipsoa.it/articolo", model.AuthorityTertiary, "commentary site"},
		{"DPR 633/1972 art. 16", model.AuthorityPrimary, "presidential decree"},
		{"D.Lgs. 81/2008", model.AuthorityPrimary, "legislative decree"},
		{"L. 207/2024 comma 12", model.AuthorityPrimary, "abbreviated law"},
		{"Legge di bilancio 2025", model.AuthorityPrimary, "law by name"},
		{"Circolare 9/E del 2024", model.AuthoritySecondary, "agency circular"},
		{"CCNL Commercio 2024", model.AuthoritySecondary, "collective agreement"},
		{"Il Sole 24 Ore", model.AuthorityTertiary, "press"},
		{"", model.AuthorityTertiary, "empty source"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.source); got != tt.expected {
				t.Errorf("Classify(%q) = %s, want %s", tt.source, got, tt.expected)
			}
		})
	}
}

func TestAuthorityClassifier_DomainMapOverrides(t *testing.T) {
	classifier := NewAuthorityClassifier(model.AuthorityConfig{
		PrimaryDomains: []string{"inps.it"},
		DomainMap:      map[string]string{"servizi2.inps.it": "tertiary"},
	})

	if got := classifier.Classify("https://servizi2.inps.it/servizi/"); got != model.AuthorityTertiary {
		t.Errorf("expected domain map to win, got %s", got)
	}
	if got := classifier.Classify("https://www.inps.it/messaggi"); got != model.AuthorityPrimary {
		t.Errorf("expected primary for listed domain, got %s", got)
	}
}

func TestAuthorityClassifier_InvalidPatternSkipped(t *testing.T) {
	classifier := NewAuthorityClassifier(model.AuthorityConfig{
		ReferencePatterns: []model.ReferencePattern{
			{Pattern: "(unclosed", Tier: "primary"},
			{Pattern: `(?i)^risoluzione`, Tier: "secondary"},
		},
	})

	if got := classifier.Classify("Risoluzione 12/E"); got != model.AuthoritySecondary {
		t.Errorf("expected valid pattern to still apply, got %s", got)
	}
}

func TestAuthorityClassifier_Weight(t *testing.T) {
	classifier := NewAuthorityClassifier(model.DefaultConfig().Authority)

	if w := classifier.Weight("DPR 633/1972"); w != 1.2 {
		t.Errorf("expected primary weight 1.2, got %v", w)
	}
	if w := classifier.Weight("blog"); w != 0.8 {
		t.Errorf("expected tertiary weight 0.8, got %v", w)
	}

	unweighted := NewAuthorityClassifier(model.AuthorityConfig{})
	if w := unweighted.Weight("DPR 633/1972"); w != 1.0 {
		t.Errorf("expected neutral weight without configuration, got %v", w)
	}
}

func TestMerge_AuthorityOrdersEqualEntries(t *testing.T) {
	b := newTestBuilder().WithAuthority(NewAuthorityClassifier(model.DefaultConfig().Authority))

	kb := []model.KBResult{
		{ID: "blog", Text: "Commento sulle nuove aliquote ridotte.", Score: 0.8, Source: "blog.example.com"},
		{ID: "law", Text: "Testo della norma sulle aliquote.", Score: 0.8, Source: "L. 207/2024"},
	}
	bundle := b.Merge(nil, kb, nil, nil, 1000)

	if len(bundle.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(bundle.Parts))
	}
	if bundle.Parts[0].Citation != "L. 207/2024" {
		t.Errorf("expected the primary source first, got %+v", bundle.Parts)
	}
}
