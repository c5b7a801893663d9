package facts

import (
	"regexp"

	"github.com/ppiankov/quaestio/internal/model"
)

// term maps a surface pattern to a canonical token
type term struct {
	kind      model.FactKind
	canonical string
	pattern   *regexp.Regexp
}

func mustTerm(kind model.FactKind, canonical, pattern string) term {
	return term{
		kind:      kind,
		canonical: canonical,
		pattern:   regexp.MustCompile(`\b(?:` + pattern + `)\b\.?`),
	}
}

// lexicon lists the closed-vocabulary facts. Order matters: longer forms
// come first so "srls" wins over "srl".
var lexicon = []term{
	// Legal entities
	mustTerm(model.FactLegalEntity, "srls", `s\.?\s?r\.?\s?l\.?\s?s`),
	mustTerm(model.FactLegalEntity, "srl", `s\.?\s?r\.?\s?l`),
	mustTerm(model.FactLegalEntity, "spa", `s\.?\s?p\.?\s?a`),
	mustTerm(model.FactLegalEntity, "snc", `s\.?\s?n\.?\s?c`),
	mustTerm(model.FactLegalEntity, "sas", `s\.?\s?a\.?\s?s`),
	mustTerm(model.FactLegalEntity, "cooperativa", `societ[aà][\s-]cooperativa|soc\.?[\s-]coop|cooperativa`),
	mustTerm(model.FactLegalEntity, "ditta-individuale", `ditta[\s-]individuale|impresa[\s-]individuale`),

	// Professional categories (CCNL sectors and job levels)
	mustTerm(model.FactProfCategory, "libero-professionista", `liber[oi][\s-]professionist[ai]`),
	mustTerm(model.FactProfCategory, "forfettario", `regime[\s-]forfettario|forfettari[oa]`),
	mustTerm(model.FactProfCategory, "commercio", `commercio|terziario`),
	mustTerm(model.FactProfCategory, "metalmeccanico", `metalmeccanic[oaih]+`),
	mustTerm(model.FactProfCategory, "edilizia", `edilizia|edil[ei]`),
	mustTerm(model.FactProfCategory, "turismo", `turismo|pubblici[\s-]esercizi`),
	mustTerm(model.FactProfCategory, "domestico", `lavoro[\s-]domestico|domestic[oaie]|colf|badant[ei]`),
	mustTerm(model.FactProfCategory, "dirigente", `dirigent[ei]`),
	mustTerm(model.FactProfCategory, "impiegato", `impiegat[oaie]`),
	mustTerm(model.FactProfCategory, "operaio", `operai[oe]?|operaia`),
	mustTerm(model.FactProfCategory, "apprendista", `apprendist[aei]|apprendistato`),

	// Regions
	mustTerm(model.FactGeography, "emilia-romagna", `emilia[\s-]romagna`),
	mustTerm(model.FactGeography, "friuli-venezia-giulia", `friuli[\s-]venezia[\s-]giulia|friuli`),
	mustTerm(model.FactGeography, "trentino-alto-adige", `trentino[\s-]alto[\s-]adige|trentino|alto[\s-]adige`),
	mustTerm(model.FactGeography, "valle-d-aosta", `valle[\s-]d[\s'’-]?aosta`),
	mustTerm(model.FactGeography, "lombardia", `lombardia`),
	mustTerm(model.FactGeography, "piemonte", `piemonte`),
	mustTerm(model.FactGeography, "liguria", `liguria`),
	mustTerm(model.FactGeography, "veneto", `veneto`),
	mustTerm(model.FactGeography, "toscana", `toscana`),
	mustTerm(model.FactGeography, "umbria", `umbria`),
	mustTerm(model.FactGeography, "marche", `marche`),
	mustTerm(model.FactGeography, "lazio", `lazio`),
	mustTerm(model.FactGeography, "abruzzo", `abruzzo`),
	mustTerm(model.FactGeography, "molise", `molise`),
	mustTerm(model.FactGeography, "campania", `campania`),
	mustTerm(model.FactGeography, "puglia", `puglia`),
	mustTerm(model.FactGeography, "basilicata", `basilicata`),
	mustTerm(model.FactGeography, "calabria", `calabria`),
	mustTerm(model.FactGeography, "sicilia", `sicilia`),
	mustTerm(model.FactGeography, "sardegna", `sardegna`),

	// Cities
	mustTerm(model.FactGeography, "milano", `milano`),
	mustTerm(model.FactGeography, "roma", `roma`),
	mustTerm(model.FactGeography, "napoli", `napoli`),
	mustTerm(model.FactGeography, "torino", `torino`),
	mustTerm(model.FactGeography, "palermo", `palermo`),
	mustTerm(model.FactGeography, "genova", `genova`),
	mustTerm(model.FactGeography, "bologna", `bologna`),
	mustTerm(model.FactGeography, "firenze", `firenze`),
	mustTerm(model.FactGeography, "bari", `bari`),
	mustTerm(model.FactGeography, "venezia", `venezia`),
	mustTerm(model.FactGeography, "verona", `verona`),
}
