package bundle

import (
	"fmt"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
)

var sourceLabels = map[model.ContextSource]string{
	model.SourceGolden: "Risposta validata",
	model.SourceFact:   "Dati",
	model.SourceDoc:    "Documenti",
	model.SourceKB:     "Fonte",
}

// Render formats the bundle as the context block of a prompt
func Render(b model.ContextBundle) string {
	var sb strings.Builder
	for i, p := range b.Parts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, sourceLabels[p.Source])
		if p.Citation != "" {
			fmt.Fprintf(&sb, " (%s)", p.Citation)
		}
		sb.WriteString(":\n")
		sb.WriteString(p.Text)
	}
	return sb.String()
}
