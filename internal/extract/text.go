// Package extract turns raw text and attached documents into material the
// pipeline can use: visible text from HTML, sentence boundaries, search
// tokens, and atomic facts from document bodies.
package extract

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// StripHTML returns the visible text of an HTML fragment. Text without
// markup is returned unchanged apart from whitespace trimming.
func StripHTML(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return strings.TrimSpace(content)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(extractVisibleText(doc))
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(strings.Join(strings.Fields(text), " "))
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// SentenceEnds returns the byte offsets just past each sentence terminator
// (., ! or ?) that is followed by whitespace or the end of text. The final
// offset is always len(text) for non-empty text.
func SentenceEnds(text string) []int {
	var ends []int
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			next := i + 1
			if next == len(text) || text[next] == ' ' || text[next] == '\n' || text[next] == '\t' {
				ends = append(ends, next)
			}
		}
	}
	if len(text) > 0 && (len(ends) == 0 || ends[len(ends)-1] != len(text)) {
		ends = append(ends, len(text))
	}
	return ends
}

// SplitSentences splits text into trimmed, non-empty sentences
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, end := range SentenceEnds(text) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}
	return sentences
}

var stopwords = map[string]bool{
	"il": true, "lo": true, "la": true, "i": true, "gli": true, "le": true,
	"un": true, "uno": true, "una": true, "di": true, "da": true, "in": true,
	"con": true, "su": true, "per": true, "tra": true, "fra": true, "a": true,
	"e": true, "o": true, "ed": true, "del": true, "della": true, "dei": true,
	"delle": true, "al": true, "alla": true, "ai": true, "alle": true, "nel": true,
	"nella": true, "sul": true, "sulla": true, "che": true, "è": true, "l": true,
	"come": true, "quale": true, "qual": true, "cosa": true, "mi": true, "si": true,
}

// Tokenize lowercases text and splits it into letter/digit runs, dropping
// Italian stopwords and single characters
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TokenSet returns the distinct tokens of text
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokenize(text) {
		set[t] = true
	}
	return set
}
