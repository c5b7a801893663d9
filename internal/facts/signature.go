package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ppiankov/quaestio/internal/model"
)

// SignatureDomain separates signature hashes from other content hashes.
// The version suffix allows migrating the fact encoding later.
const SignatureDomain = "quaestio/signature/v1"

// EmptySignature is the signature of a query with no facts
var EmptySignature = Signature(nil)

// Signature derives the query signature from a fact set. Facts are
// canonicalized, sorted by (kind, value) and de-duplicated before hashing, so
// neither extraction order nor source spans affect the result.
func Signature(facts []model.AtomicFact) model.QuerySignature {
	lines := SortedLines(facts)
	return model.QuerySignature(HashWithDomain(SignatureDomain, []byte(strings.Join(lines, "\n"))))
}

// SortedLines returns the canonical "kind=value" encoding of facts in
// signature order
func SortedLines(facts []model.AtomicFact) []string {
	canonical := Canonicalize(facts)

	seen := make(map[string]bool, len(canonical))
	lines := make([]string, 0, len(canonical))
	for _, f := range canonical {
		line := string(f.Kind) + "=" + f.Value
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}

// HashWithDomain computes SHA-256 over domain + 0x00 + data. The null
// separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
