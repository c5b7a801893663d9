package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/model"
)

const (
	// KeyPrefix starts every response cache key
	KeyPrefix = "quaestio:v1:"

	// SchemaVersion is the default response schema version folded into keys
	SchemaVersion = "1"

	keyDomain = "quaestio/cachekey/v1"
)

// ComputeKey derives the cache key for a query signature, its attached
// documents and the data epochs, using the default schema version. The
// key does not depend on document order or duplicates.
func ComputeKey(sig model.QuerySignature, docHashes []string, epochs model.Epochs) model.CacheKey {
	return computeKey(SchemaVersion, sig, docHashes, epochs)
}

func computeKey(schema string, sig model.QuerySignature, docHashes []string, epochs model.Epochs) model.CacheKey {
	docs := normalizeHashes(docHashes)

	parser := epochs.ParserVersion
	if parser == "" {
		parser = "0"
	}
	if schema == "" {
		schema = SchemaVersion
	}

	var b strings.Builder
	fmt.Fprintf(&b, "schema=%s\n", schema)
	fmt.Fprintf(&b, "signature=%s\n", sig)
	fmt.Fprintf(&b, "docs=%s\n", strings.Join(docs, ","))
	fmt.Fprintf(&b, "kb=%d\n", epochs.KB)
	fmt.Fprintf(&b, "golden=%d\n", epochs.Golden)
	fmt.Fprintf(&b, "ccnl=%d\n", epochs.CCNL)
	fmt.Fprintf(&b, "parser=%s\n", parser)

	return model.CacheKey(KeyPrefix + facts.HashWithDomain(keyDomain, []byte(b.String())))
}

// normalizeHashes lowercases, de-duplicates and sorts document hashes
func normalizeHashes(hashes []string) []string {
	seen := make(map[string]bool, len(hashes))
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
