package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/model"
)

// DocumentExtractor extracts atomic facts from an attached document
type DocumentExtractor interface {
	Extract(ctx context.Context, doc model.Document) ([]model.AtomicFact, error)
}

// DocumentDomain separates document content hashes from other hashes
const DocumentDomain = "quaestio/document/v1"

// NewDocument wraps body as a request document keyed by its content hash
func NewDocument(name string, body []byte) model.Document {
	return model.Document{
		Hash: facts.HashWithDomain(DocumentDomain, body),
		Name: name,
		Body: body,
	}
}

// Adapter turns one document format into plain text
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given document
	CanHandle(name string, contentType string) bool

	// Text returns the document's plain text
	Text(body []byte) (string, error)
}

// Registry picks an adapter per document and extracts facts from its text.
// Binary formats (PDF, images) belong to the external OCR/parsing layer and
// are rejected here.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry with the built-in HTML and text adapters
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(HTMLAdapter{})
	r.Register(TextAdapter{})
	return r
}

// Register adds an adapter; earlier adapters win
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// FindAdapter finds the adapter for a document, or nil when none applies
func (r *Registry) FindAdapter(doc model.Document) Adapter {
	contentType := http.DetectContentType(doc.Body)
	for _, a := range r.adapters {
		if a.CanHandle(doc.Name, contentType) {
			return a
		}
	}
	return nil
}

// Extract returns the canonical facts found in doc
func (r *Registry) Extract(ctx context.Context, doc model.Document) ([]model.AtomicFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := r.FindAdapter(doc)
	if a == nil {
		return nil, fmt.Errorf("unsupported document %q: no text adapter", doc.Name)
	}

	text, err := a.Text(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("%s adapter: %w", a.Name(), err)
	}
	return facts.Parse(text), nil
}

// HTMLAdapter extracts visible text from HTML documents
type HTMLAdapter struct{}

// Name returns the adapter name
func (HTMLAdapter) Name() string { return "html" }

// CanHandle matches .html/.htm files and sniffed HTML content
func (HTMLAdapter) CanHandle(name, contentType string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") ||
		strings.HasPrefix(contentType, "text/html")
}

// Text strips markup
func (HTMLAdapter) Text(body []byte) (string, error) {
	return StripHTML(string(body)), nil
}

// TextAdapter handles plain UTF-8 text
type TextAdapter struct{}

// Name returns the adapter name
func (TextAdapter) Name() string { return "text" }

// CanHandle matches any sniffed text content
func (TextAdapter) CanHandle(name, contentType string) bool {
	return strings.HasPrefix(contentType, "text/")
}

// Text validates the encoding and returns the body
func (TextAdapter) Text(body []byte) (string, error) {
	if !utf8.Valid(body) {
		return "", fmt.Errorf("document is not valid UTF-8")
	}
	return string(body), nil
}
