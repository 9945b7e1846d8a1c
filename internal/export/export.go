// Package export renders a report.Document into downloadable formats. Each
// renderer only lays out what the document already contains.
package export

import (
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"cataid-backend/internal/report"
)

// Format names.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// MIME types of the supported formats.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrUnknownFormat is returned for a format no renderer is registered for.
var ErrUnknownFormat = errors.New("unknown export format")

// Renderer turns a document into a self-contained byte stream.
type Renderer interface {
	Format() string
	ContentType() string
	Extension() string
	Render(doc report.Document) ([]byte, error)
}

// Registry selects a renderer by format name.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates a registry holding the given renderers.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[string]Renderer)}
	for _, rd := range renderers {
		r.Register(rd)
	}
	return r
}

// Default returns a registry with the PDF and XLSX renderers.
func Default(opts ...PDFOption) *Registry {
	return NewRegistry(NewPDFRenderer(opts...), NewXLSXRenderer())
}

// Register adds or replaces the renderer for its format.
func (r *Registry) Register(rd Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[strings.ToLower(rd.Format())] = rd
}

// Get looks a renderer up by format name, ignoring case and a leading dot.
func (r *Registry) Get(format string) (Renderer, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.renderers[key]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
	return rd, nil
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.renderers))
	for k := range r.renderers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Digest returns a hex BLAKE2b-256 digest of rendered output, used as an
// entity tag for downloads.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileName builds a download file name for a document.
func FileName(doc report.Document, rd Renderer) string {
	return safeName(doc.Candidate.FullName, "assessment") + "_report." + rd.Extension()
}

// safeName keeps letters, digits, '-' and '_' and turns spaces into '_'.
func safeName(name, fallback string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if name == "" {
		return fallback
	}
	return name
}
