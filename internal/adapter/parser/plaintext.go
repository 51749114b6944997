package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Registry dispatches raw document bytes to a parser by content type.
// Text extraction is an external collaborator concern: anything that can
// hand back UTF-8 text (a PDF extractor, an HTML stripper) registers
// here and the pipeline stays format-agnostic.
type Registry struct {
	parsers map[string]port.Parser
}

func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]port.Parser)}
	plain := &PlainText{}
	r.Register("text/plain", plain)
	r.Register("text/markdown", plain)
	return r
}

// Register binds a parser to a content type, replacing any previous one.
func (r *Registry) Register(contentType string, p port.Parser) {
	r.parsers[normalizeType(contentType)] = p
}

func (r *Registry) Parse(raw []byte, contentType string) (string, error) {
	p, ok := r.parsers[normalizeType(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: no parser for content type %q", domain.ErrMalformedDocument, contentType)
	}
	return p.Parse(raw, contentType)
}

func normalizeType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// PlainText accepts bytes that already are UTF-8 text. It strips a BOM
// and normalizes line endings so chunk offsets are stable across
// platforms.
type PlainText struct{}

func (p *PlainText) Parse(raw []byte, contentType string) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: input is not valid UTF-8", domain.ErrMalformedDocument)
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: input is empty", domain.ErrMalformedDocument)
	}
	return text, nil
}
