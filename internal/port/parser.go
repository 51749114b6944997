package port

// Parser extracts plain UTF-8 text from raw document bytes.
// Parsing is an external collaborator concern; the pipeline only
// requires decoded text with stable byte offsets.
type Parser interface {
	// Parse decodes raw bytes of the given content type into UTF-8 text.
	// Returns domain.ErrMalformedDocument for undecodable or empty input.
	Parse(raw []byte, contentType string) (string, error)
}
