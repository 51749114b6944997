package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// Splitter policies. The policy decides where a chunk prefers to end;
// the size limit is a hard bound regardless of policy.
const (
	PolicySentence  = "sentence"
	PolicyParagraph = "paragraph"
	PolicyFixed     = "fixed"
)

// TextChunker splits parsed document text into overlapping chunks with
// stable identifiers and byte offsets.
//
// Invariants: no chunk is empty, no chunk exceeds size bytes (except a
// chunk holding a single rune wider than size), and with overlap=0 the
// chunk ranges partition the text exactly. With overlap>0 an overlapped
// offset belongs to exactly two consecutive chunks, never three: the
// configured overlap is an upper bound, reduced whenever a chunk came
// out short enough that honoring it would reach back past the chunk
// before the previous one.
type TextChunker struct {
	size    int
	overlap int
	policy  string
}

func NewTextChunker(size, overlap int, policy string) (*TextChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got %d", overlap)
	}
	switch policy {
	case PolicySentence, PolicyParagraph, PolicyFixed:
	default:
		return nil, fmt.Errorf("unknown splitter policy: %q", policy)
	}
	return &TextChunker{size: size, overlap: overlap, policy: policy}, nil
}

func (c *TextChunker) Chunk(doc domain.Document, text string) ([]domain.Chunk, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: invalid UTF-8 in %s", domain.ErrMalformedDocument, doc.ID)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text in %s", domain.ErrMalformedDocument, doc.ID)
	}

	boundaries := c.boundaries(text)

	var chunks []domain.Chunk
	start := 0
	prevEnd := 0
	seq := 0

	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			// Never split a rune.
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				// A single rune wider than the size limit: take it whole
				// rather than emit an empty chunk.
				_, n := utf8.DecodeRuneInString(text[start:])
				end = start + n
			} else if cut := lastBoundaryIn(boundaries, start, end); cut > start {
				end = cut
			}
		}

		overlapBytes := 0
		if seq > 0 && prevEnd > start {
			overlapBytes = prevEnd - start
		}

		chunks = append(chunks, domain.Chunk{
			ID:      domain.ChunkID(doc.ID, seq),
			DocID:   doc.ID,
			Seq:     seq,
			Text:    text[start:end],
			Start:   start,
			End:     end,
			Overlap: overlapBytes,
		})
		seq++

		if end == len(text) {
			break
		}

		next := end - c.overlap
		for next < end && !utf8.RuneStart(text[next]) {
			next++
		}
		// Starting before the end of the chunk two back would put an
		// offset into three chunks. prevEnd is always a rune boundary.
		if next < prevEnd {
			next = prevEnd
		}
		if next <= start {
			next = end
		}
		prevEnd = end
		start = next
	}

	return chunks, nil
}

// boundaries returns sorted byte offsets at which the policy prefers to
// cut. Offsets point just past a sentence terminator or paragraph break.
func (c *TextChunker) boundaries(text string) []int {
	var out []int
	switch c.policy {
	case PolicySentence:
		for i := 0; i < len(text); i++ {
			switch text[i] {
			case '.', '!', '?':
				if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
					out = append(out, i+1)
				}
			}
		}
	case PolicyParagraph:
		for i := 0; i+1 < len(text); i++ {
			if text[i] == '\n' && text[i+1] == '\n' {
				out = append(out, i+2)
			}
		}
	case PolicyFixed:
		// No preferred boundaries; cuts fall on the size limit.
	}
	return out
}

// lastBoundaryIn returns the largest boundary b with start < b <= end,
// or -1 if none exists.
func lastBoundaryIn(boundaries []int, start, end int) int {
	i := sort.SearchInts(boundaries, end+1) - 1
	if i >= 0 && boundaries[i] > start {
		return boundaries[i]
	}
	return -1
}
