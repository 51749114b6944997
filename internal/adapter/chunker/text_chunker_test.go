package chunker

import (
	"errors"
	"strings"
	"testing"

	"docqa/internal/domain"
)

func TestChunkCoverageNoOverlap(t *testing.T) {
	c, err := NewTextChunker(10, 0, PolicyFixed)
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{ID: "doc1"}
	text := "abcdefghijklmnopqrstuvwxyz0123456789"

	chunks, err := c.Chunk(doc, text)
	if err != nil {
		t.Fatal(err)
	}

	// Ranges must partition the text: no gaps, no overlaps.
	pos := 0
	for _, ch := range chunks {
		if ch.Start != pos {
			t.Errorf("chunk %d starts at %d, expected %d", ch.Seq, ch.Start, pos)
		}
		if ch.End <= ch.Start {
			t.Errorf("chunk %d has empty range", ch.Seq)
		}
		if ch.End-ch.Start > 10 {
			t.Errorf("chunk %d exceeds size: %d bytes", ch.Seq, ch.End-ch.Start)
		}
		if ch.Text != text[ch.Start:ch.End] {
			t.Errorf("chunk %d text does not match its offsets", ch.Seq)
		}
		pos = ch.End
	}
	if pos != len(text) {
		t.Errorf("coverage ends at %d, expected %d", pos, len(text))
	}
}

func TestChunkOverlapRegions(t *testing.T) {
	c, err := NewTextChunker(10, 3, PolicyFixed)
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{ID: "doc1"}
	text := strings.Repeat("abcde", 10)

	chunks, err := c.Chunk(doc, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Count how many chunks contain each offset: 1 normally, 2 in
	// overlapped regions, never more.
	counts := make([]int, len(text))
	for _, ch := range chunks {
		for i := ch.Start; i < ch.End; i++ {
			counts[i]++
		}
	}
	for i, n := range counts {
		if n < 1 || n > 2 {
			t.Errorf("offset %d covered %d times", i, n)
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if cur.Overlap != prev.End-cur.Start {
			t.Errorf("chunk %d overlap metadata %d, expected %d", cur.Seq, cur.Overlap, prev.End-cur.Start)
		}
	}
}

func TestChunkLargeOverlapCoversAtMostTwice(t *testing.T) {
	c, err := NewTextChunker(10, 6, PolicyFixed)
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{ID: "doc1"}
	text := strings.Repeat("abcdef", 5)

	chunks, err := c.Chunk(doc, text)
	if err != nil {
		t.Fatal(err)
	}

	// Overlap larger than half the size must not put any offset into
	// three chunks; coverage stays complete.
	counts := make([]int, len(text))
	for _, ch := range chunks {
		if ch.End <= ch.Start {
			t.Fatalf("chunk %d has empty range", ch.Seq)
		}
		if ch.End-ch.Start > 10 {
			t.Errorf("chunk %d exceeds size: %d bytes", ch.Seq, ch.End-ch.Start)
		}
		for i := ch.Start; i < ch.End; i++ {
			counts[i]++
		}
	}
	for i, n := range counts {
		if n < 1 {
			t.Errorf("offset %d not covered", i)
		}
		if n > 2 {
			t.Errorf("offset %d covered by %d chunks", i, n)
		}
	}
}

func TestChunkShortChunksNeverTripleCover(t *testing.T) {
	// Sentence boundaries can cut chunks well below the size limit;
	// the overlap step back must still never reach past the chunk
	// before the previous one.
	c, err := NewTextChunker(20, 8, PolicySentence)
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{ID: "doc1"}
	text := "Aa. Bb. Cc. Dd. Ee. Ff. Gg. Hh. Ii. Jj."

	chunks, err := c.Chunk(doc, text)
	if err != nil {
		t.Fatal(err)
	}

	counts := make([]int, len(text))
	for _, ch := range chunks {
		for i := ch.Start; i < ch.End; i++ {
			counts[i]++
		}
	}
	for i, n := range counts {
		if n < 1 || n > 2 {
			t.Errorf("offset %d covered %d times", i, n)
		}
	}
}

func TestChunkRuneWiderThanSize(t *testing.T) {
	c, err := NewTextChunker(3, 0, PolicyFixed)
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{ID: "doc1"}
	text := "\U0001F600\U0001F600" // two 4-byte runes

	chunks, err := c.Chunk(doc, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if ch.Text != "\U0001F600" {
			t.Errorf("chunk %d text %q, expected a single whole rune", ch.Seq, ch.Text)
		}
	}
	if chunks[0].Start != 0 || chunks[0].End != 4 || chunks[1].Start != 4 || chunks[1].End != 8 {
		t.Errorf("unexpected offsets: %+v", chunks)
	}
}

func TestChunkSentencePolicy(t *testing.T) {
	c, err := NewTextChunker(30, 0, PolicySentence)
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{ID: "doc1"}
	text := "First sentence here. Second one. Third sentence is last."

	chunks, err := c.Chunk(doc, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Non-final chunks should end at a sentence boundary when one fits.
	for _, ch := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(strings.TrimRight(ch.Text, " "), ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", ch.Seq, ch.Text)
		}
	}
}

func TestChunkNeverSplitsRunes(t *testing.T) {
	c, err := NewTextChunker(7, 2, PolicyFixed)
	if err != nil {
		t.Fatal(err)
	}

	doc := domain.Document{ID: "doc1"}
	text := strings.Repeat("héllo wörld ", 5)

	chunks, err := c.Chunk(doc, text)
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range chunks {
		if !strings.Contains(text, ch.Text) {
			t.Errorf("chunk %d text is not a substring of the source", ch.Seq)
		}
		if ch.End-ch.Start > 7 {
			t.Errorf("chunk %d exceeds size", ch.Seq)
		}
	}
}

func TestChunkIDsAreStable(t *testing.T) {
	c, _ := NewTextChunker(10, 0, PolicyFixed)
	doc := domain.Document{ID: "d42"}

	chunks, err := c.Chunk(doc, "some text that spans chunks")
	if err != nil {
		t.Fatal(err)
	}
	for i, ch := range chunks {
		want := domain.ChunkID("d42", i)
		if ch.ID != want {
			t.Errorf("chunk %d id %q, expected %q", i, ch.ID, want)
		}
	}
}

func TestChunkRejectsMalformed(t *testing.T) {
	c, _ := NewTextChunker(10, 0, PolicyFixed)
	doc := domain.Document{ID: "doc1"}

	if _, err := c.Chunk(doc, "   \n\t  "); !errors.Is(err, domain.ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument for blank text, got %v", err)
	}
	if _, err := c.Chunk(doc, "ok\xff\xfebroken"); !errors.Is(err, domain.ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument for invalid UTF-8, got %v", err)
	}
}

func TestChunkerConfigValidation(t *testing.T) {
	if _, err := NewTextChunker(0, 0, PolicyFixed); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := NewTextChunker(10, 10, PolicyFixed); err == nil {
		t.Error("expected error for overlap >= size")
	}
	if _, err := NewTextChunker(10, 0, "words"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
