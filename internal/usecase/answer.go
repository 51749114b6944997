package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"docqa/internal/adapter/cache"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// promptVersion is part of the prompt contract. Bump it whenever the
// template changes so cached answers from the old template never leak.
const promptVersion = "qa/v1"

// refusalAnswer is returned without consulting the generator when
// retrieval produced no usable context.
const refusalAnswer = "I don't have enough information in the indexed documents to answer that."

var citationPattern = regexp.MustCompile(`\[S(\d+)\]`)

// Synthesizer turns retrieved chunks into a grounded, cited answer.
type Synthesizer struct {
	retriever port.Retriever
	generator port.Generator
	cache     *cache.AnswerCache
	log       *slog.Logger

	topK int
}

func NewSynthesizer(
	r port.Retriever,
	g port.Generator,
	answerCache *cache.AnswerCache,
	topK int,
	log *slog.Logger,
) *Synthesizer {
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{
		retriever: r,
		generator: g,
		cache:     answerCache,
		log:       log,
		topK:      topK,
	}
}

// Answer retrieves context for the question and synthesizes an answer
// with citations back to the chunks that support it. Identical
// questions over an unchanged context are served from cache.
func (s *Synthesizer) Answer(ctx context.Context, question string) (domain.AnswerRecord, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.AnswerRecord{}, fmt.Errorf("question must not be empty")
	}

	chunks, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil && !errors.Is(err, domain.ErrEmptyIndex) {
		return domain.AnswerRecord{}, err
	}

	if len(chunks) == 0 {
		// No context means any generated answer would be ungrounded.
		// Refuse locally, without spending a generator call.
		return domain.AnswerRecord{
			Question:  question,
			Answer:    refusalAnswer,
			Generator: s.generator.ModelName(),
		}, nil
	}

	chunkIDs := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	for i, ch := range chunks {
		chunkIDs[i] = ch.ChunkID
		docIDs[i] = ch.DocID
	}

	key := cache.Key(question, chunkIDs, s.generator.ModelName()+"|"+promptVersion)
	if s.cache != nil {
		if record, hit := s.cache.Get(key); hit {
			record.Cached = true
			s.log.Debug("answer served from cache", "key", key)
			return record, nil
		}
	}

	prompt := BuildPrompt(question, chunks)
	gen, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("generating answer: %w", err)
	}

	record := domain.AnswerRecord{
		Question:  question,
		Answer:    strings.TrimSpace(gen.Text),
		Citations: extractCitations(gen.Text, chunkIDs),
		Generator: gen.Model,
		CacheKey:  key,
	}

	if s.cache != nil {
		s.cache.Put(key, record, docIDs)
	}
	return record, nil
}

// BuildPrompt renders the qa prompt. The template is deterministic:
// the same question and chunks, in the same order, always produce the
// same prompt, which the answer cache relies on.
func BuildPrompt(question string, chunks []domain.ScoredChunk) string {
	var b strings.Builder

	b.WriteString("You are a careful assistant answering questions using only the provided sources.\n")
	b.WriteString("Cite every claim with the marker of the source that supports it, like [S1].\n")
	b.WriteString("If the sources do not contain the answer, say you do not know.\n\n")
	b.WriteString("Sources:\n")
	for i, ch := range chunks {
		fmt.Fprintf(&b, "[S%d] %s\n\n", i+1, strings.TrimSpace(ch.Text))
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")

	return b.String()
}

// extractCitations maps [Sn] markers in the generated text back to the
// chunk ids the prompt numbered. Markers outside the numbered range are
// dropped. A response with no valid markers cites every chunk: the
// whole context stood behind the answer.
func extractCitations(text string, chunkIDs []string) []string {
	seen := make(map[string]bool)
	var cited []string

	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(chunkIDs) {
			continue
		}
		id := chunkIDs[n-1]
		if !seen[id] {
			seen[id] = true
			cited = append(cited, id)
		}
	}

	if len(cited) == 0 {
		cited = make([]string, len(chunkIDs))
		copy(cited, chunkIDs)
	}
	return cited
}
