package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/cache"
	"docqa/internal/domain"
)

func answerContext() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{ChunkID: "d1:0", DocID: "d1", Score: 0.9, Text: "The capital of France is Paris."},
		{ChunkID: "d1:1", DocID: "d1", Score: 0.8, Text: "France borders Spain."},
		{ChunkID: "d2:0", DocID: "d2", Score: 0.7, Text: "Berlin is in Germany."},
	}
}

func TestAnswerCitesSources(t *testing.T) {
	gen := &scriptedGenerator{response: "Paris is the capital [S1]. It borders Spain [S2]."}
	s := NewSynthesizer(&fixedRetriever{chunks: answerContext()}, gen, nil, 3, nil)

	record, err := s.Answer(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, []string{"d1:0", "d1:1"}, record.Citations)
	require.Equal(t, "scripted", record.Generator)
	require.False(t, record.Cached)
}

func TestAnswerPromptIsDeterministic(t *testing.T) {
	gen := &scriptedGenerator{response: "x [S1]"}
	s := NewSynthesizer(&fixedRetriever{chunks: answerContext()}, gen, nil, 3, nil)

	_, err := s.Answer(context.Background(), "q")
	require.NoError(t, err)
	_, err = s.Answer(context.Background(), "q")
	require.NoError(t, err)

	require.Equal(t, 2, gen.calls())
	require.Equal(t, gen.prompts[0], gen.prompts[1])

	// Prompt carries the numbered sources and the question.
	require.Contains(t, gen.prompts[0], "[S1] The capital of France is Paris.")
	require.Contains(t, gen.prompts[0], "[S3] Berlin is in Germany.")
	require.Contains(t, gen.prompts[0], "Question: q")
}

func TestAnswerRefusesWithoutContext(t *testing.T) {
	gen := &scriptedGenerator{response: "should never be asked"}
	s := NewSynthesizer(&fixedRetriever{}, gen, nil, 3, nil)

	record, err := s.Answer(context.Background(), "anything?")
	require.NoError(t, err)
	require.Equal(t, refusalAnswer, record.Answer)
	require.Empty(t, record.Citations)
	require.Zero(t, gen.calls(), "generator must not be consulted without context")
}

func TestAnswerRefusesOnEmptyIndex(t *testing.T) {
	gen := &scriptedGenerator{response: "never"}
	s := NewSynthesizer(&fixedRetriever{err: domain.ErrEmptyIndex}, gen, nil, 3, nil)

	record, err := s.Answer(context.Background(), "anything?")
	require.NoError(t, err)
	require.Equal(t, refusalAnswer, record.Answer)
	require.Zero(t, gen.calls())
}

func TestAnswerCacheHit(t *testing.T) {
	gen := &scriptedGenerator{response: "cached answer [S1]"}
	answerCache := cache.NewAnswerCache(16, 0)
	s := NewSynthesizer(&fixedRetriever{chunks: answerContext()}, gen, answerCache, 3, nil)

	first, err := s.Answer(context.Background(), "What is the capital?")
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := s.Answer(context.Background(), "what is  the capital?")
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Answer, second.Answer)
	require.Equal(t, 1, gen.calls(), "second answer must come from cache")
}

func TestAnswerDropsUnknownMarkers(t *testing.T) {
	gen := &scriptedGenerator{response: "claim [S2], bogus [S9]"}
	s := NewSynthesizer(&fixedRetriever{chunks: answerContext()}, gen, nil, 3, nil)

	record, err := s.Answer(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"d1:1"}, record.Citations)
}

func TestAnswerCitesAllWhenNoMarkers(t *testing.T) {
	gen := &scriptedGenerator{response: "an answer with no markers at all"}
	s := NewSynthesizer(&fixedRetriever{chunks: answerContext()}, gen, nil, 3, nil)

	record, err := s.Answer(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"d1:0", "d1:1", "d2:0"}, record.Citations)
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	s := NewSynthesizer(&fixedRetriever{}, &scriptedGenerator{}, nil, 3, nil)

	_, err := s.Answer(context.Background(), "   ")
	require.Error(t, err)
}

func TestAnswerGenerationFailure(t *testing.T) {
	gen := &scriptedGenerator{err: domain.ErrGenerationUnavailable}
	s := NewSynthesizer(&fixedRetriever{chunks: answerContext()}, gen, nil, 3, nil)

	_, err := s.Answer(context.Background(), "q")
	require.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestBuildPromptMarkersMatchOrder(t *testing.T) {
	prompt := BuildPrompt("which?", answerContext())

	i1 := strings.Index(prompt, "[S1]")
	i2 := strings.Index(prompt, "[S2]")
	i3 := strings.Index(prompt, "[S3]")
	require.True(t, i1 >= 0 && i1 < i2 && i2 < i3)
	require.True(t, strings.HasSuffix(prompt, "Answer:"))
}
