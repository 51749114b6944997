package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/port"
)

type stubGenerator struct {
	name  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (port.Generation, error) {
	s.calls++
	if s.err != nil {
		return port.Generation{}, s.err
	}
	return port.Generation{Text: "from " + s.name, Model: s.name}, nil
}

func (s *stubGenerator) ModelName() string { return s.name }

func TestChainUsesPrimary(t *testing.T) {
	primary := &stubGenerator{name: "primary"}
	backup := &stubGenerator{name: "backup"}

	chain, err := NewChain([]port.Generator{primary, backup}, 0, nil)
	require.NoError(t, err)

	gen, err := chain.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "primary", gen.Model)
	require.Zero(t, backup.calls)
}

func TestChainFallsBackOnUnavailable(t *testing.T) {
	primary := &stubGenerator{name: "primary", err: domain.ErrGenerationUnavailable}
	backup := &stubGenerator{name: "backup"}

	chain, err := NewChain([]port.Generator{primary, backup}, 0, nil)
	require.NoError(t, err)

	gen, err := chain.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "backup", gen.Model)
	require.Equal(t, 1, backup.calls)
}

func TestChainStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	primary := &stubGenerator{name: "primary", err: permanent}
	backup := &stubGenerator{name: "backup"}

	chain, err := NewChain([]port.Generator{primary, backup}, 0, nil)
	require.NoError(t, err)

	_, err = chain.Generate(context.Background(), "p")
	require.ErrorIs(t, err, permanent)
	require.Zero(t, backup.calls, "permanent errors must not trigger fallback")
}

func TestChainAllUnavailable(t *testing.T) {
	a := &stubGenerator{name: "a", err: domain.ErrGenerationUnavailable}
	b := &stubGenerator{name: "b", err: domain.ErrGenerationUnavailable}

	chain, err := NewChain([]port.Generator{a, b}, 0, nil)
	require.NoError(t, err)

	_, err = chain.Generate(context.Background(), "p")
	require.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestChainModelNameIsPrimary(t *testing.T) {
	chain, err := NewChain([]port.Generator{
		&stubGenerator{name: "primary"},
		&stubGenerator{name: "backup"},
	}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, "primary", chain.ModelName())
}

func TestChainRequiresProviders(t *testing.T) {
	_, err := NewChain(nil, 0, nil)
	require.Error(t, err)
}
