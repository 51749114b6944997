package port

import "context"

// Generator produces text from a prompt. Implementations are
// interchangeable providers selected by configuration.
type Generator interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string) (Generation, error)

	// ModelName returns the identity of the configured model.
	ModelName() string
}

// Generation carries the generated text and the identity of the model
// that actually produced it (relevant when providers fall back).
type Generation struct {
	Text  string
	Model string
}
