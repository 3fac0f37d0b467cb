package ai

import (
	"context"
	"fmt"
)

// Generator produces a text completion for a single prompt. Implementations
// own their own retry policy; callers treat any returned error as a signal to
// degrade, never to abort the interview.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GenerationError reports that the backend could not produce usable text
// after the configured number of attempts.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
