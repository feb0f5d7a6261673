// Package resolve decides an answer for each form question, from override
// rules first and the AI generator otherwise.
package resolve

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formfill-cli/internal/model"
)

// Prompt is the context handed to an AnswerGenerator for one question.
type Prompt struct {
	QuestionText string
	Type         model.QuestionType
	Options      []string
	ProfileText  string
}

// AnswerGenerator produces a free-text candidate answer for a prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc adapts a function to AnswerGenerator.
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

// ErrAnswerTimeout marks a generator call that ran past its deadline.
var ErrAnswerTimeout = eris.New("resolve: answer generation timed out")

// AnswerGenerationError wraps a failed generator call for one question.
type AnswerGenerationError struct {
	QuestionID string
	Err        error
}

func (e *AnswerGenerationError) Error() string {
	return fmt.Sprintf("resolve: generate answer for %s: %v", e.QuestionID, e.Err)
}

func (e *AnswerGenerationError) Unwrap() error {
	return e.Err
}
