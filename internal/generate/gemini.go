package generate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/resilience"
	"github.com/sells-group/formfill-cli/internal/resolve"
	"github.com/sells-group/formfill-cli/pkg/gemini"
)

// ErrEmptyResponse is returned when the backend produced no text.
var ErrEmptyResponse = eris.New("generate: empty response")

// Gemini generates answers with a Gemini model.
type Gemini struct {
	client gemini.Client
	model  string
	usage  usageCounter
}

// NewGemini wraps a Gemini client.
func NewGemini(client gemini.Client, model string) *Gemini {
	return &Gemini{client: client, model: model}
}

// Generate implements resolve.AnswerGenerator.
func (g *Gemini) Generate(ctx context.Context, p resolve.Prompt) (string, error) {
	system, user := RenderPrompt(p)
	temp := float32(0)
	resp, err := g.client.GenerateText(ctx, gemini.TextRequest{
		Model:       g.model,
		System:      system,
		Prompt:      user,
		Temperature: &temp,
	})
	if err != nil {
		return "", resilience.FromStatus(err, gemini.StatusCode(err))
	}
	g.usage.add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", eris.Wrapf(ErrEmptyResponse, "gemini finish reason %q", resp.FinishReason)
	}
	zap.L().Debug("generate: gemini answer",
		zap.String("model", resp.Model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
	)
	return text, nil
}

// Usage returns the accumulated token usage.
func (g *Gemini) Usage() model.TokenUsage {
	return g.usage.snapshot()
}
