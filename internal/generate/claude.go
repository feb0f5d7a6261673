package generate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/resilience"
	"github.com/sells-group/formfill-cli/internal/resolve"
	"github.com/sells-group/formfill-cli/pkg/anthropic"
)

// Claude generates answers with an Anthropic model.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	usage     usageCounter
}

// NewClaude wraps an Anthropic client.
func NewClaude(client anthropic.Client, model string, maxTokens int64) *Claude {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Claude{client: client, model: model, maxTokens: maxTokens}
}

// Generate implements resolve.AnswerGenerator.
func (c *Claude) Generate(ctx context.Context, p resolve.Prompt) (string, error) {
	system, user := RenderPrompt(p)
	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return "", resilience.FromStatus(err, anthropic.StatusCode(err))
	}
	c.usage.add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.Wrapf(ErrEmptyResponse, "anthropic stop reason %q", resp.StopReason)
	}
	return text, nil
}

// Usage returns the accumulated token usage.
func (c *Claude) Usage() model.TokenUsage {
	return c.usage.snapshot()
}

// LogCost logs the accumulated usage with its estimated cost.
func (c *Claude) LogCost(phase string) {
	u := c.usage.snapshot()
	anthropic.TokenUsage{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens}.LogCost(c.model, phase)
}
