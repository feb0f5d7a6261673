package generate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formfill-cli/internal/config"
	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/resolve"
	"github.com/sells-group/formfill-cli/pkg/anthropic"
	"github.com/sells-group/formfill-cli/pkg/gemini"
)

// Generator is an AnswerGenerator that reports its token usage.
type Generator interface {
	resolve.AnswerGenerator
	Usage() model.TokenUsage
}

// New builds the generator selected by cfg.AI.Provider.
func New(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch cfg.AI.Provider {
	case config.ProviderGemini, "":
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:  cfg.Gemini.Key,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, eris.Wrap(err, "generate: gemini")
		}
		return NewGemini(client, cfg.Gemini.Model), nil
	case config.ProviderAnthropic:
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("generate: anthropic key is required")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		return NewClaude(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	default:
		return nil, eris.Errorf("generate: unknown provider %q", cfg.AI.Provider)
	}
}
