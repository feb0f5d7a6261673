// Package cost estimates spend for answer generator token usage.
package cost

import (
	"github.com/sells-group/formfill-cli/internal/config"
	"github.com/sells-group/formfill-cli/internal/model"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of Claude token usage.
func (c *Calculator) Claude(modelName string, input, output int64) float64 {
	return price(c.rates.Anthropic, modelName, input, output)
}

// Gemini computes the cost of Gemini token usage.
func (c *Calculator) Gemini(modelName string, input, output int64) float64 {
	return price(c.rates.Gemini, modelName, input, output)
}

// Estimate prices usage for the given provider and model. Unknown
// providers and models cost 0.
func (c *Calculator) Estimate(provider, modelName string, u model.TokenUsage) float64 {
	switch provider {
	case config.ProviderAnthropic:
		return c.Claude(modelName, u.InputTokens, u.OutputTokens)
	case config.ProviderGemini:
		return c.Gemini(modelName, u.InputTokens, u.OutputTokens)
	default:
		return 0
	}
}

func price(rates map[string]ModelRate, modelName string, input, output int64) float64 {
	rate, ok := rates[modelName]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.0-flash":      {Input: 0.10, Output: 0.40},
			"gemini-2.0-flash-lite": {Input: 0.075, Output: 0.30},
			"gemini-2.5-flash":      {Input: 0.30, Output: 2.50},
			"gemini-2.5-pro":        {Input: 1.25, Output: 10.00},
		},
	}
}
