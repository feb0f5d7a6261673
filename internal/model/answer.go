package model

// AnswerSource records which resolution path produced an answer.
type AnswerSource string

const (
	SourceRuleEmail    AnswerSource = "RULE_EMAIL"
	SourceRuleOptimist AnswerSource = "RULE_OPTIMIST"
	SourceAI           AnswerSource = "AI"
	SourceUnresolved   AnswerSource = "UNRESOLVED"
)

// Answer is the resolved value set for one question.
type Answer struct {
	QuestionID string       `json:"question_id" yaml:"question_id"`
	Values     []string     `json:"values" yaml:"values"`
	Source     AnswerSource `json:"source" yaml:"source"`
}

// Resolved reports whether the answer carries at least one value.
func (a Answer) Resolved() bool {
	return a.Source != SourceUnresolved && len(a.Values) > 0
}

// Unresolved builds an empty answer for manual follow-up.
func Unresolved(questionID string) Answer {
	return Answer{QuestionID: questionID, Values: []string{}, Source: SourceUnresolved}
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int64   `json:"output_tokens" yaml:"output_tokens"`
	Calls        int     `json:"calls" yaml:"calls"`
	Cost         float64 `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.Calls += other.Calls
	t.Cost += other.Cost
}
