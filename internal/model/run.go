package model

import "time"

// RunStatus represents the current state of a fill run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusFetching  RunStatus = "fetching"
	RunStatusParsing   RunStatus = "parsing"
	RunStatusResolving RunStatus = "resolving"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a single fill run for a form.
type Run struct {
	ID        string     `json:"id" yaml:"id"`
	FormURL   string     `json:"form_url" yaml:"form_url"`
	Status    RunStatus  `json:"status" yaml:"status"`
	Result    *RunResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name" yaml:"name"`
	Status   PhaseStatus    `json:"status" yaml:"status"`
	Duration int64          `json:"duration_ms" yaml:"duration_ms"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// RunResult is the final output of a fill run.
type RunResult struct {
	RunID      string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	FormURL    string        `json:"form_url" yaml:"form_url"`
	Form       *Form         `json:"form" yaml:"form"`
	Answers    []Answer      `json:"answers" yaml:"answers"`
	PrefillURL string        `json:"prefill_url" yaml:"prefill_url"`
	Warnings   []Warning     `json:"warnings" yaml:"warnings"`
	Phases     []PhaseResult `json:"phases" yaml:"phases"`
	Usage      TokenUsage    `json:"usage" yaml:"usage"`
}

// Unresolved returns the questions whose answers need manual entry.
func (r *RunResult) Unresolved() []Question {
	if r.Form == nil {
		return nil
	}
	byID := make(map[string]Question, len(r.Form.Questions))
	for _, q := range r.Form.Questions {
		byID[q.ID] = q
	}
	var out []Question
	for _, a := range r.Answers {
		if a.Source == SourceUnresolved {
			out = append(out, byID[a.QuestionID])
		}
	}
	return out
}

// CountBySource tallies answers by resolution source.
func (r *RunResult) CountBySource() map[AnswerSource]int {
	counts := make(map[AnswerSource]int)
	for _, a := range r.Answers {
		counts[a.Source]++
	}
	return counts
}
