package model

import "fmt"

// WarningCode classifies a non-fatal condition.
type WarningCode string

const (
	WarnQuestionShape    WarningCode = "question_shape"
	WarnOptionShape      WarningCode = "option_shape"
	WarnDuplicateID      WarningCode = "duplicate_id"
	WarnAnswerGeneration WarningCode = "answer_generation"
	WarnAnswerTimeout    WarningCode = "answer_timeout"
	WarnNoOptionMatch    WarningCode = "no_option_match"
	WarnCancelled        WarningCode = "cancelled"
)

// Warning is a non-fatal issue attached to a result for manual review.
type Warning struct {
	Stage      string      `json:"stage" yaml:"stage"`
	Code       WarningCode `json:"code" yaml:"code"`
	QuestionID string      `json:"question_id,omitempty" yaml:"question_id,omitempty"`
	Index      int         `json:"index" yaml:"index"`
	Message    string      `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if w.QuestionID != "" {
		return fmt.Sprintf("%s/%s [%s]: %s", w.Stage, w.Code, w.QuestionID, w.Message)
	}
	return fmt.Sprintf("%s/%s [#%d]: %s", w.Stage, w.Code, w.Index, w.Message)
}
