package model

// QuestionType is the normalized kind of a form question.
type QuestionType string

const (
	QuestionShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionParagraph      QuestionType = "PARAGRAPH"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionDropdown       QuestionType = "DROPDOWN"
	QuestionCheckbox       QuestionType = "CHECKBOX"
	QuestionRating         QuestionType = "RATING"
	QuestionUnknown        QuestionType = "UNKNOWN"
)

// IsChoice reports whether answers must be one of the question's options.
func (t QuestionType) IsChoice() bool {
	switch t {
	case QuestionMultipleChoice, QuestionDropdown, QuestionCheckbox, QuestionRating:
		return true
	default:
		return false
	}
}

// IsFreeText reports whether the question accepts arbitrary text.
func (t QuestionType) IsFreeText() bool {
	return t == QuestionShortAnswer || t == QuestionParagraph
}

// Question is a single fillable form entry.
type Question struct {
	ID       string       `json:"id" yaml:"id"`
	Text     string       `json:"text" yaml:"text"`
	Type     QuestionType `json:"type" yaml:"type"`
	TypeCode int64        `json:"type_code" yaml:"type_code"`
	Options  []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Required bool         `json:"required" yaml:"required"`
}

// Form is the parsed schema of a form page.
type Form struct {
	Title       string     `json:"title,omitempty" yaml:"title,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// Unknown returns questions whose type could not be mapped.
func (f *Form) Unknown() []Question {
	var out []Question
	for _, q := range f.Questions {
		if q.Type == QuestionUnknown {
			out = append(out, q)
		}
	}
	return out
}
