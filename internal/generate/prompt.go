// Package generate adapts LLM backends to resolve.AnswerGenerator.
package generate

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/resolve"
)

const systemPrompt = "You are a precise form-filling assistant. Your task is to provide a direct and concise answer for a single Google Form question."

// RenderPrompt builds the system and user messages for one question.
func RenderPrompt(p resolve.Prompt) (system, user string) {
	var b strings.Builder
	b.WriteString("Based on the user's information provided below, answer the following question.\n\n")
	b.WriteString("USER INFORMATION:\n---\n")
	b.WriteString(strings.TrimSpace(p.ProfileText))
	b.WriteString("\n---\n\n")
	b.WriteString("QUESTION:\n")
	b.WriteString(strings.TrimSpace(p.QuestionText))
	b.WriteString("\n\n")
	if kind := typeHint(p.Type); kind != "" {
		b.WriteString("Answer format: ")
		b.WriteString(kind)
		b.WriteString("\n\n")
	}
	b.WriteString("Provide ONLY the exact answer that should be filled in the form field for this question. No explanations, no conversational text, just the answer itself.")
	if len(p.Options) > 0 {
		b.WriteString(" Your answer MUST be one of the provided options.\n")
		opts, _ := json.Marshal(p.Options)
		b.WriteString("Available options for this question: ")
		b.Write(opts)
	}
	b.WriteString("\n")
	return systemPrompt, b.String()
}

func typeHint(t model.QuestionType) string {
	switch t {
	case model.QuestionShortAnswer:
		return "a short single-line answer"
	case model.QuestionParagraph:
		return "one or more sentences"
	case model.QuestionMultipleChoice, model.QuestionDropdown, model.QuestionCheckbox:
		return "exactly one option"
	case model.QuestionRating:
		return "one value from the scale"
	default:
		return ""
	}
}
