// Package report renders fill results for manual review.
package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/formfill-cli/internal/model"
)

// Summary generates a human-readable report of a fill run.
func Summary(result *model.RunResult) string {
	var b strings.Builder

	title := result.FormURL
	if result.Form != nil && result.Form.Title != "" {
		title = result.Form.Title
	}
	fmt.Fprintf(&b, "# Pre-fill Report: %s\n", title)
	fmt.Fprintf(&b, "Form: %s\n", result.FormURL)
	if result.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", result.RunID)
	}
	b.WriteString("\n")

	counts := result.CountBySource()
	b.WriteString("## Summary\n")
	if result.Form != nil {
		fmt.Fprintf(&b, "- Questions: %d\n", len(result.Form.Questions))
	}
	fmt.Fprintf(&b, "- Answered by AI: %d\n", counts[model.SourceAI])
	fmt.Fprintf(&b, "- Answered by rule: %d\n", counts[model.SourceRuleEmail]+counts[model.SourceRuleOptimist])
	fmt.Fprintf(&b, "- Needs manual entry: %d\n", counts[model.SourceUnresolved])
	if result.Usage.Calls > 0 {
		fmt.Fprintf(&b, "- Token usage: %d input, %d output (%d calls)\n",
			result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.Calls)
		fmt.Fprintf(&b, "- Estimated cost: $%.4f\n", result.Usage.Cost)
	}
	b.WriteString("\n")

	if len(result.Phases) > 0 {
		b.WriteString("## Phases\n")
		for _, p := range result.Phases {
			fmt.Fprintf(&b, "- %s: %s (%dms)\n", p.Name, p.Status, p.Duration)
			if p.Error != "" {
				fmt.Fprintf(&b, "  Error: %s\n", p.Error)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Answers\n")
	questions := questionsByID(result.Form)
	if len(result.Answers) == 0 {
		b.WriteString("No answers.\n")
	}
	for _, a := range result.Answers {
		text := questions[a.QuestionID].Text
		if text == "" {
			text = "entry." + a.QuestionID
		}
		if a.Source == model.SourceUnresolved {
			fmt.Fprintf(&b, "- %s: (fill in manually)\n", text)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s [%s]\n", text, strings.Join(a.Values, ", "), a.Source)
	}
	b.WriteString("\n")

	if len(result.Warnings) > 0 {
		b.WriteString("## Warnings\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if result.PrefillURL != "" {
		b.WriteString("## Pre-fill URL\n")
		b.WriteString(result.PrefillURL)
		b.WriteString("\n")
	}

	return b.String()
}

func questionsByID(form *model.Form) map[string]model.Question {
	if form == nil {
		return nil
	}
	m := make(map[string]model.Question, len(form.Questions))
	for _, q := range form.Questions {
		m[q.ID] = q
	}
	return m
}
