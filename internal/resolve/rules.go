package resolve

import (
	"strings"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/profile"
)

// rule is one override in the decision table. match returns the selected
// option when the rule applies.
type rule struct {
	name   string
	source model.AnswerSource
	match  func(q model.Question, p model.UserProfile) (string, bool)
}

// defaultRules are evaluated in order; the first match wins.
var defaultRules = []rule{
	{name: "email_confirmation", source: model.SourceRuleEmail, match: matchEmailConfirmation},
	{name: "optimist", source: model.SourceRuleOptimist, match: matchOptimist},
}

// matchEmailConfirmation selects a checkbox option restating the profile's
// primary email. An address found in the option must equal it exactly,
// ignoring case.
func matchEmailConfirmation(q model.Question, p model.UserProfile) (string, bool) {
	if q.Type != model.QuestionCheckbox || p.PrimaryEmail == "" {
		return "", false
	}
	email := fold(strings.TrimSpace(p.PrimaryEmail))
	for _, opt := range q.Options {
		for _, found := range profile.FindEmails(opt) {
			if fold(found) == email {
				return opt, true
			}
		}
	}
	return "", false
}

// matchOptimist selects the best end of a rating-like question.
func matchOptimist(q model.Question, p model.UserProfile) (string, bool) {
	if !p.Optimist {
		return "", false
	}
	return bestOfScale(q)
}

func applyRules(rules []rule, q model.Question, p model.UserProfile) (model.Answer, bool) {
	for _, r := range rules {
		if v, ok := r.match(q, p); ok {
			return model.Answer{QuestionID: q.ID, Values: []string{v}, Source: r.source}, true
		}
	}
	return model.Answer{}, false
}
