// Package profile parses the free-form user profile that answers are drawn from.
package profile

import (
	"regexp"
	"strings"

	"github.com/sells-group/formfill-cli/internal/model"
)

// OptimistMarker is the exact line that enables optimist mode.
const OptimistMarker = "optimist: true"

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Parse reads the recognized marker lines from raw profile text. Lines it does
// not recognize are left as unstructured context.
func Parse(raw string) model.UserProfile {
	return model.UserProfile{
		RawText:      raw,
		PrimaryEmail: PrimaryEmail(raw),
		Optimist:     IsOptimist(raw),
	}
}

// PrimaryEmail returns the email on the first line keyed as an email, or the
// first email address anywhere in the text.
func PrimaryEmail(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(lower, "email -") || strings.HasPrefix(lower, "email:") || strings.Contains(lower, "primary email") {
			if m := emailRe.FindString(line); m != "" {
				return m
			}
		}
	}
	return emailRe.FindString(raw)
}

// IsOptimist reports whether any line is the optimist marker.
func IsOptimist(raw string) bool {
	for _, line := range strings.Split(raw, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), OptimistMarker) {
			return true
		}
	}
	return false
}

// FindEmails returns every email address in s.
func FindEmails(s string) []string {
	return emailRe.FindAllString(s, -1)
}
