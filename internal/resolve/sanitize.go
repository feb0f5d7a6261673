package resolve

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/formfill-cli/internal/model"
)

const quoteChars = "\"'`*“”‘’"

// fold normalizes s for case-insensitive comparison.
func fold(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// cleanCandidate strips model chatter from a generated answer: only the first
// non-empty line is kept, without an "Answer:" label or surrounding quotes.
func cleanCandidate(text string) string {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if len(line) >= len("answer:") && strings.EqualFold(line[:len("answer:")], "answer:") {
		line = strings.TrimSpace(line[len("answer:"):])
	}
	return strings.TrimSpace(strings.Trim(line, quoteChars))
}

// matchOption maps a candidate onto one of options: exact case-insensitive
// match first, then containment in either direction.
func matchOption(candidate string, options []string) (string, bool) {
	c := fold(candidate)
	if c == "" {
		return "", false
	}
	for _, opt := range options {
		if fold(opt) == c {
			return opt, true
		}
	}

	// Candidate mentions an option: prefer the longest so "Dark Red" beats "Red".
	best, bestLen := "", 0
	for _, opt := range options {
		o := fold(opt)
		if o != "" && strings.Contains(c, o) && len(o) > bestLen {
			best, bestLen = opt, len(o)
		}
	}
	if best != "" {
		return best, true
	}

	for _, opt := range options {
		if strings.Contains(fold(opt), c) {
			return opt, true
		}
	}
	return "", false
}

// sanitize turns a raw generated answer into the values to submit.
func sanitize(q model.Question, raw string) ([]string, bool) {
	candidate := cleanCandidate(raw)
	if candidate == "" {
		return nil, false
	}
	if !q.Type.IsChoice() {
		return []string{candidate}, true
	}
	opt, ok := matchOption(candidate, q.Options)
	if !ok {
		return nil, false
	}
	return []string{opt}, true
}
