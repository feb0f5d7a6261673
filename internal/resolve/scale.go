package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/formfill-cli/internal/model"
)

// ladders are ordinal label sets, worst first.
var ladders = [][]string{
	{"very poor", "poor", "fair", "good", "very good", "excellent"},
	{"terrible", "bad", "average", "good", "great"},
	{"strongly disagree", "disagree", "somewhat disagree", "neither agree nor disagree", "neutral", "somewhat agree", "agree", "strongly agree"},
	{"very dissatisfied", "dissatisfied", "somewhat dissatisfied", "neutral", "somewhat satisfied", "satisfied", "very satisfied"},
	{"very unlikely", "unlikely", "neutral", "likely", "very likely"},
	{"never", "rarely", "sometimes", "often", "always"},
	{"not at all", "slightly", "moderately", "very", "extremely"},
	{"low", "medium", "high"},
}

// scalePointRe matches a scale point: a small whole number, optionally
// followed by a word label ("1", "5 - Excellent", "3. Neutral"). Ranges,
// open-ended buckets and years do not match.
var scalePointRe = regexp.MustCompile(`^\s*(\d{1,2})\s*(?:$|[-–:.)(]?\s*\p{L})`)

// maxScalePoint bounds numeric scales to the usual 0-10 span.
const maxScalePoint = 10

var ratingWordRe = regexp.MustCompile(`(?i)\brat(e|ing)\b`)

// bestOfScale returns the most favorable option of a rating-like question.
// Numeric and labelled scales pick their highest rank; a RATING question or a
// choice question mentioning a rating with no readable direction picks the
// last option.
func bestOfScale(q model.Question) (string, bool) {
	if !q.Type.IsChoice() || len(q.Options) == 0 {
		return "", false
	}
	if best, ok := numericBest(q.Options); ok {
		return best, true
	}
	if best, ok := ladderBest(q.Options); ok {
		return best, true
	}
	if q.Type == model.QuestionRating || ratingWordRe.MatchString(q.Text) {
		return q.Options[len(q.Options)-1], true
	}
	return "", false
}

// isRatingLike reports whether q would be handled by the optimist rule.
func isRatingLike(q model.Question) bool {
	_, ok := bestOfScale(q)
	return ok
}

// numericBest handles consecutive-integer scales within 0-10, in either
// direction.
func numericBest(options []string) (string, bool) {
	if len(options) < 2 {
		return "", false
	}
	values := make([]int, len(options))
	for i, opt := range options {
		m := scalePointRe.FindStringSubmatch(opt)
		if m == nil {
			return "", false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n > maxScalePoint {
			return "", false
		}
		values[i] = n
	}
	if !consecutive(values) {
		return "", false
	}
	if values[0] < values[1] {
		return options[len(options)-1], true
	}
	return options[0], true
}

// consecutive reports whether values step by exactly 1 in one direction.
func consecutive(values []int) bool {
	step := values[1] - values[0]
	if step != 1 && step != -1 {
		return false
	}
	for i := 2; i < len(values); i++ {
		if values[i]-values[i-1] != step {
			return false
		}
	}
	return true
}

// ladderBest handles options that all belong to one known ordinal ladder.
func ladderBest(options []string) (string, bool) {
	if len(options) < 2 {
		return "", false
	}
	for _, ladder := range ladders {
		rank := make(map[string]int, len(ladder))
		for i, label := range ladder {
			rank[label] = i
		}
		ranks := make([]int, 0, len(options))
		for _, opt := range options {
			r, ok := rank[strings.TrimRight(fold(opt), ".!")]
			if !ok {
				break
			}
			ranks = append(ranks, r)
		}
		if len(ranks) != len(options) {
			continue
		}
		switch monotonic(ranks) {
		case 1:
			return options[len(options)-1], true
		case -1:
			return options[0], true
		}
	}
	return "", false
}

// monotonic returns 1 for strictly increasing, -1 for strictly decreasing
// and 0 otherwise.
func monotonic(values []int) int {
	dir := 0
	for i := 1; i < len(values); i++ {
		var step int
		switch {
		case values[i] > values[i-1]:
			step = 1
		case values[i] < values[i-1]:
			step = -1
		default:
			return 0
		}
		if dir == 0 {
			dir = step
		} else if step != dir {
			return 0
		}
	}
	return dir
}
