package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/formfill-cli/internal/model"
)

func TestCleanCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Green  ", "Green"},
		{"\"Green\"", "Green"},
		{"Answer: Blue\nBecause it is calm.", "Blue"},
		{"\n\n  answer: 'Ada Lovelace'  \n", "Ada Lovelace"},
		{"“Quoted”", "Quoted"},
		{"**Bold**", "Bold"},
		{"", ""},
		{"   \n  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanCandidate(tt.in), "input %q", tt.in)
	}
}

func TestMatchOption(t *testing.T) {
	options := []string{"Red", "Dark Red", "Green", "Blue"}

	tests := []struct {
		name      string
		candidate string
		want      string
		ok        bool
	}{
		{"exact case-insensitive", "green", "Green", true},
		{"extra whitespace", "  dark   red ", "Dark Red", true},
		{"candidate contains option", "I would pick Blue", "Blue", true},
		{"longest contained option wins", "definitely dark red", "Dark Red", true},
		{"option contains candidate", "Gree", "Green", true},
		{"no match", "Purple", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchOption(tt.candidate, options)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchOption_UnicodeFolding(t *testing.T) {
	got, ok := matchOption("CAFÉ", []string{"Tea", "Café"})
	assert.True(t, ok)
	assert.Equal(t, "Café", got)
}

func TestSanitize(t *testing.T) {
	choice := model.Question{Type: model.QuestionMultipleChoice, Options: []string{"Red", "Green", "Blue"}}
	values, ok := sanitize(choice, "green")
	assert.True(t, ok)
	assert.Equal(t, []string{"Green"}, values)

	_, ok = sanitize(choice, "Purple")
	assert.False(t, ok)

	free := model.Question{Type: model.QuestionParagraph}
	values, ok = sanitize(free, "  \"I like painting.\"  ")
	assert.True(t, ok)
	assert.Equal(t, []string{"I like painting."}, values)

	_, ok = sanitize(free, "   ")
	assert.False(t, ok)
}
