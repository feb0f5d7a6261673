package formdata

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var assignRe = regexp.MustCompile(`(?:\bvar\s+|\blet\s+|\bconst\s+|\b)` + PayloadVar + `\s*=\s*`)

var (
	errUnterminated        = errors.New("unterminated literal")
	errDuplicateAssignment = errors.New("more than one " + PayloadVar + " assignment")
)

// Extract locates the single payload assignment in page text and parses
// its literal. Script bodies are searched first; bare script text is also
// accepted. A second assignment is a SchemaParseError.
func Extract(page string) (gjson.Result, error) {
	rests := assignments(scriptBodies(page)...)
	if len(rests) == 0 {
		rests = assignments(page)
	}
	switch len(rests) {
	case 0:
		return gjson.Result{}, ErrSchemaNotFound
	case 1:
	default:
		return gjson.Result{}, newParseError(rests[1], 0, errDuplicateAssignment)
	}

	literal, err := boundLiteral(rests[0])
	if err != nil {
		return gjson.Result{}, err
	}
	return parseLiteral(literal)
}

// assignments returns the text following each payload assignment in srcs.
func assignments(srcs ...string) []string {
	var rests []string
	for _, src := range srcs {
		for _, loc := range assignRe.FindAllStringIndex(src, -1) {
			rests = append(rests, src[loc[1]:])
		}
	}
	return rests
}

// scriptBodies returns the text of every <script> element in page.
func scriptBodies(page string) []string {
	var bodies []string
	z := html.NewTokenizer(strings.NewReader(page))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return bodies
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if inScript {
				bodies = append(bodies, string(z.Text()))
			}
		}
	}
}

// boundLiteral returns the balanced array/object literal at the start of s.
func boundLiteral(s string) (string, error) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" || (s[0] != '[' && s[0] != '{') {
		return "", newParseError(s, 0, errors.New("literal does not start with '[' or '{'"))
	}

	depth := 0
	var quote byte
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", newParseError(s, int64(len(s)), errUnterminated)
}

// parseLiteral validates the literal, first after cleaning and then as-is.
func parseLiteral(literal string) (gjson.Result, error) {
	cleaned := cleanLiteral(literal)
	if gjson.Valid(cleaned) {
		return gjson.Parse(cleaned), nil
	}
	if cleaned != literal && gjson.Valid(literal) {
		zap.L().Debug("formdata: cleaned payload invalid, using raw literal")
		return gjson.Parse(literal), nil
	}

	var v any
	err := json.Unmarshal([]byte(cleaned), &v)
	var offset int64
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	}
	if err == nil {
		err = errors.New("invalid payload")
	}
	return gjson.Result{}, newParseError(cleaned, offset, err)
}

// cleanLiteral escapes raw control characters inside strings and drops
// trailing commas before a closing bracket.
func cleanLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteString(`\n`)
				continue
			case c == '\r':
				b.WriteString(`\r`)
				continue
			case c == '\t':
				b.WriteString(`\t`)
				continue
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' && closesNext(s[i+1:]) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == ']' || rest[0] == '}')
}
