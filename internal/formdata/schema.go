package formdata

import (
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/formfill-cli/internal/model"
)

const stageSchema = "schema"

// Payload positions.
const (
	pathDescription = "1.0"
	pathItems       = "1.1"
	pathTitle       = "1.8"
	pathFileName    = "3"
)

// Item positions.
const (
	itemText   = 1
	itemType   = 3
	itemBlocks = 4
)

// BuildForm decodes the payload tree into a Form. Entries that cannot be
// decoded are dropped and reported as warnings.
func BuildForm(root gjson.Result) (*model.Form, []model.Warning) {
	form := &model.Form{
		Title:       firstString(root.Get(pathFileName), root.Get(pathTitle)),
		Description: stringOf(root.Get(pathDescription)),
	}

	items := root.Get(pathItems)
	if !items.IsArray() {
		w := model.Warning{
			Stage:   stageSchema,
			Code:    model.WarnQuestionShape,
			Index:   -1,
			Message: "payload has no question list",
		}
		logWarning(w)
		return form, []model.Warning{w}
	}

	questions, warnings := buildItems(items.Array())
	form.Questions = questions
	return form, warnings
}

// BuildQuestions is BuildForm without form metadata.
func BuildQuestions(root gjson.Result) ([]model.Question, []model.Warning) {
	form, warnings := BuildForm(root)
	return form.Questions, warnings
}

func buildItems(items []gjson.Result) ([]model.Question, []model.Warning) {
	questions := make([]model.Question, 0, len(items))
	var warnings []model.Warning
	seen := make(map[string]bool, len(items))

	warn := func(w model.Warning) {
		logWarning(w)
		warnings = append(warnings, w)
	}

	for i, item := range items {
		q, itemWarnings, err := decodeItem(i, item)
		for _, w := range itemWarnings {
			warn(w)
		}
		if err != nil {
			warn(model.Warning{Stage: stageSchema, Code: model.WarnQuestionShape, Index: i, Message: err.Error()})
			continue
		}
		if seen[q.ID] {
			warn(model.Warning{
				Stage:      stageSchema,
				Code:       model.WarnDuplicateID,
				QuestionID: q.ID,
				Index:      i,
				Message:    "entry id already used by an earlier question",
			})
			continue
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}
	return questions, warnings
}

// decodeItem reads the fields shared by every question entry and hands the
// answer block to the decoder registered for its type code.
func decodeItem(index int, item gjson.Result) (model.Question, []model.Warning, error) {
	fields := item.Array()
	if !item.IsArray() || len(fields) <= itemType {
		return model.Question{}, nil, eris.Errorf("entry is not a question array")
	}

	code := fields[itemType]
	if code.Type != gjson.Number {
		return model.Question{}, nil, eris.Errorf("entry has no type code")
	}
	text := stringOf(fields[itemText])

	if len(fields) <= itemBlocks || !fields[itemBlocks].IsArray() || len(fields[itemBlocks].Array()) == 0 {
		return model.Question{}, nil, eris.Errorf("entry %q (type %d) has no answer block", text, code.Int())
	}
	block := answerBlock(fields[itemBlocks])

	id, ok := entryID(block)
	if !ok {
		return model.Question{}, nil, eris.Errorf("entry %q has no entry id", text)
	}

	q := model.Question{
		ID:       id,
		Text:     text,
		TypeCode: code.Int(),
		Type:     typeFor(code.Int()),
		Required: truthy(block.Get("2")),
	}

	decode := decoders[q.Type]
	warnings := decode(index, &q, block)
	return q, warnings, nil
}

// answerBlock returns the first answer sub-block, flattening the extra
// wrapping layer used by multi-part questions.
func answerBlock(blocks gjson.Result) gjson.Result {
	first := blocks.Get("0")
	if first.IsArray() && first.Get("0").IsArray() {
		return first.Get("0")
	}
	return first
}

func entryID(block gjson.Result) (string, bool) {
	if !block.IsArray() {
		return "", false
	}
	id := block.Get("0")
	switch id.Type {
	case gjson.Number:
		return id.Raw, true
	case gjson.String:
		if id.Str != "" {
			return id.Str, true
		}
	}
	return "", false
}

func stringOf(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return ""
}

func firstString(rs ...gjson.Result) string {
	for _, r := range rs {
		if s := stringOf(r); s != "" {
			return s
		}
	}
	return ""
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Int() != 0
	default:
		return false
	}
}

func logWarning(w model.Warning) {
	zap.L().Warn("formdata: "+string(w.Code),
		zap.Int("index", w.Index),
		zap.String("question_id", w.QuestionID),
		zap.String("message", w.Message),
	)
}
