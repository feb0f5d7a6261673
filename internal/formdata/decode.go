package formdata

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/sells-group/formfill-cli/internal/model"
)

// typeTable maps payload type codes to question types. Codes missing from
// the table decode as UNKNOWN.
var typeTable = map[int64]model.QuestionType{
	0:  model.QuestionShortAnswer,
	1:  model.QuestionParagraph,
	2:  model.QuestionMultipleChoice,
	3:  model.QuestionDropdown,
	4:  model.QuestionCheckbox,
	5:  model.QuestionRating, // linear scale
	18: model.QuestionRating,
}

func typeFor(code int64) model.QuestionType {
	if t, ok := typeTable[code]; ok {
		return t
	}
	return model.QuestionUnknown
}

// decoder fills the type-specific parts of q from its answer block.
type decoder func(index int, q *model.Question, block gjson.Result) []model.Warning

var decoders = map[model.QuestionType]decoder{
	model.QuestionShortAnswer:    decodeFreeText,
	model.QuestionParagraph:      decodeFreeText,
	model.QuestionMultipleChoice: decodeChoice,
	model.QuestionDropdown:       decodeChoice,
	model.QuestionCheckbox:       decodeChoice,
	model.QuestionRating:         decodeChoice,
	model.QuestionUnknown:        decodeUnknown,
}

func decodeFreeText(_ int, q *model.Question, _ gjson.Result) []model.Warning {
	q.Options = nil
	return nil
}

func decodeUnknown(_ int, q *model.Question, _ gjson.Result) []model.Warning {
	q.Options = nil
	return nil
}

// Option entry positions.
const (
	optionText    = 0
	optionIsOther = 4
)

// decodeChoice reads the option list. A choice question left with no usable
// option is kept as UNKNOWN.
func decodeChoice(index int, q *model.Question, block gjson.Result) []model.Warning {
	var warnings []model.Warning
	optWarn := func(msg string) {
		warnings = append(warnings, model.Warning{
			Stage:      stageSchema,
			Code:       model.WarnOptionShape,
			QuestionID: q.ID,
			Index:      index,
			Message:    msg,
		})
	}

	raw := block.Get("1")
	var options []string
	if raw.IsArray() {
		for j, opt := range raw.Array() {
			text := opt.Get(strconv.Itoa(optionText))
			switch {
			case !opt.IsArray():
				optWarn(fmt.Sprintf("option %d is not an array", j))
			case truthy(opt.Get(strconv.Itoa(optionIsOther))) && stringOf(text) == "":
				optWarn(fmt.Sprintf("option %d is a free-form \"other\" option", j))
			case text.Type != gjson.String || text.Str == "":
				optWarn(fmt.Sprintf("option %d has no display text", j))
			default:
				options = append(options, text.Str)
			}
		}
	}

	if len(options) == 0 {
		warnings = append(warnings, model.Warning{
			Stage:      stageSchema,
			Code:       model.WarnQuestionShape,
			QuestionID: q.ID,
			Index:      index,
			Message:    fmt.Sprintf("%s question has no usable options, kept as %s", q.Type, model.QuestionUnknown),
		})
		q.Type = model.QuestionUnknown
		q.Options = nil
		return warnings
	}
	q.Options = options
	return warnings
}
