package formdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sells-group/formfill-cli/internal/model"
)

func TestBuildForm_Fixture(t *testing.T) {
	root, err := Extract(loadFixture(t))
	require.NoError(t, err)

	form, warnings := BuildForm(root)
	require.NotNil(t, form)
	assert.Equal(t, "Event Survey", form.Title)
	assert.Contains(t, form.Description, "two minutes")

	// 9 entries, the section header is dropped.
	require.Len(t, form.Questions, 8)

	want := []struct {
		id      string
		typ     model.QuestionType
		options []string
		req     bool
	}{
		{"1001", model.QuestionShortAnswer, nil, true},
		{"1002", model.QuestionParagraph, nil, false},
		{"1003", model.QuestionMultipleChoice, []string{"Red", "Green", "Blue"}, true},
		{"1004", model.QuestionDropdown, []string{"Canada", "Mexico"}, false},
		{"1005", model.QuestionCheckbox, []string{"Confirm your email: a@x.com", "Use a different email"}, false},
		{"1006", model.QuestionRating, []string{"1", "2", "3", "4", "5"}, true},
		{"1008", model.QuestionUnknown, nil, false},
		{"1009", model.QuestionUnknown, nil, false},
	}
	for i, w := range want {
		q := form.Questions[i]
		assert.Equal(t, w.id, q.ID, "question %d", i)
		assert.Equal(t, w.typ, q.Type, "question %s", q.ID)
		assert.Equal(t, w.options, q.Options, "question %s", q.ID)
		assert.Equal(t, w.req, q.Required, "question %s", q.ID)
	}
	assert.Equal(t, int64(9), form.Questions[6].TypeCode)
	assert.Equal(t, "Grid", form.Questions[7].Text)

	codes := map[model.WarningCode]int{}
	for _, w := range warnings {
		codes[w.Code]++
	}
	assert.Equal(t, 1, codes[model.WarnOptionShape], "other option")
	assert.Equal(t, 1, codes[model.WarnQuestionShape], "section header")
	assert.Len(t, form.Unknown(), 2)
}

func TestBuildQuestions_LengthAndDistinctIDs(t *testing.T) {
	payload := `[null,[null,[
		[1,"a",null,0,[[10,null,0]]],
		"garbage",
		[2,"b",null,2,[[20,[["x"],["y"]],0]]],
		[3,"c",null,0,[[10,null,0]]],
		[4,"d",null],
		[5,"e",null,1,[[30,null,0]]]
	]]]`
	questions, warnings := BuildQuestions(gjson.Parse(payload))

	// 6 entries minus garbage, duplicate id and short entry.
	require.Len(t, questions, 3)
	ids := map[string]bool{}
	for _, q := range questions {
		assert.False(t, ids[q.ID], "duplicate id %s", q.ID)
		ids[q.ID] = true
	}
	assert.Equal(t, []string{"10", "20", "30"}, []string{questions[0].ID, questions[1].ID, questions[2].ID})
	assert.Len(t, warnings, 3)

	var dup *model.Warning
	for i := range warnings {
		if warnings[i].Code == model.WarnDuplicateID {
			dup = &warnings[i]
		}
	}
	require.NotNil(t, dup)
	assert.Equal(t, "10", dup.QuestionID)
	assert.Equal(t, 3, dup.Index)
}

func TestBuildQuestions_StringIDAndFlattenedBlock(t *testing.T) {
	payload := `[null,[null,[
		[1,"Name",null,0,[["abc",null,true]]],
		[2,"Pick",null,2,[[[77,[["One"],["Two"]],1]]]]
	]]]`
	questions, warnings := BuildQuestions(gjson.Parse(payload))
	require.Len(t, questions, 2)
	assert.Empty(t, warnings)

	assert.Equal(t, "abc", questions[0].ID)
	assert.True(t, questions[0].Required)
	assert.Equal(t, "77", questions[1].ID)
	assert.Equal(t, []string{"One", "Two"}, questions[1].Options)
	assert.True(t, questions[1].Required)
}

func TestBuildQuestions_ChoiceWithoutOptionsIsUnknown(t *testing.T) {
	payload := `[null,[null,[
		[1,"Pick",null,3,[[5,[[null],"bad",[""]],0]]]
	]]]`
	questions, warnings := BuildQuestions(gjson.Parse(payload))
	require.Len(t, questions, 1)
	assert.Equal(t, model.QuestionUnknown, questions[0].Type)
	assert.Empty(t, questions[0].Options)
	assert.Equal(t, int64(3), questions[0].TypeCode)

	// three bad options plus the demotion
	assert.Len(t, warnings, 4)
}

func TestBuildQuestions_UnknownCodeKeepsNoOptions(t *testing.T) {
	payload := `[null,[null,[[1,"When",null,10,[[5,[["9:00"]],0]]]]]]`
	questions, _ := BuildQuestions(gjson.Parse(payload))
	require.Len(t, questions, 1)
	assert.Equal(t, model.QuestionUnknown, questions[0].Type)
	assert.Nil(t, questions[0].Options)
}

func TestBuildForm_NoQuestionList(t *testing.T) {
	form, warnings := BuildForm(gjson.Parse(`[null,null,"/forms","Empty"]`))
	assert.Equal(t, "Empty", form.Title)
	assert.Empty(t, form.Questions)
	require.Len(t, warnings, 1)
	assert.Equal(t, -1, warnings[0].Index)
}

func TestBuildForm_TitleFallback(t *testing.T) {
	form, _ := BuildForm(gjson.Parse(`[null,["d",[],null,null,null,null,null,null,"Inner title"],"/forms",null]`))
	assert.Equal(t, "Inner title", form.Title)
	assert.Equal(t, "d", form.Description)
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, model.QuestionShortAnswer, typeFor(0))
	assert.Equal(t, model.QuestionRating, typeFor(5))
	assert.Equal(t, model.QuestionRating, typeFor(18))
	assert.Equal(t, model.QuestionUnknown, typeFor(7))
	assert.Equal(t, model.QuestionUnknown, typeFor(-1))
}
