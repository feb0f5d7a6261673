package report

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/formfill-cli/internal/model"
)

// Sheet names in the review workbook.
const (
	SheetSummary  = "Summary"
	SheetAnswers  = "Answers"
	SheetWarnings = "Warnings"
)

var (
	answerHeader  = []string{"Entry ID", "Question", "Type", "Required", "Options", "Answer", "Source"}
	warningHeader = []string{"Stage", "Code", "Question ID", "Index", "Message"}
)

// WriteXLSX writes a review workbook for result to path. Unresolved answers
// are left blank so they can be filled in by hand.
func WriteXLSX(path string, result *model.RunResult) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	title := ""
	if result.Form != nil {
		title = result.Form.Title
	}
	addRow(summary, "Form", title)
	addRow(summary, "Form URL", result.FormURL)
	addRow(summary, "Run ID", result.RunID)
	addRow(summary, "Pre-fill URL", result.PrefillURL)
	addRow(summary, "Unresolved", strconv.Itoa(len(result.Unresolved())))
	addRow(summary, "Warnings", strconv.Itoa(len(result.Warnings)))
	summary.SetColWidth(1, 1, 16)

	answers, err := f.AddSheet(SheetAnswers)
	if err != nil {
		return eris.Wrap(err, "report: add answers sheet")
	}
	addRow(answers, answerHeader...)

	byID := make(map[string]model.Answer, len(result.Answers))
	for _, a := range result.Answers {
		byID[a.QuestionID] = a
	}
	if result.Form != nil {
		for _, q := range result.Form.Questions {
			a, ok := byID[q.ID]
			value := ""
			source := string(model.SourceUnresolved)
			if ok {
				source = string(a.Source)
				if a.Source != model.SourceUnresolved {
					value = strings.Join(a.Values, "; ")
				}
			}
			addRow(answers,
				q.ID,
				q.Text,
				string(q.Type),
				strconv.FormatBool(q.Required),
				strings.Join(q.Options, "; "),
				value,
				source,
			)
		}
	}

	warnings, err := f.AddSheet(SheetWarnings)
	if err != nil {
		return eris.Wrap(err, "report: add warnings sheet")
	}
	addRow(warnings, warningHeader...)
	for _, w := range result.Warnings {
		addRow(warnings, w.Stage, string(w.Code), w.QuestionID, strconv.Itoa(w.Index), w.Message)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
