package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/monitoring"
)

func TestWriteOutput(t *testing.T) {
	v := map[string]any{"prefill_url": "https://x?usp=pp_url"}
	text := func(w io.Writer) error {
		_, err := io.WriteString(w, "plain\n")
		return err
	}

	tests := []struct {
		format string
		want   string
	}{
		{"json", `"prefill_url": "https://x?usp=pp_url"`},
		{"", `"prefill_url"`},
		{"yaml", "prefill_url: https://x?usp=pp_url"},
		{"TEXT", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeOutput(&buf, tt.format, v, text))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	err := writeOutput(io.Discard, "xml", v, text)
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestFormatQuestions(t *testing.T) {
	var buf bytes.Buffer
	form := &model.Form{
		Title: "Survey",
		Questions: []model.Question{
			{ID: "1001", Text: "Name", Type: model.QuestionShortAnswer, Required: true},
			{ID: "1003", Text: "Color", Type: model.QuestionMultipleChoice, Options: []string{"Red", "Green"}},
		},
	}
	require.NoError(t, formatQuestions(&buf, form))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Survey\n"))
	assert.Contains(t, out, "ENTRY")
	assert.Contains(t, out, "1003")
	assert.Contains(t, out, "Red | Green")
	assert.Contains(t, out, "yes")
}

func TestFormatWarnings(t *testing.T) {
	var buf bytes.Buffer
	formatWarnings(&buf, nil)
	assert.Empty(t, buf.String())

	formatWarnings(&buf, []model.Warning{{Stage: "schema", Code: model.WarnDuplicateID, QuestionID: "9", Message: "dropped"}})
	assert.Contains(t, buf.String(), "Warnings (1)")
	assert.Contains(t, buf.String(), "schema/duplicate_id [9]: dropped")
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{
		{ID: "run-1", Status: model.RunStatusComplete, FormURL: "https://f", CreatedAt: time.Now()},
		{ID: "run-2", Status: model.RunStatusFailed, FormURL: "https://g", Error: "restricted", CreatedAt: time.Now()},
	})
	out := buf.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "restricted")
}

func TestFormatRunText(t *testing.T) {
	var buf bytes.Buffer
	run := &model.Run{
		ID:     "run-1",
		Status: model.RunStatusComplete,
		Result: &model.RunResult{FormURL: "https://f", PrefillURL: "https://f?usp=pp_url"},
	}
	require.NoError(t, formatRunText(&buf, run))
	assert.Contains(t, buf.String(), "Run run-1 (complete)")
	assert.Contains(t, buf.String(), "https://f?usp=pp_url")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestFormatStats(t *testing.T) {
	var buf bytes.Buffer
	formatStats(&buf, &monitoring.MetricsSnapshot{
		RunsTotal: 10, RunsComplete: 6, RunsFailed: 4, FailRate: 0.4, LookbackHours: 24, CostUSD: 0.5,
	}, []monitoring.Alert{{Severity: "high", Message: "Run failure rate 40.0% exceeds threshold"}})

	out := buf.String()
	assert.Contains(t, out, "Runs (last 24h): 10 total, 6 complete, 4 failed")
	assert.Contains(t, out, "Failure rate: 40.0%")
	assert.Contains(t, out, "ALERT [high] Run failure rate")
}
