package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/formfill-cli/internal/model"
)

const testFormURL = "https://docs.google.com/forms/d/e/abc/viewform"

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testFormURL)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusResolving))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusResolving, got.Status)
	assert.Nil(t, got.Result)

	result := &model.RunResult{
		RunID:      run.ID,
		FormURL:    testFormURL,
		Form:       &model.Form{Title: "Survey", Questions: []model.Question{{ID: "1", Text: "Name", Type: model.QuestionShortAnswer}}},
		Answers:    []model.Answer{{QuestionID: "1", Values: []string{"Ada"}, Source: model.SourceAI}},
		PrefillURL: testFormURL + "?usp=pp_url&entry.1=Ada",
		Warnings:   []model.Warning{{Stage: "parse", Code: model.WarnQuestionShape, Index: 3, Message: "no answer block"}},
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, result))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, result.PrefillURL, got.Result.PrefillURL)
	assert.Equal(t, "Survey", got.Result.Form.Title)
	assert.Equal(t, result.Answers, got.Result.Answers)
	assert.Equal(t, result.Warnings, got.Result.Warnings)
	assert.Empty(t, got.Error)
}

func TestSQLite_FailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testFormURL)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, "extract: schema not found"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "extract: schema not found", got.Error)
}

func TestSQLite_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.UpdateRunStatus(ctx, "missing", model.RunStatusFailed)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.CompleteRun(ctx, "missing", &model.RunResult{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		url := testFormURL
		if i == 2 {
			url = "https://docs.google.com/forms/d/e/other/viewform"
		}
		run, err := s.CreateRun(ctx, url)
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, s.FailRun(ctx, ids[0], "boom"))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[0], failed[0].ID)

	byURL, err := s.ListRuns(ctx, RunFilter{FormURL: testFormURL})
	require.NoError(t, err)
	assert.Len(t, byURL, 2)

	page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestSQLite_PageCache(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	got, err := s.GetCachedPage(ctx, testFormURL)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SetCachedPage(ctx, testFormURL, "<html>v1</html>", time.Hour))
	require.NoError(t, s.SetCachedPage(ctx, testFormURL, "<html>v2</html>", time.Hour))

	got, err = s.GetCachedPage(ctx, testFormURL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "<html>v2</html>", got.HTML)
	assert.Equal(t, testFormURL, got.URL)
	assert.True(t, got.ExpiresAt.After(got.FetchedAt))
}

func TestSQLite_PageCacheExpiry(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SetCachedPage(ctx, testFormURL, "<html/>", -time.Minute))
	got, err := s.GetCachedPage(ctx, testFormURL)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.DeleteExpiredPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_ImplementsStore(t *testing.T) {
	var _ Store = newTestSQLite(t)
}

func TestSQLite_ListRunsCreatedAfter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.CreateRun(ctx, testFormURL)
	require.NoError(t, err)

	recent, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	future, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}
