package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/database"
	"github.com/pollwise/pollwise/model"
	"github.com/pollwise/pollwise/survey"
	"github.com/pollwise/pollwise/users"
)

// inlineDispatcher runs tasks synchronously so tests can assert on the
// rendered file right after RequestRefresh.
type inlineDispatcher struct{ errs []error }

func (d *inlineDispatcher) Enqueue(name string, run func(context.Context) error) {
	if err := run(context.Background()); err != nil {
		d.errs = append(d.errs, err)
	}
}

func testManager(t *testing.T) (*Manager, *survey.Store, string) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(config.Config{DBUrl: filepath.Join(dir, "test.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	surveys := survey.NewStore(db)
	m := NewManager(db, surveys, &inlineDispatcher{}, config.Config{
		DocumentDir:      filepath.Join(dir, "documents"),
		DocumentCooldown: 30 * time.Minute,
	})

	ctx := context.Background()
	owner, err := users.NewStore(db).Create(ctx, "Olive", "Owner", "owner@example.com")
	require.NoError(t, err)
	respondent, err := users.NewStore(db).Create(ctx, "Rudy", "Respondent", "resp@example.com")
	require.NoError(t, err)

	surveyID, err := surveys.Create(ctx, owner.ID, &model.Survey{
		Title:  "Exported quiz",
		IsQuiz: true,
		Questions: []model.Question{
			{
				Title: "Pick one", Type: model.QuestionChooseOne, Score: 1, IsRequired: true,
				Answers: []model.QuestionAnswer{
					{Text: "Right", IsCorrect: true},
					{Text: "Wrong"},
				},
			},
			{Title: "Comment", Type: model.QuestionText},
		},
	})
	require.NoError(t, err)

	sv, err := surveys.ByID(ctx, surveyID)
	require.NoError(t, err)
	_, err = surveys.Submit(ctx, surveyID, respondent.ID, []model.QuestionResult{
		{QuestionID: sv.Questions[0].ID, Answers: []model.AnswerResult{{Text: "Right"}}},
		{QuestionID: sv.Questions[1].ID, Answers: []model.AnswerResult{{Text: "fine"}}},
	})
	require.NoError(t, err)

	return m, surveys, surveyID
}

func TestRequestRefreshRendersWorkbook(t *testing.T) {
	m, _, surveyID := testManager(t)
	ctx := context.Background()

	require.NoError(t, m.RequestRefresh(ctx, surveyID))

	doc, err := m.BySurvey(ctx, surveyID)
	require.NoError(t, err)
	assert.Equal(t, surveyID, doc.SurveyID)

	f, err := excelize.OpenFile(m.FilePath(surveyID))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Question #1", "Question #2"}, f.GetSheetList())

	email, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "resp@example.com", email)
	score, err := f.GetCellValue("Summary", "D2")
	require.NoError(t, err)
	assert.Equal(t, "1", score)

	title, err := f.GetCellValue("Question #1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Pick one", title)
	answer, err := f.GetCellValue("Question #1", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Right", answer)
}

func TestRequestRefreshCooldown(t *testing.T) {
	m, _, surveyID := testManager(t)
	ctx := context.Background()

	start := time.Now()
	m.now = func() time.Time { return start }

	require.NoError(t, m.RequestRefresh(ctx, surveyID))
	assert.ErrorIs(t, m.RequestRefresh(ctx, surveyID), model.ErrTooSoon)

	// still throttled just before the window closes
	m.now = func() time.Time { return start.Add(29 * time.Minute) }
	assert.ErrorIs(t, m.RequestRefresh(ctx, surveyID), model.ErrTooSoon)

	m.now = func() time.Time { return start.Add(31 * time.Minute) }
	assert.NoError(t, m.RequestRefresh(ctx, surveyID))
}

func TestRequestRefreshUnknownSurvey(t *testing.T) {
	m, _, _ := testManager(t)

	d := &inlineDispatcher{}
	m.tasks = d
	require.NoError(t, m.RequestRefresh(context.Background(), "missing"))
	// render ran and failed: the document row exists but no file does
	require.Len(t, d.errs, 1)
	assert.ErrorIs(t, d.errs[0], model.ErrNotFound)
	assert.NoFileExists(t, m.FilePath("missing"))
}
