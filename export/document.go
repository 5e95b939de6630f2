// Package export renders survey results into spreadsheet documents and
// manages the per-survey document record that throttles regeneration.
package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/guard"
	"github.com/pollwise/pollwise/model"
	"github.com/pollwise/pollwise/survey"
)

// Dispatcher is the deferred-execution facility rendering runs on.
type Dispatcher interface {
	Enqueue(name string, run func(context.Context) error)
}

type Manager struct {
	db       *sql.DB
	surveys  *survey.Store
	tasks    Dispatcher
	guard    *guard.Keyed
	dir      string
	cooldown time.Duration
	now      func() time.Time
}

func NewManager(db *sql.DB, surveys *survey.Store, tasks Dispatcher, cfg config.Config) *Manager {
	return &Manager{
		db:       db,
		surveys:  surveys,
		tasks:    tasks,
		guard:    guard.New(),
		dir:      cfg.DocumentDir,
		cooldown: cfg.DocumentCooldown,
		now:      time.Now,
	}
}

// RequestRefresh enqueues a document render for the survey and returns
// immediately; the file appears (or updates) once the deferred task
// runs. The document row is created lazily on the first request. A
// second request within the cooldown window fails with
// model.ErrTooSoon. The check-then-stamp sequence is serialized per
// survey.
func (m *Manager) RequestRefresh(ctx context.Context, surveyID string) error {
	m.guard.Lock(surveyID)
	defer m.guard.Unlock(surveyID)

	now := m.now()

	doc, err := m.BySurvey(ctx, surveyID)
	switch {
	case err == model.ErrNotFound:
		_, err = m.db.ExecContext(ctx, `
			INSERT INTO survey_document (id, survey_id, title, refresh_after)
			VALUES (?, ?, ?, ?)`,
			uuid.NewString(),
			surveyID,
			surveyID,
			now.Add(m.cooldown),
		)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	case now.Before(doc.RefreshAfter):
		return model.ErrTooSoon
	default:
		_, err = m.db.ExecContext(ctx, `
			UPDATE survey_document
			SET refresh_after = ?
			WHERE id = ?`,
			now.Add(m.cooldown),
			doc.ID,
		)
		if err != nil {
			return err
		}
	}

	m.tasks.Enqueue("document.render "+surveyID, func(ctx context.Context) error {
		return m.Render(ctx, surveyID)
	})
	return nil
}

// BySurvey returns the survey's document record, or model.ErrNotFound
// if no render was ever requested.
func (m *Manager) BySurvey(ctx context.Context, surveyID string) (*model.SurveyDocument, error) {
	doc := &model.SurveyDocument{}
	err := m.db.QueryRowContext(ctx, `
		SELECT id, survey_id, title, refresh_after
		FROM survey_document
		WHERE survey_id = ?`,
		surveyID,
	).Scan(&doc.ID, &doc.SurveyID, &doc.Title, &doc.RefreshAfter)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Render grades the survey's submissions and writes the workbook to
// the document directory, replacing any previous file.
func (m *Manager) Render(ctx context.Context, surveyID string) error {
	sv, err := m.surveys.ByID(ctx, surveyID)
	if err != nil {
		return err
	}
	results, err := m.surveys.Results(ctx, surveyID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	return writeWorkbook(survey.BuildAggregate(sv, results), m.FilePath(surveyID))
}

// FilePath is where the survey's workbook lives on disk.
func (m *Manager) FilePath(surveyID string) string {
	return filepath.Join(m.dir, surveyID+".xlsx")
}
