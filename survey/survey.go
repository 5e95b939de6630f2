// Package survey holds the survey store, the access policy, answer
// submission and the scoring/aggregation engine.
package survey

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pollwise/pollwise/guard"
	"github.com/pollwise/pollwise/model"
)

type Store struct {
	db    *sql.DB
	guard *guard.Keyed
	now   func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		guard: guard.New(),
		now:   time.Now,
	}
}

// Create persists a survey with its questions and canonical answers in
// one transaction. Question order is preserved through a position
// column.
func (s *Store) Create(ctx context.Context, ownerID string, sv *model.Survey) (string, error) {
	for _, q := range sv.Questions {
		if !q.Type.Valid() {
			return "", fmt.Errorf("%w: %q", model.ErrInvalidQuestionType, q.Type)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	surveyID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO survey (
			id, owner_id, title, description,
			is_anonymous, is_quiz, show_results, show_score,
			send_multiple_times, expire_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		surveyID,
		ownerID,
		sv.Title,
		sv.Description,
		sv.IsAnonymous,
		sv.IsQuiz,
		sv.ShowResults,
		sv.ShowScore,
		sv.SendMultipleTimes,
		sv.ExpireAt,
		s.now(),
	)
	if err != nil {
		return "", err
	}

	questionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (id, survey_id, position, title, score, type, is_required, show_answers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer questionStmt.Close()

	answerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question_answer (id, question_id, text, is_correct)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer answerStmt.Close()

	for i, q := range sv.Questions {
		questionID := uuid.NewString()
		_, err = questionStmt.ExecContext(ctx, questionID, surveyID, i, q.Title, q.Score, q.Type, q.IsRequired, q.ShowAnswers)
		if err != nil {
			return "", err
		}

		for _, a := range q.Answers {
			_, err = answerStmt.ExecContext(ctx, uuid.NewString(), questionID, a.Text, a.IsCorrect)
			if err != nil {
				return "", err
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		return "", err
	}
	return surveyID, nil
}

// ByID loads a survey with its questions and canonical answers.
func (s *Store) ByID(ctx context.Context, surveyID string) (*model.Survey, error) {
	sv := &model.Survey{}
	var ownerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id, owner_id, title, description,
			is_anonymous, is_quiz, show_results, show_score,
			send_multiple_times, is_finished, expire_at, created_at
		FROM survey
		WHERE id = ?`,
		surveyID,
	).Scan(
		&sv.ID, &ownerID, &sv.Title, &sv.Description,
		&sv.IsAnonymous, &sv.IsQuiz, &sv.ShowResults, &sv.ShowScore,
		&sv.SendMultipleTimes, &sv.IsFinished, &sv.ExpireAt, &sv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sv.OwnerID = ownerID.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, score, type, is_required, show_answers
		FROM question
		WHERE survey_id = ?
		ORDER BY position`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]*model.Question{}
	for rows.Next() {
		q := model.Question{SurveyID: surveyID}
		err = rows.Scan(&q.ID, &q.Title, &q.Score, &q.Type, &q.IsRequired, &q.ShowAnswers)
		if err != nil {
			return nil, err
		}
		sv.Questions = append(sv.Questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	for i := range sv.Questions {
		byID[sv.Questions[i].ID] = &sv.Questions[i]
	}

	answerRows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.question_id, a.text, a.is_correct
		FROM question_answer a
		INNER JOIN question q ON (a.question_id = q.id)
		WHERE q.survey_id = ?`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer answerRows.Close()

	for answerRows.Next() {
		a := model.QuestionAnswer{}
		err = answerRows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect)
		if err != nil {
			return nil, err
		}
		if q, ok := byID[a.QuestionID]; ok {
			q.Answers = append(q.Answers, a)
		}
	}
	return sv, answerRows.Err()
}

// ListByOwner returns the surveys a user created, without nested
// questions.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]model.Survey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, title, description,
			is_anonymous, is_quiz, show_results, show_score,
			send_multiple_times, is_finished, expire_at, created_at
		FROM survey
		WHERE owner_id = ?
		ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		sv := model.Survey{OwnerID: ownerID}
		err = rows.Scan(
			&sv.ID, &sv.Title, &sv.Description,
			&sv.IsAnonymous, &sv.IsQuiz, &sv.ShowResults, &sv.ShowScore,
			&sv.SendMultipleTimes, &sv.IsFinished, &sv.ExpireAt, &sv.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, sv)
	}
	return surveys, rows.Err()
}

// ListAnsweredBy returns the submissions a user made across all
// surveys, each with the survey's title attached.
func (s *Store) ListAnsweredBy(ctx context.Context, userID string) ([]model.SurveyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.survey_id, r.created_at, v.title, v.description
		FROM survey_result r
		INNER JOIN survey v ON (r.survey_id = v.id)
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.SurveyResult{}
	for rows.Next() {
		r := model.SurveyResult{UserID: userID, Survey: &model.Survey{}}
		err = rows.Scan(&r.ID, &r.SurveyID, &r.CreatedAt, &r.Survey.Title, &r.Survey.Description)
		if err != nil {
			return nil, err
		}
		r.Survey.ID = r.SurveyID
		results = append(results, r)
	}
	return results, rows.Err()
}

// Results loads every submission for a survey, with respondent
// identity (when not anonymous) and nested question/answer rows.
func (s *Store) Results(ctx context.Context, surveyID string) ([]model.SurveyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.created_at, u.name, u.surname, u.email
		FROM survey_result r
		LEFT OUTER JOIN user u ON (r.user_id = u.id)
		WHERE r.survey_id = ?
		ORDER BY r.created_at`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.SurveyResult{}
	byID := map[string]int{}
	for rows.Next() {
		r := model.SurveyResult{SurveyID: surveyID}
		var userID, name, surname, email sql.NullString
		err = rows.Scan(&r.ID, &userID, &r.CreatedAt, &name, &surname, &email)
		if err != nil {
			return nil, err
		}
		if userID.Valid {
			r.UserID = userID.String
			r.User = &model.User{
				ID:      userID.String,
				Name:    name.String,
				Surname: surname.String,
				Email:   email.String,
			}
		}
		byID[r.ID] = len(results)
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	answerRows, err := s.db.QueryContext(ctx, `
		SELECT qr.id, qr.survey_result_id, qr.question_id, ar.id, ar.text, ar.is_correct
		FROM question_result qr
		LEFT OUTER JOIN answer_result ar ON (ar.question_result_id = qr.id)
		WHERE qr.survey_result_id IN (
			SELECT id FROM survey_result WHERE survey_id = ?
		)
		ORDER BY qr.id`,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer answerRows.Close()

	for answerRows.Next() {
		qr := model.QuestionResult{}
		var answerID, answerText sql.NullString
		var answerCorrect sql.NullBool
		err = answerRows.Scan(&qr.ID, &qr.ResultID, &qr.QuestionID, &answerID, &answerText, &answerCorrect)
		if err != nil {
			return nil, err
		}

		idx, ok := byID[qr.ResultID]
		if !ok {
			continue
		}
		result := &results[idx]

		last := len(result.Questions) - 1
		if last < 0 || result.Questions[last].ID != qr.ID {
			result.Questions = append(result.Questions, qr)
			last++
		}
		if answerID.Valid {
			result.Questions[last].Answers = append(result.Questions[last].Answers, model.AnswerResult{
				ID:               answerID.String,
				QuestionResultID: qr.ID,
				Text:             answerText.String,
				IsCorrect:        answerCorrect.Bool,
			})
		}
	}
	return results, answerRows.Err()
}

// HasSubmission reports whether the user already submitted to the survey.
func (s *Store) HasSubmission(ctx context.Context, surveyID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM survey_result
		WHERE survey_id = ?
			AND user_id = ?`,
		surveyID,
		userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Finish closes a survey now, stamping its expiry.
func (s *Store) Finish(ctx context.Context, surveyID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey
		SET is_finished = TRUE, expire_at = ?
		WHERE id = ?`,
		s.now(),
		surveyID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return model.ErrNotFound
	}
	return nil
}
