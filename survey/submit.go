package survey

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pollwise/pollwise/model"
)

// Submit validates and persists an answer set in a single transaction.
// If any required question is left without a non-empty answer the whole
// submission rolls back with an IncompleteSubmissionError naming the
// unanswered question ids.
//
// userID is empty for anonymous submissions. For identified ones the
// duplicate check is re-run under a per-survey+user guard, closing the
// window where two concurrent submissions could both pass CheckAccess.
func (s *Store) Submit(ctx context.Context, surveyID, userID string, questions []model.QuestionResult) (string, error) {
	sv, err := s.ByID(ctx, surveyID)
	if err != nil {
		return "", err
	}

	if userID != "" {
		key := surveyID + "/" + userID
		s.guard.Lock(key)
		defer s.guard.Unlock(key)

		if !sv.SendMultipleTimes {
			submitted, err := s.HasSubmission(ctx, surveyID, userID)
			if err != nil {
				return "", err
			}
			if submitted {
				return "", model.ErrAlreadySubmitted
			}
		}
	}

	required := map[string]bool{}
	correct := map[string][]string{}
	for _, q := range sv.Questions {
		if q.IsRequired {
			required[q.ID] = true
		}
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct[q.ID] = append(correct[q.ID], a.Text)
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	resultID := uuid.NewString()
	var owner any
	if userID != "" {
		owner = userID
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO survey_result (id, survey_id, user_id, created_at)
		VALUES (?, ?, ?, ?)`,
		resultID,
		surveyID,
		owner,
		s.now(),
	)
	if err != nil {
		return "", err
	}

	answerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO answer_result (id, question_result_id, text, is_correct)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer answerStmt.Close()

	for _, q := range questions {
		questionResultID := uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO question_result (id, survey_result_id, question_id)
			VALUES (?, ?, ?)`,
			questionResultID,
			resultID,
			q.QuestionID,
		)
		if err != nil {
			return "", err
		}

		answered := false
		for _, a := range q.Answers {
			_, err = answerStmt.ExecContext(ctx,
				uuid.NewString(),
				questionResultID,
				a.Text,
				contains(correct[q.QuestionID], a.Text),
			)
			if err != nil {
				return "", err
			}
			if a.Text != "" {
				answered = true
			}
		}
		if answered {
			delete(required, q.QuestionID)
		}
	}

	if len(required) > 0 {
		missing := make([]string, 0, len(required))
		for id := range required {
			missing = append(missing, id)
		}
		sort.Strings(missing)
		return "", &model.IncompleteSubmissionError{QuestionIDs: missing}
	}

	err = tx.Commit()
	if err != nil {
		return "", err
	}
	return resultID, nil
}

func contains(set []string, text string) bool {
	for _, s := range set {
		if s == text {
			return true
		}
	}
	return false
}
