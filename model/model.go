package model

import "time"

// QuestionType is the closed set of supported question kinds. Grading
// dispatches on it exhaustively, so adding a member means touching
// survey.Grade as well.
type QuestionType string

const (
	QuestionText         QuestionType = "text"
	QuestionChooseOne    QuestionType = "choose_one"
	QuestionChooseMany   QuestionType = "choose_many"
	QuestionDropdownList QuestionType = "dropdown_list"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionChooseOne, QuestionChooseMany, QuestionDropdownList:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Survey struct {
	ID                string     `json:"id,omitempty"`
	OwnerID           string     `json:"owner_id,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	IsAnonymous       bool       `json:"is_anonymous"`
	IsQuiz            bool       `json:"is_quiz"`
	ShowResults       bool       `json:"show_results"`
	ShowScore         bool       `json:"show_score"`
	SendMultipleTimes bool       `json:"send_multiple_times"`
	IsFinished        bool       `json:"is_finished"`
	ExpireAt          *time.Time `json:"expire_datetime,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	Questions         []Question `json:"questions"`
}

// Closed reports whether the survey no longer accepts submissions.
func (s *Survey) Closed(now time.Time) bool {
	if s.IsFinished {
		return true
	}
	return s.ExpireAt != nil && s.ExpireAt.Before(now)
}

type Question struct {
	ID          string           `json:"id,omitempty"`
	SurveyID    string           `json:"survey_id,omitempty"`
	Title       string           `json:"title"`
	Score       int              `json:"score"`
	Type        QuestionType     `json:"type"`
	IsRequired  bool             `json:"is_required"`
	ShowAnswers bool             `json:"show_answers"`
	Answers     []QuestionAnswer `json:"answers"`
}

// QuestionAnswer is an author-defined canonical option, not a
// respondent's answer.
type QuestionAnswer struct {
	ID         string `json:"id,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// SurveyResult is one submission attempt. UserID is empty for
// anonymous submissions.
type SurveyResult struct {
	ID        string           `json:"id"`
	SurveyID  string           `json:"survey_id"`
	UserID    string           `json:"user_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	User      *User            `json:"user,omitempty"`
	Survey    *Survey          `json:"survey,omitempty"`
	Questions []QuestionResult `json:"questions"`
}

type QuestionResult struct {
	ID         string         `json:"id,omitempty"`
	ResultID   string         `json:"result_id,omitempty"`
	QuestionID string         `json:"question_id"`
	Answers    []AnswerResult `json:"answers"`
}

// AnswerResult holds one respondent answer. IsCorrect is always
// derived from the canonical answers at submission time, never taken
// from the request.
type AnswerResult struct {
	ID               string `json:"id,omitempty"`
	QuestionResultID string `json:"question_result_id,omitempty"`
	Text             string `json:"text"`
	IsCorrect        bool   `json:"is_correct"`
}

// SurveyDocument tracks the exported spreadsheet for a survey. At most
// one exists per survey; RefreshAfter throttles regeneration.
type SurveyDocument struct {
	ID           string    `json:"id"`
	SurveyID     string    `json:"survey_id"`
	Title        string    `json:"title"`
	RefreshAfter time.Time `json:"refresh_after"`
}
