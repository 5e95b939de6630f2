package model

import (
	"errors"
	"fmt"
	"strings"
)

// Every error below maps to a user-facing rejection; none is fatal.
// httpx translates them to response statuses.
var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("too many active verification codes")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrInvalidCode         = errors.New("invalid or expired verification code")
	ErrTokenInvalid        = errors.New("malformed or badly signed token")
	ErrTokenExpired        = errors.New("token expired")
	ErrSurveyClosed        = errors.New("survey is closed")
	ErrAlreadySubmitted    = errors.New("survey already submitted")
	ErrTooSoon             = errors.New("document was refreshed too recently")
	ErrNotOwner            = errors.New("not the survey owner")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidQuestionType = errors.New("invalid question type")
)

// IncompleteSubmissionError rejects a submission that left required
// questions unanswered. It names the offending question ids so the
// client can highlight them.
type IncompleteSubmissionError struct {
	QuestionIDs []string
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("required questions not answered: %s", strings.Join(e.QuestionIDs, ","))
}
