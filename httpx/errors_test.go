package httpx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pollwise/pollwise/log"
	"github.com/pollwise/pollwise/model"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", model.ErrNotFound, http.StatusNotFound},
		{"unauthenticated", model.ErrUnauthenticated, http.StatusUnauthorized},
		{"invalid code", model.ErrInvalidCode, http.StatusUnauthorized},
		{"token invalid", model.ErrTokenInvalid, http.StatusUnauthorized},
		{"token expired", model.ErrTokenExpired, http.StatusUnauthorized},
		{"not owner", model.ErrNotOwner, http.StatusForbidden},
		{"survey closed", model.ErrSurveyClosed, http.StatusForbidden},
		{"already submitted", model.ErrAlreadySubmitted, http.StatusForbidden},
		{"rate limited", model.ErrRateLimited, http.StatusTooManyRequests},
		{"email taken", model.ErrEmailTaken, http.StatusConflict},
		{"incomplete", &model.IncompleteSubmissionError{QuestionIDs: []string{"q1"}}, http.StatusBadRequest},
		{"too soon", model.ErrTooSoon, http.StatusBadRequest},
		{"invalid question type", model.ErrInvalidQuestionType, http.StatusBadRequest},
		{"unknown", os.ErrPermission, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, "test.op", tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestWriteErrorNotFoundLogsCodeOnly(t *testing.T) {
	var buf bytes.Buffer
	log.Logger.SetOutput(&buf)
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.Logger.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	w := httptest.NewRecorder()
	WriteError(w, "survey.get", model.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, buf.String(), "survey.get")
	assert.NotContains(t, buf.String(), "(not found)")
}
