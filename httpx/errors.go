package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pollwise/pollwise/log"
	"github.com/pollwise/pollwise/model"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// WriteError translates a domain error into the matching HTTP response
// and logs it under code. Unrecognized errors become an opaque 500.
func WriteError(w http.ResponseWriter, code string, err error) {
	var incomplete *model.IncompleteSubmissionError
	switch {
	case errors.Is(err, model.ErrNotFound):
		LogStatus(w, http.StatusNotFound, log.DebugLevel, code)
	case errors.Is(err, model.ErrUnauthenticated),
		errors.Is(err, model.ErrInvalidCode),
		errors.Is(err, model.ErrTokenInvalid),
		errors.Is(err, model.ErrTokenExpired):
		LogStatusMsg(w, http.StatusUnauthorized, log.DebugLevel, code, "%s", err)
	case errors.Is(err, model.ErrNotOwner),
		errors.Is(err, model.ErrSurveyClosed),
		errors.Is(err, model.ErrAlreadySubmitted):
		LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, code, "%s", err)
	case errors.Is(err, model.ErrRateLimited):
		LogStatusMsg(w, http.StatusTooManyRequests, log.InfoLevel, code, "%s", err)
	case errors.Is(err, model.ErrEmailTaken):
		LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, "%s", err)
	case errors.As(err, &incomplete):
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
	case errors.Is(err, model.ErrTooSoon),
		errors.Is(err, model.ErrInvalidQuestionType):
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
	default:
		LogInternalError(w, code, err)
	}
}
