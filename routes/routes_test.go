package routes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollwise/pollwise/app"
	"github.com/pollwise/pollwise/codes"
	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/database"
	"github.com/pollwise/pollwise/export"
	"github.com/pollwise/pollwise/mail"
	"github.com/pollwise/pollwise/model"
	"github.com/pollwise/pollwise/survey"
	"github.com/pollwise/pollwise/tasks"
	"github.com/pollwise/pollwise/token"
	"github.com/pollwise/pollwise/users"
)

func testApp(t *testing.T) (http.Handler, app.App) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Config{
		DBUrl:            filepath.Join(dir, "test.sqlite"),
		TokenSecret:      "test-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		CodeTTL:          10 * time.Minute,
		CodeLength:       6,
		CodeDigitsOnly:   true,
		MaxActiveCodes:   3,
		ProjectTitle:     "Pollwise",
		DocumentDir:      filepath.Join(dir, "documents"),
		DocumentCooldown: 30 * time.Minute,
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mailer, err := mail.New(cfg)
	require.NoError(t, err)

	dispatcher := tasks.NewDispatcher(2, 16)
	t.Cleanup(func() { dispatcher.Shutdown(context.Background()) })

	surveyStore := survey.NewStore(db)
	a := app.App{
		Config:    cfg,
		DB:        db,
		Users:     users.NewStore(db),
		Codes:     codes.NewStore(db, cfg),
		Tokens:    token.NewService(cfg),
		Surveys:   surveyStore,
		Documents: export.NewManager(db, surveyStore, dispatcher, cfg),
		Mailer:    mailer,
		Tasks:     dispatcher,
	}
	return Wire(a), a
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func issuedCode(t *testing.T, db *sql.DB, email string) string {
	t.Helper()
	var code string
	require.NoError(t, db.QueryRow(`
		SELECT code FROM verification_code
		WHERE email = ?
		ORDER BY id DESC LIMIT 1`,
		email,
	).Scan(&code))
	return code
}

// signUp walks the full registration flow and returns an access token.
func signUp(t *testing.T, h http.Handler, a app.App, email string) string {
	t.Helper()

	w := doJSON(t, h, "POST", "/api/auth/send_code", "", map[string]string{"email": email})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, "POST", "/api/auth/register", "", map[string]string{
		"name":    "Test",
		"surname": "User",
		"email":   email,
		"code":    issuedCode(t, a.DB, email),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Token struct {
			Access string `json:"access_token"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token.Access)
	return resp.Token.Access
}

func TestRegistrationAndLoginFlow(t *testing.T) {
	h, a := testApp(t)

	w := doJSON(t, h, "POST", "/api/auth/send_code", "", map[string]string{"email": "not an email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	signUp(t, h, a, "ann@example.com")

	// registering the same address twice is a conflict
	w = doJSON(t, h, "POST", "/api/auth/send_code", "", map[string]string{"email": "ann@example.com"})
	require.Equal(t, http.StatusNoContent, w.Code)
	code := issuedCode(t, a.DB, "ann@example.com")
	w = doJSON(t, h, "POST", "/api/auth/register", "", map[string]string{
		"name": "Ann", "surname": "Again", "email": "ann@example.com", "code": code,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// but logging in with the same code works, and clears it
	w = doJSON(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email": "ann@example.com", "code": code,
	})
	require.Equal(t, http.StatusOK, w.Code)

	cookie := refreshCookie(t, w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	w = doJSON(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email": "ann@example.com", "code": code,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the refresh cookie mints a fresh access token
	req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = doJSON(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email": "ann@example.com", "code": "000000",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func surveyBody() map[string]any {
	return map[string]any{
		"title":   "Quiz",
		"is_quiz": true,
		"questions": []map[string]any{
			{
				"title": "Pick one", "type": "choose_one", "score": 1, "is_required": true,
				"answers": []map[string]any{
					{"text": "Right", "is_correct": true},
					{"text": "Wrong"},
				},
			},
		},
	}
}

func createSurvey(t *testing.T, h http.Handler, bearer string) string {
	t.Helper()
	w := doJSON(t, h, "POST", "/api/surveys", bearer, surveyBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func TestSurveyLifecycle(t *testing.T) {
	h, a := testApp(t)
	owner := signUp(t, h, a, "owner@example.com")
	respondent := signUp(t, h, a, "resp@example.com")

	w := doJSON(t, h, "POST", "/api/surveys", "", surveyBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	surveyID := createSurvey(t, h, owner)

	w = doJSON(t, h, "GET", "/api/surveys", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), surveyID)

	// respondents never see the answer key
	w = doJSON(t, h, "GET", "/api/surveys/"+surveyID, respondent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sv model.Survey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sv))
	require.Len(t, sv.Questions, 1)
	for _, answer := range sv.Questions[0].Answers {
		assert.False(t, answer.IsCorrect)
	}

	// unauthenticated access to a non-anonymous survey is denied
	w = doJSON(t, h, "GET", "/api/surveys/"+surveyID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	submission := map[string]any{
		"questions": []map[string]any{
			{"question_id": sv.Questions[0].ID, "answers": []map[string]any{{"text": "Right"}}},
		},
	}
	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/submissions", respondent, submission)
	require.Equal(t, http.StatusCreated, w.Code)

	// a second submission is denied
	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/submissions", respondent, submission)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// missing a required question fails with the offending ids
	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/submissions", owner, map[string]any{
		"questions": []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), sv.Questions[0].ID)

	// only the owner reads results
	w = doJSON(t, h, "GET", "/api/surveys/"+surveyID+"/results", respondent, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, h, "GET", "/api/surveys/"+surveyID+"/results", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "resp@example.com")

	w = doJSON(t, h, "GET", "/api/surveys/passed", respondent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quiz")

	// finishing closes the survey for further submissions
	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/finish", respondent, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/finish", owner, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	other := signUp(t, h, a, "late@example.com")
	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/submissions", other, submission)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAnonymousSurveySubmission(t *testing.T) {
	h, a := testApp(t)
	owner := signUp(t, h, a, "owner@example.com")

	body := surveyBody()
	body["is_anonymous"] = true
	w := doJSON(t, h, "POST", "/api/surveys", owner, body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, h, "GET", "/api/surveys/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sv model.Survey
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sv))

	w = doJSON(t, h, "POST", "/api/surveys/"+created.ID+"/submissions", "", map[string]any{
		"questions": []map[string]any{
			{"question_id": sv.Questions[0].ID, "answers": []map[string]any{{"text": "Wrong"}}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// no identity is recorded
	var n int
	require.NoError(t, a.DB.QueryRow(`
		SELECT COUNT(*) FROM survey_result WHERE user_id IS NOT NULL`).Scan(&n))
	assert.Zero(t, n)
}

func TestDocumentLifecycle(t *testing.T) {
	h, a := testApp(t)
	owner := signUp(t, h, a, "owner@example.com")
	other := signUp(t, h, a, "other@example.com")
	surveyID := createSurvey(t, h, owner)

	w := doJSON(t, h, "GET", "/api/surveys/"+surveyID+"/document", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/document", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/document", owner, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	// rendering is asynchronous
	path := a.Documents.FilePath(surveyID)
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	w = doJSON(t, h, "POST", "/api/surveys/"+surveyID+"/document", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, "GET", "/api/surveys/"+surveyID+"/document", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		fmt.Sprintf(`attachment; filename="%s.xlsx"`, surveyID),
		w.Header().Get("Content-Disposition"))

	// a document row without a rendered file is a plain 404, no
	// attachment headers
	require.NoError(t, os.Remove(path))
	w = doJSON(t, h, "GET", "/api/surveys/"+surveyID+"/document", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}
