package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/pollwise/pollwise/app"
	"github.com/pollwise/pollwise/httpx"
	"github.com/pollwise/pollwise/log"
	"github.com/pollwise/pollwise/model"
	"github.com/pollwise/pollwise/routes/middlewares"
)

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if survey.Title == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "survey.create.title", "missing survey title")
			return
		}

		surveyID, err := app.Surveys.Create(r.Context(), middlewares.UserID(r), &survey)
		if err != nil {
			httpx.WriteError(w, "survey.create", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": surveyID,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Surveys.ListByOwner(r.Context(), middlewares.UserID(r))
		if err != nil {
			httpx.LogInternalError(w, "survey.list", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func ListPassedSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submissions, err := app.Surveys.ListAnsweredBy(r.Context(), middlewares.UserID(r))
		if err != nil {
			httpx.LogInternalError(w, "survey.list_passed", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"submissions": submissions,
		})
	}
}

func GetSurveyByID(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID := chi.URLParam(r, "id")
		userID := middlewares.UserID(r)

		survey, err := app.Surveys.ByID(r.Context(), surveyID)
		if err != nil {
			httpx.WriteError(w, "survey.get", err)
			return
		}

		if survey.OwnerID != userID || userID == "" {
			if err := app.Surveys.CheckAccess(r.Context(), survey, userID); err != nil {
				httpx.WriteError(w, "survey.get.access", err)
				return
			}
			hideAnswerKey(survey)
		}

		render.JSON(w, r, survey)
	}
}

func SubmitAnswers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID := chi.URLParam(r, "id")
		userID := middlewares.UserID(r)

		body := struct {
			Questions []model.QuestionResult `json:"questions"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		survey, err := app.Surveys.ByID(r.Context(), surveyID)
		if err != nil {
			httpx.WriteError(w, "survey.submit.get", err)
			return
		}
		if err := app.Surveys.CheckAccess(r.Context(), survey, userID); err != nil {
			httpx.WriteError(w, "survey.submit.access", err)
			return
		}

		// anonymous surveys never record identity, even when present
		if survey.IsAnonymous {
			userID = ""
		}

		resultID, err := app.Surveys.Submit(r.Context(), surveyID, userID, body.Questions)
		if err != nil {
			httpx.WriteError(w, "survey.submit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": resultID,
		})
	}
}

func GetSurveyResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID := chi.URLParam(r, "id")

		survey, err := ownedSurvey(app, r, surveyID)
		if err != nil {
			httpx.WriteError(w, "survey.results", err)
			return
		}

		results, err := app.Surveys.Results(r.Context(), surveyID)
		if err != nil {
			httpx.LogInternalError(w, "survey.results.load", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"survey":  survey,
			"results": results,
		})
	}
}

func FinishSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID := chi.URLParam(r, "id")

		if _, err := ownedSurvey(app, r, surveyID); err != nil {
			httpx.WriteError(w, "survey.finish", err)
			return
		}

		if err := app.Surveys.Finish(r.Context(), surveyID); err != nil {
			httpx.WriteError(w, "survey.finish.update", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ownedSurvey loads a survey and verifies the requester owns it.
func ownedSurvey(app app.App, r *http.Request, surveyID string) (*model.Survey, error) {
	survey, err := app.Surveys.ByID(r.Context(), surveyID)
	if err != nil {
		return nil, err
	}
	if survey.OwnerID != middlewares.UserID(r) {
		return nil, model.ErrNotOwner
	}
	return survey, nil
}

// hideAnswerKey strips correctness flags from questions that do not
// expose them to respondents.
func hideAnswerKey(survey *model.Survey) {
	for i := range survey.Questions {
		q := &survey.Questions[i]
		if q.ShowAnswers {
			continue
		}
		for j := range q.Answers {
			q.Answers[j].IsCorrect = false
		}
	}
}
