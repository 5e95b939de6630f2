package routes

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/pollwise/pollwise/app"
	"github.com/pollwise/pollwise/httpx"
)

func RefreshDocument(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID := chi.URLParam(r, "id")

		if _, err := ownedSurvey(app, r, surveyID); err != nil {
			httpx.WriteError(w, "document.refresh", err)
			return
		}

		if err := app.Documents.RequestRefresh(r.Context(), surveyID); err != nil {
			httpx.WriteError(w, "document.refresh.request", err)
			return
		}

		// the render happens in the background
		w.WriteHeader(http.StatusAccepted)
	}
}

func DownloadDocument(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID := chi.URLParam(r, "id")

		if _, err := ownedSurvey(app, r, surveyID); err != nil {
			httpx.WriteError(w, "document.download", err)
			return
		}

		doc, err := app.Documents.BySurvey(r.Context(), surveyID)
		if err != nil {
			httpx.WriteError(w, "document.download.get", err)
			return
		}

		// the render may not have run yet
		path := app.Documents.FilePath(surveyID)
		if _, err := os.Stat(path); err != nil {
			httpx.LogNotFound(w, "document.download.file", surveyID)
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Title+`.xlsx"`)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		http.ServeFile(w, r, path)
	}
}
