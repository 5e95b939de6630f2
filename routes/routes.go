package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pollwise/pollwise/app"
	"github.com/pollwise/pollwise/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/auth", func(r chi.Router) {
		r.Post("/send_code", SendCode(app))
		r.Post("/register", Register(app))
		r.Post("/login", Login(app))
		r.Post("/refresh", RefreshToken(app))
		r.Post("/logout", Logout(app))
	})

	// open to anonymous surveys; identity is picked up when present
	api.Group(func(r chi.Router) {
		r.Use(middlewares.MaybeAuthenticated(app))

		r.Get("/surveys/{id}", GetSurveyByID(app))
		r.Post("/surveys/{id}/submissions", SubmitAnswers(app))
	})

	api.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticated(app))

		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get("/surveys/passed", ListPassedSurveys(app))

		r.Get("/surveys/{id}/results", GetSurveyResults(app))
		r.Post("/surveys/{id}/finish", FinishSurvey(app))

		r.Post("/surveys/{id}/document", RefreshDocument(app))
		r.Get("/surveys/{id}/document", DownloadDocument(app))
	})

	return api
}
