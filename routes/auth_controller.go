package routes

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/pollwise/pollwise/app"
	"github.com/pollwise/pollwise/httpx"
	"github.com/pollwise/pollwise/log"
	"github.com/pollwise/pollwise/model"
)

var reEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// sanitizeEmail normalizes an address for storage and lookup, and
// reports whether it is well-formed.
func sanitizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	return email, reEmail.MatchString(email)
}

func SendCode(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Email string `json:"email"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		email, ok := sanitizeEmail(body.Email)
		if !ok {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "auth.send_code.email", "invalid email address")
			return
		}

		code, err := app.Codes.Issue(r.Context(), email)
		if err != nil {
			httpx.WriteError(w, "auth.send_code.issue", err)
			return
		}

		// delivery is best effort; the code stays valid either way
		app.Tasks.Enqueue("mail.send_code "+email, func(ctx context.Context) error {
			return app.Mailer.Send(
				email,
				fmt.Sprintf("%s verification code", app.ProjectTitle),
				fmt.Sprintf("Your verification code is: %s\n\nIt expires in %d minutes.", code, int(app.CodeTTL.Minutes())),
			)
		})

		w.WriteHeader(http.StatusNoContent)
	}
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Name    string `json:"name"`
			Surname string `json:"surname"`
			Email   string `json:"email"`
			Code    string `json:"code"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		email, ok := sanitizeEmail(body.Email)
		if !ok {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "auth.register.email", "invalid email address")
			return
		}

		if err := checkCode(app, r, email, body.Code); err != nil {
			httpx.WriteError(w, "auth.register.code", err)
			return
		}

		user, err := app.Users.Create(r.Context(), body.Name, body.Surname, email)
		if err != nil {
			httpx.WriteError(w, "auth.register.create", err)
			return
		}

		if err := app.Codes.ConsumeAll(r.Context(), email); err != nil {
			httpx.LogInternalError(w, "auth.register.consume", err)
			return
		}

		pair, err := app.Tokens.IssuePair(user.ID)
		if err != nil {
			httpx.LogInternalError(w, "auth.register.token", err)
			return
		}

		setRefreshCookie(w, app, pair.Refresh)
		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"user":  user,
			"token": pair,
		})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		email, ok := sanitizeEmail(body.Email)
		if !ok {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "auth.login.email", "invalid email address")
			return
		}

		if err := checkCode(app, r, email, body.Code); err != nil {
			httpx.WriteError(w, "auth.login.code", err)
			return
		}

		user, err := app.Users.ByEmail(r.Context(), email)
		if err != nil {
			httpx.WriteError(w, "auth.login.user", err)
			return
		}

		if err := app.Codes.ConsumeAll(r.Context(), email); err != nil {
			httpx.LogInternalError(w, "auth.login.consume", err)
			return
		}

		pair, err := app.Tokens.IssuePair(user.ID)
		if err != nil {
			httpx.LogInternalError(w, "auth.login.token", err)
			return
		}

		setRefreshCookie(w, app, pair.Refresh)
		render.JSON(w, r, map[string]any{
			"user":  user,
			"token": pair,
		})
	}
}

func RefreshToken(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("refresh_token")
		if err != nil {
			httpx.WriteError(w, "auth.refresh.cookie", model.ErrUnauthenticated)
			return
		}

		pair, err := app.Tokens.Refresh(cookie.Value)
		if err != nil {
			httpx.WriteError(w, "auth.refresh", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"token": pair,
		})
	}
}

func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     "refresh_token",
			Value:    "",
			Path:     "/api/auth",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func checkCode(app app.App, r *http.Request, email, code string) error {
	ok, err := app.Codes.Validate(r.Context(), email, code)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrInvalidCode
	}
	return nil
}

func setRefreshCookie(w http.ResponseWriter, app app.App, refresh string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refresh,
		Path:     "/api/auth",
		MaxAge:   int(app.RefreshTokenTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
