package app

import (
	"database/sql"

	"github.com/pollwise/pollwise/codes"
	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/export"
	"github.com/pollwise/pollwise/mail"
	"github.com/pollwise/pollwise/survey"
	"github.com/pollwise/pollwise/tasks"
	"github.com/pollwise/pollwise/token"
	"github.com/pollwise/pollwise/users"
)

// App bundles every wired component. Handlers receive it by value and
// pick what they need; nothing reaches for globals.
type App struct {
	config.Config

	DB        *sql.DB
	Users     *users.Store
	Codes     *codes.Store
	Tokens    *token.Service
	Surveys   *survey.Store
	Documents *export.Manager
	Mailer    *mail.Mailer
	Tasks     *tasks.Dispatcher
}
