package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pollwise/pollwise/app"
	"github.com/pollwise/pollwise/codes"
	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/database"
	"github.com/pollwise/pollwise/export"
	"github.com/pollwise/pollwise/log"
	"github.com/pollwise/pollwise/mail"
	"github.com/pollwise/pollwise/routes"
	"github.com/pollwise/pollwise/survey"
	"github.com/pollwise/pollwise/tasks"
	"github.com/pollwise/pollwise/token"
	"github.com/pollwise/pollwise/users"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	mailer, err := mail.New(cfg)
	if err != nil {
		log.Fatal("main.mail:", err)
	}
	defer mailer.Close()

	dispatcher := tasks.NewDispatcher(cfg.Workers, 64)

	codeStore := codes.NewStore(db, cfg)
	surveyStore := survey.NewStore(db)

	app := app.App{
		Config:    cfg,
		DB:        db,
		Users:     users.NewStore(db),
		Codes:     codeStore,
		Tokens:    token.NewService(cfg),
		Surveys:   surveyStore,
		Documents: export.NewManager(db, surveyStore, dispatcher, cfg),
		Mailer:    mailer,
		Tasks:     dispatcher,
	}

	err = dispatcher.Schedule("@every 1m", "codes.sweep", func(ctx context.Context) error {
		n, err := codeStore.SweepExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Debugf("codes.sweep: deleted %d expired codes", n)
		}
		return nil
	})
	if err != nil {
		log.Fatal("main.schedule:", err)
	}

	err = runServer(cfg, routes.Wire(app))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error("main.tasks.shutdown:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-stop
		log.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		// ListenAndServe returns as soon as Shutdown starts; handlers
		// keep draining until Shutdown itself returns
		<-shutdownDone
	}
	return err
}
