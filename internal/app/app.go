package app

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/editing"
	"github.com/inkwell-app/inkwell/internal/flags"
	"github.com/inkwell-app/inkwell/internal/logger"
	"github.com/inkwell-app/inkwell/internal/repository"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config   *config.Config
	Store    repository.EntryStore
	Flags    *flags.Store // nil when no flag file is configured
	Sessions *editing.Manager
	Auth     auth.Provider

	BaseCtx context.Context
	Cancel  context.CancelFunc

	janitorDone <-chan struct{}
}

func New(cfg *config.Config, store repository.EntryStore, flagStore *flags.Store, sessions *editing.Manager, authProvider auth.Provider) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("entry store is nil")
	}
	if sessions == nil {
		return nil, errors.New("session manager is nil")
	}
	if authProvider == nil {
		return nil, errors.New("auth provider is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:   cfg,
		Store:    store,
		Flags:    flagStore,
		Sessions: sessions,
		Auth:     authProvider,
		BaseCtx:  ctx,
		Cancel:   cancel,
	}, nil
}

// StartBackground launches the flag-file watcher and the session janitor.
func (a *App) StartBackground() error {
	if a.Flags != nil {
		if err := a.Flags.Watch(a.BaseCtx); err != nil {
			return err
		}
	}
	a.janitorDone = a.Sessions.StartJanitor(a.BaseCtx, a.Config.Autosave.JanitorInterval)
	return nil
}

// Shutdown cancels background work and waits for the janitor's final flush,
// bounded by the configured shutdown timeout.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.janitorDone == nil {
		return
	}
	select {
	case <-a.janitorDone:
	case <-time.After(a.Config.Server.ShutDownTimeout):
		logger.WithComponent("app").Warn("janitor did not finish final flush before shutdown timeout")
	}
}
