package internal

import (
	"context"
	"log/slog"
)

// App wires the services every handler needs.
type App struct {
	Cfg        Config
	Store      Store
	Catalog    *Catalog
	Guesses    *Guesses
	Scoring    *Scoring
	Identity   *Identity
	Tokens     *TokenIssuer
	Gate       *VisibilityGate
	Hub        *Hub
	Dispatcher *Dispatcher
	Logger     *slog.Logger
}

func NewApp(cfg Config, store Store, logger *slog.Logger) *App {
	logger = resolveLogger(logger)
	hub := NewHub(logger)
	dispatcher := NewDispatcher(hub, cfg.NotifyQueue, logger)
	gate := NewVisibilityGate(dispatcher)
	return &App{
		Cfg:        cfg,
		Store:      store,
		Catalog:    NewCatalog(store),
		Guesses:    NewGuesses(store, store, store, gate),
		Scoring:    NewScoring(store, store, store),
		Identity:   NewIdentity(store),
		Tokens:     NewTokenIssuer(cfg),
		Gate:       gate,
		Hub:        hub,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
}

// Seed makes sure the roles exist and, when configured, the admin account.
func (a *App) Seed(ctx context.Context) error {
	if err := a.Identity.EnsureRoles(ctx, RoleAdmin, RoleUser); err != nil {
		return err
	}
	if a.Cfg.AdminUsername == "" || a.Cfg.AdminPassword == "" {
		a.Logger.Info("admin seed skipped")
		return nil
	}
	u, err := a.Identity.SeedAdmin(ctx, a.Cfg.AdminUsername, a.Cfg.AdminPassword)
	if err != nil {
		return err
	}
	a.Logger.Info("admin user ready", "username", u.Username, "user_id", u.ID)
	return nil
}

// Run drains visibility notifications until ctx is done.
func (a *App) Run(ctx context.Context) {
	a.Dispatcher.Run(ctx)
	a.Hub.Close()
}
