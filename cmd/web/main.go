package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/AdamBeresnev/tkd-draws/internal/config"
	"github.com/AdamBeresnev/tkd-draws/internal/db"
	"github.com/AdamBeresnev/tkd-draws/internal/middleware"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	middleware.InitAuth(cfg)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	router := newRouter(cfg, database, sessionManager)

	slog.Info("server starting", "addr", "http://localhost:"+cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
