package main

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/handlers"
	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/services"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux *http.ServeMux
	db  *gorm.DB
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, store services.FileStore) *App {
	app := &App{
		mux: http.NewServeMux(),
		db:  db,
	}

	handlers.NewProjectHandler(db, store).Register(app.mux)
	handlers.NewImportHandler(db).Register(app.mux)
	handlers.NewMatchingHandler(db).Register(app.mux)
	handlers.NewUpdateHandler(db, store).Register(app.mux)
	handlers.NewNotesHandler(db).Register(app.mux)
	handlers.NewCertificateHandler(db, store).Register(app.mux)

	app.mux.HandleFunc("GET /health", app.health)
	app.mux.HandleFunc("GET /healthz", app.health)

	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "database_unreachable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
