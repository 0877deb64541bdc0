package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/config"
	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/importer"
	"github.com/diewo77/traceflow/internal/services"
)

// ImportHandler receives Excel uploads and loads them into a project.
type ImportHandler struct {
	DB *gorm.DB
}

func NewImportHandler(db *gorm.DB) *ImportHandler { return &ImportHandler{DB: db} }

func (h *ImportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects/{id}/import/articles", h.ImportArticleList)
	mux.HandleFunc("POST /api/projects/{id}/import/inventory", h.ImportInventory)
}

func (h *ImportHandler) ImportArticleList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if _, err := services.GetProject(h.DB, id); err != nil {
		serviceError(w, err)
		return
	}
	file, header, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rows, err := importer.ReadArticleList(file)
	if err != nil {
		serviceError(w, err)
		return
	}
	importedBy := r.FormValue("imported_by")
	if err := services.SaveArticleList(h.DB, id, rows, importedBy); err != nil {
		serviceError(w, err)
		return
	}
	config.GetLogger().WithField("project_id", id).WithField("rows", len(rows)).
		WithField("file", header.Filename).Info("article list imported")
	httpx.JSON(w, http.StatusOK, map[string]any{"imported": len(rows)})
}

func (h *ImportHandler) ImportInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if _, err := services.GetProject(h.DB, id); err != nil {
		serviceError(w, err)
		return
	}
	file, header, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rows, err := importer.ReadInventory(file)
	if err != nil {
		serviceError(w, err)
		return
	}
	if err := services.SaveInventory(h.DB, id, rows); err != nil {
		serviceError(w, err)
		return
	}
	config.GetLogger().WithField("project_id", id).WithField("rows", len(rows)).
		WithField("file", header.Filename).Info("inventory log imported")
	httpx.JSON(w, http.StatusOK, map[string]any{"imported": len(rows)})
}
