package handlers

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/importer"
	"github.com/diewo77/traceflow/internal/models"
	"github.com/diewo77/traceflow/internal/services"
)

// UpdateHandler drives re-import reconciliation: preview computes the diff
// between an uploaded file and stored project state, apply commits the
// user-accepted subset.
type UpdateHandler struct {
	DB    *gorm.DB
	Store services.FileStore
}

func NewUpdateHandler(db *gorm.DB, store services.FileStore) *UpdateHandler {
	return &UpdateHandler{DB: db, Store: store}
}

func (h *UpdateHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects/{id}/updates/preview", h.Preview)
	mux.HandleFunc("POST /api/projects/{id}/updates/apply", h.Apply)
}

// Preview takes a multipart upload with a "source" field of either
// "article_list" or "inventory" and returns the proposed updates. Nothing is
// written.
func (h *UpdateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if _, err := services.GetProject(h.DB, id); err != nil {
		serviceError(w, err)
		return
	}
	file, _, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	current, err := services.ArticlesForProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}

	var updates []models.ArticleUpdate
	switch models.UpdateSource(r.FormValue("source")) {
	case models.SourceArticleList:
		rows, err := importer.ReadArticleList(file)
		if err != nil {
			serviceError(w, err)
			return
		}
		updates = services.CompareArticleList(current, rows)
	case models.SourceInventory:
		rows, err := importer.ReadInventory(file)
		if err != nil {
			serviceError(w, err)
			return
		}
		updates = services.CompareInventory(current, rows)
	default:
		httpx.JSONError(w, http.StatusBadRequest, "invalid_source", "source must be article_list or inventory")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updates": updates, "count": len(updates)})
}

func (h *UpdateHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		Updates []models.ArticleUpdate `json:"updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(input.Updates) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "no_updates_selected", nil)
		return
	}
	for _, u := range input.Updates {
		if !u.Field.Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_field", string(u.Field))
			return
		}
	}
	result, err := services.ApplyUpdates(h.DB, h.Store, id, input.Updates)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
