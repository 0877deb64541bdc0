package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/models"
	"github.com/diewo77/traceflow/internal/services"
)

// NotesHandler serves article notes and their audit history. Notes are
// global per article number, not scoped to a project.
type NotesHandler struct {
	DB *gorm.DB
}

func NewNotesHandler(db *gorm.DB) *NotesHandler { return &NotesHandler{DB: db} }

func (h *NotesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/articles/{article}/notes", h.Get)
	mux.HandleFunc("PUT /api/articles/{article}/notes", h.Update)
	mux.HandleFunc("GET /api/articles/{article}/notes/history", h.History)
}

func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	articleNumber := r.PathValue("article")
	var article models.GlobalArticle
	err := h.DB.Where("article_number = ?", articleNumber).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSON(w, http.StatusOK, models.GlobalArticle{ArticleNumber: articleNumber})
		return
	}
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	articleNumber := r.PathValue("article")
	var input struct {
		Notes     string `json:"notes"`
		ChangedBy string `json:"changed_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := services.UpdateNotes(h.DB, articleNumber, input.Notes, input.ChangedBy); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"article_number": articleNumber, "notes": input.Notes})
}

func (h *NotesHandler) History(w http.ResponseWriter, r *http.Request) {
	articleNumber := r.PathValue("article")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := services.NotesHistory(h.DB, articleNumber, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}
