package handlers

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/services"
)

// MatchingHandler exposes charge matching: computing candidates per article
// and recording the user's pick for the ambiguous ones.
type MatchingHandler struct {
	DB *gorm.DB
}

func NewMatchingHandler(db *gorm.DB) *MatchingHandler { return &MatchingHandler{DB: db} }

func (h *MatchingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects/{id}/matching", h.Match)
	mux.HandleFunc("POST /api/projects/{id}/matching/select", h.Select)
}

func (h *MatchingHandler) Match(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	results, err := services.MatchProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"results":    results,
		"statistics": services.Statistics(results),
	})
}

func (h *MatchingHandler) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		ArticleNumber string `json:"article_number"`
		Level         string `json:"level"`
		ChargeNumber  string `json:"charge_number"`
		BatchNumber   string `json:"batch_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.ArticleNumber == "" || input.ChargeNumber == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", "article_number and charge_number are required")
		return
	}
	err := services.ApplySelection(h.DB, id, input.ArticleNumber, input.Level, input.ChargeNumber, input.BatchNumber)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"article_number": input.ArticleNumber,
		"charge_number":  input.ChargeNumber,
	})
}
