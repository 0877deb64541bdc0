package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/models"
	"github.com/diewo77/traceflow/internal/services"
)

type ProjectHandler struct {
	DB    *gorm.DB
	Store services.FileStore
}

func NewProjectHandler(db *gorm.DB, store services.FileStore) *ProjectHandler {
	return &ProjectHandler{DB: db, Store: store}
}

func (h *ProjectHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.List)
	mux.HandleFunc("POST /api/projects", h.Create)
	mux.HandleFunc("GET /api/projects/{id}", h.Get)
	mux.HandleFunc("PUT /api/projects/{id}", h.Update)
	mux.HandleFunc("DELETE /api/projects/{id}", h.Delete)
	mux.HandleFunc("GET /api/projects/{id}/articles", h.Articles)
	mux.HandleFunc("POST /api/projects/{id}/articles/verify", h.SetVerified)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	projects, err := services.ListProjects(h.DB, limit, offset)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": projects, "count": len(projects)})
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ProjectName         string `json:"project_name"`
		OrderNumber         string `json:"order_number"`
		Customer            string `json:"customer"`
		CreatedBy           string `json:"created_by"`
		PurchaseOrderNumber string `json:"purchase_order_number"`
		Description         string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	p := models.Project{
		ProjectName:         strings.TrimSpace(input.ProjectName),
		OrderNumber:         strings.TrimSpace(input.OrderNumber),
		Customer:            strings.TrimSpace(input.Customer),
		CreatedBy:           strings.TrimSpace(input.CreatedBy),
		PurchaseOrderNumber: strings.TrimSpace(input.PurchaseOrderNumber),
		Description:         input.Description,
	}
	if err := services.CreateProject(h.DB, &p); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	p, err := services.GetProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	p, err := services.GetProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	var input struct {
		ProjectName         *string `json:"project_name"`
		Customer            *string `json:"customer"`
		PurchaseOrderNumber *string `json:"purchase_order_number"`
		Description         *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.ProjectName != nil {
		p.ProjectName = strings.TrimSpace(*input.ProjectName)
	}
	if input.Customer != nil {
		p.Customer = strings.TrimSpace(*input.Customer)
	}
	if input.PurchaseOrderNumber != nil {
		p.PurchaseOrderNumber = strings.TrimSpace(*input.PurchaseOrderNumber)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if err := services.UpdateProject(h.DB, p); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	warnings, err := services.DeleteProject(h.DB, h.Store, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id, "warnings": warnings})
}

func (h *ProjectHandler) Articles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	articles, err := services.ArticlesForProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": articles, "count": len(articles)})
}

func (h *ProjectHandler) SetVerified(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		ArticleNumber string `json:"article_number"`
		Level         string `json:"level"`
		Verified      bool   `json:"verified"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.ArticleNumber == "" {
		httpx.JSONError(w, http.StatusBadRequest, "article_number_required", nil)
		return
	}
	if err := services.SetArticleVerified(h.DB, id, input.ArticleNumber, input.Level, input.Verified); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"article_number": input.ArticleNumber, "verified": input.Verified})
}
