package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/services"
)

type CertificateHandler struct {
	DB    *gorm.DB
	Store services.FileStore
}

func NewCertificateHandler(db *gorm.DB, store services.FileStore) *CertificateHandler {
	return &CertificateHandler{DB: db, Store: store}
}

func (h *CertificateHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects/{id}/certificates", h.Upload)
	mux.HandleFunc("GET /api/projects/{id}/certificates", h.List)
	mux.HandleFunc("DELETE /api/certificates/{cert_id}", h.Delete)
	mux.HandleFunc("GET /api/projects/{id}/certificate-types", h.ListTypes)
	mux.HandleFunc("POST /api/projects/{id}/certificate-types", h.AddType)
	mux.HandleFunc("PUT /api/projects/{id}/certificate-types/order", h.ReorderTypes)
}

func (h *CertificateHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	pageCount := 0
	if v := r.FormValue("page_count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			pageCount = n
		}
	}
	in := services.RegisterCertificateInput{
		ProjectID:       id,
		ArticleNumber:   strings.TrimSpace(r.FormValue("article_number")),
		OriginalName:    header.Filename,
		CertificateType: r.FormValue("certificate_type"),
		PageCount:       pageCount,
	}
	cert, err := services.RegisterCertificate(h.DB, h.Store, in, file)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cert)
}

func (h *CertificateHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if article := r.URL.Query().Get("article"); article != "" {
		certs, err := services.CertificatesForArticle(h.DB, id, article)
		if err != nil {
			serviceError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": certs, "count": len(certs)})
		return
	}
	certs, err := services.CertificatesForProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": certs, "count": len(certs)})
}

func (h *CertificateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	certID := r.PathValue("cert_id")
	if certID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	warnings, err := services.DeleteCertificate(h.DB, h.Store, certID)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": certID, "warnings": warnings})
}

func (h *CertificateHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	types, err := services.CertificateTypesForProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": types, "count": len(types)})
}

func (h *CertificateHandler) AddType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		TypeName string `json:"type_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	input.TypeName = strings.TrimSpace(input.TypeName)
	if input.TypeName == "" {
		httpx.JSONError(w, http.StatusBadRequest, "type_name_required", nil)
		return
	}
	if err := services.AddProjectCertificateType(h.DB, id, input.TypeName); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"type_name": input.TypeName})
}

func (h *CertificateHandler) ReorderTypes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var input struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(input.Order) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "order_required", nil)
		return
	}
	if err := services.ReorderProjectCertificateTypes(h.DB, id, input.Order); err != nil {
		serviceError(w, err)
		return
	}
	types, err := services.CertificateTypesForProject(h.DB, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": types})
}
