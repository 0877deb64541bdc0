package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/importer"
	"github.com/diewo77/traceflow/internal/services"
)

// maxUploadBytes bounds multipart uploads; article lists, inventory logs and
// certificate PDFs all stay well under this.
const maxUploadBytes = 50 << 20

func pathID(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// serviceError maps service-layer error types onto HTTP responses so every
// handler reports failures the same way.
func serviceError(w http.ResponseWriter, err error) {
	var badInput *services.ValidationError
	if errors.As(err, &badInput) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", badInput.Error())
		return
	}
	var dup *services.DuplicateError
	if errors.As(err, &dup) {
		httpx.JSONError(w, http.StatusConflict, "duplicate", dup.Error())
		return
	}
	var unavailable *services.ChargeNotAvailableError
	if errors.As(err, &unavailable) {
		httpx.JSONError(w, http.StatusConflict, "charge_not_available", unavailable.Error())
		return
	}
	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", notFound.Error())
		return
	}
	var conflict *services.ReconciliationConflictError
	if errors.As(err, &conflict) {
		httpx.JSONError(w, http.StatusConflict, "reconciliation_conflict", conflict.Error())
		return
	}
	var invalid *importer.ValidationError
	if errors.As(err, &invalid) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_file", invalid.Error())
		return
	}
	var persist *services.PersistenceError
	if errors.As(err, &persist) {
		httpx.JSONError(w, http.StatusInternalServerError, "persistence_failed", persist.Error())
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

// uploadedFile extracts the "file" part of a multipart upload. On failure it
// has already written the error response and returns ok=false.
func uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", nil)
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "file_missing", nil)
		return nil, nil, false
	}
	return file, header, true
}
