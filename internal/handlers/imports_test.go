package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/diewo77/traceflow/internal/models"
	"github.com/diewo77/traceflow/internal/services"
)

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("field %s: %v", k, err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportArticleListEndToEnd(t *testing.T) {
	db, mux := setupHandlerTest(t)
	project := models.Project{ProjectName: "P", OrderNumber: "ORD-1", Customer: "K"}
	if err := services.CreateProject(db, &project); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	workbook := buildWorkbook(t, [][]any{
		{"Artikelnummer", "Benämning", "Antal", "Nivå"},
		{"ASM-1", "Assembly", "1", "0"},
		{"A-100", "Flange", "2", "1"},
	})
	req := uploadRequest(t, fmt.Sprintf("/api/projects/%d/import/articles", project.ID),
		map[string]string{"imported_by": "aw"}, "nivalista.xlsx", workbook)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.ProjectArticle{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 imported articles, got %d", count)
	}
	var flange models.ProjectArticle
	if err := db.Where("article_number = ?", "A-100").First(&flange).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if flange.Level != "1.1" || flange.ParentArticle != "ASM-1" {
		t.Fatalf("depth conversion not applied: %+v", flange)
	}
}

func TestImportInventoryRejectsGarbageFile(t *testing.T) {
	db, mux := setupHandlerTest(t)
	project := models.Project{ProjectName: "P", OrderNumber: "ORD-1", Customer: "K"}
	if err := services.CreateProject(db, &project); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	req := uploadRequest(t, fmt.Sprintf("/api/projects/%d/import/inventory", project.ID),
		nil, "lagerlogg.xlsx", []byte("this is not a workbook"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestImportRejectsUnknownProject(t *testing.T) {
	_, mux := setupHandlerTest(t)
	workbook := buildWorkbook(t, [][]any{
		{"Artikelnummer", "Antal"},
		{"A-100", "1"},
	})
	req := uploadRequest(t, "/api/projects/42/import/articles", nil, "nivalista.xlsx", workbook)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", w.Code, w.Body.String())
	}
}
