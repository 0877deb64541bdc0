package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/httpx"
	"github.com/diewo77/traceflow/internal/models"
	"github.com/diewo77/traceflow/internal/services"
)

func setupHandlerTest(t *testing.T) (*gorm.DB, *http.ServeMux) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Project{}, &models.GlobalArticle{}, &models.ProjectArticle{},
		&models.InventoryItem{}, &models.Certificate{}, &models.CertificateType{},
		&models.ProjectCertificateType{}, &models.ArticleNotesAudit{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := services.DiskStore{BaseDir: t.TempDir()}
	mux := http.NewServeMux()
	NewProjectHandler(db, store).Register(mux)
	NewImportHandler(db).Register(mux)
	NewMatchingHandler(db).Register(mux)
	NewUpdateHandler(db, store).Register(mux)
	NewNotesHandler(db).Register(mux)
	NewCertificateHandler(db, store).Register(mux)
	return db, mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestProjectCreateGetAndDuplicate(t *testing.T) {
	_, mux := setupHandlerTest(t)

	w := doJSON(t, mux, http.MethodPost, "/api/projects",
		`{"project_name":"Vessel 7","order_number":"ORD-100","customer":"Nordkraft AB"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/projects/%d", created.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodPost, "/api/projects",
		`{"project_name":"Other","order_number":"ORD-100","customer":"Kund"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate order number, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestProjectCreateMissingNameReturns400(t *testing.T) {
	_, mux := setupHandlerTest(t)
	w := doJSON(t, mux, http.MethodPost, "/api/projects",
		`{"order_number":"ORD-9","customer":"Kund"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
	var resp httpx.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "validation_failed" {
		t.Fatalf("expected validation_failed, got %+v", resp)
	}
}

func TestProjectGetUnknownReturns404(t *testing.T) {
	_, mux := setupHandlerTest(t)
	w := doJSON(t, mux, http.MethodGet, "/api/projects/999", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestNotesEndpointWritesAudit(t *testing.T) {
	db, mux := setupHandlerTest(t)

	w := doJSON(t, mux, http.MethodPut, "/api/articles/A-100/notes",
		`{"notes":"pickle before assembly","changed_by":"aw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.ArticleNotesAudit{}).Where("article_number = ?", "A-100").Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 audit row, got %d", count)
	}

	w = doJSON(t, mux, http.MethodGet, "/api/articles/A-100/notes/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Count != 1 {
		t.Fatalf("unexpected history response: %s (%v)", w.Body.String(), err)
	}
}

func TestApplyUpdatesEndpointRejectsInvalidField(t *testing.T) {
	db, mux := setupHandlerTest(t)
	project := models.Project{ProjectName: "P", OrderNumber: "ORD-1", Customer: "K"}
	if err := services.CreateProject(db, &project); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	w := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/projects/%d/updates/apply", project.ID),
		`{"updates":[{"article_number":"A-100","field":"serial_number","old_value":"1","new_value":"2"}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestMatchingSelectRejectsUnlistedCharge(t *testing.T) {
	db, mux := setupHandlerTest(t)
	project := models.Project{ProjectName: "P", OrderNumber: "ORD-1", Customer: "K"}
	if err := services.CreateProject(db, &project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	article := models.ProjectArticle{ProjectID: project.ID, ArticleNumber: "A-100", Level: "1.1"}
	if err := db.Create(&article).Error; err != nil {
		t.Fatalf("seed article: %v", err)
	}
	item := models.InventoryItem{ProjectID: project.ID, ArticleNumber: "A-100", ChargeNumber: "C1"}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	w := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/projects/%d/matching/select", project.ID),
		`{"article_number":"A-100","level":"1.1","charge_number":"C9"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/projects/%d/matching/select", project.ID),
		`{"article_number":"A-100","level":"1.1","charge_number":"C1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestMatchingEndpointReportsStatistics(t *testing.T) {
	db, mux := setupHandlerTest(t)
	project := models.Project{ProjectName: "P", OrderNumber: "ORD-1", Customer: "K"}
	if err := services.CreateProject(db, &project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if err := db.Create(&models.ProjectArticle{ProjectID: project.ID, ArticleNumber: "A-100", Level: "1.1"}).Error; err != nil {
		t.Fatalf("seed article: %v", err)
	}
	if err := db.Create(&models.InventoryItem{ProjectID: project.ID, ArticleNumber: "A-100", ChargeNumber: "C1"}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	w := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/projects/%d/matching", project.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Statistics services.MatchStatistics `json:"statistics"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Statistics.Total != 1 || resp.Statistics.Matched != 1 {
		t.Fatalf("unexpected statistics: %+v", resp.Statistics)
	}
}
