package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/models"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedProject(t *testing.T, db *gorm.DB) models.Project {
	t.Helper()
	p := models.Project{ProjectName: "Pressure Vessel 7", OrderNumber: "ORD-" + t.Name(), Customer: "Nordkraft AB", CreatedBy: "tester"}
	if err := CreateProject(db, &p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func seedArticle(t *testing.T, db *gorm.DB, projectID uint, number, level, charge string, sortOrder int) models.ProjectArticle {
	t.Helper()
	a := models.ProjectArticle{
		ProjectID:     projectID,
		ArticleNumber: number,
		Level:         level,
		ChargeNumber:  charge,
		SortOrder:     sortOrder,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed article %s: %v", number, err)
	}
	if err := db.Where("article_number = ?", number).
		FirstOrCreate(&models.GlobalArticle{ArticleNumber: number}).Error; err != nil {
		t.Fatalf("seed global article %s: %v", number, err)
	}
	return a
}

func seedInventory(t *testing.T, db *gorm.DB, projectID uint, number, charge string, receivedAt *time.Time) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ProjectID:     projectID,
		ArticleNumber: number,
		ChargeNumber:  charge,
		ReceivedAt:    receivedAt,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory %s/%s: %v", number, charge, err)
	}
	return item
}

func timeAt(day int) *time.Time {
	ts := time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC)
	return &ts
}
