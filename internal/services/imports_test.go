package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/importer"
	"github.com/diewo77/traceflow/internal/models"
)

func TestSaveArticleListPreservesChargeOnReimport(t *testing.T) {
	db := setupServiceTestDB(t)
	project := seedProject(t, db)

	rows := []importer.ArticleRow{
		{ArticleNumber: "A-100", Description: "Flange", Quantity: decimal.NewFromInt(2), Level: "1.1", SortOrder: 0},
	}
	if err := SaveArticleList(db, project.ID, rows, "aw"); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if err := setChargeDirect(db, project.ID, "A-100", "1.1", "C5"); err != nil {
		t.Fatalf("set charge: %v", err)
	}

	rows[0].Quantity = decimal.NewFromInt(4)
	if err := SaveArticleList(db, project.ID, rows, "aw"); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	var stored models.ProjectArticle
	if err := db.Where("project_id = ? AND article_number = ?", project.ID, "A-100").First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.ChargeNumber != "C5" {
		t.Fatalf("re-import must preserve the charge, got %q", stored.ChargeNumber)
	}
	if !stored.Quantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("re-import must refresh the quantity, got %s", stored.Quantity)
	}
}

// setChargeDirect sets a charge without candidate validation, for fixtures
// only.
func setChargeDirect(db *gorm.DB, projectID uint, articleNumber, level, charge string) error {
	return db.Model(&models.ProjectArticle{}).
		Where("project_id = ? AND article_number = ? AND level = ?", projectID, articleNumber, level).
		Update("charge_number", charge).Error
}

func TestArticlesForProjectKeepsSpreadsheetOrder(t *testing.T) {
	db := setupServiceTestDB(t)
	project := seedProject(t, db)

	// inserted out of order on purpose
	seedArticle(t, db, project.ID, "A-300", "2.1", "", 2)
	seedArticle(t, db, project.ID, "A-100", "1.1", "", 0)
	seedArticle(t, db, project.ID, "A-200", "1.2", "", 1)

	views, err := ArticlesForProject(db, project.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"A-100", "A-200", "A-300"}
	if len(views) != len(want) {
		t.Fatalf("expected %d articles, got %d", len(want), len(views))
	}
	for i, number := range want {
		if views[i].ArticleNumber != number {
			t.Fatalf("position %d: expected %s, got %s", i, number, views[i].ArticleNumber)
		}
	}
}

func TestArticlesForProjectJoinsGlobalNotes(t *testing.T) {
	db := setupServiceTestDB(t)
	project := seedProject(t, db)
	seedArticle(t, db, project.ID, "A-100", "1.1", "", 0)
	if err := UpdateNotes(db, "A-100", "pickled surface", "aw"); err != nil {
		t.Fatalf("notes: %v", err)
	}

	views, err := ArticlesForProject(db, project.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(views) != 1 || views[0].GlobalNotes != "pickled surface" {
		t.Fatalf("expected joined notes, got %+v", views)
	}
}

func TestSaveInventoryReplacesPreviousImport(t *testing.T) {
	db := setupServiceTestDB(t)
	project := seedProject(t, db)

	first := []importer.InventoryRow{
		{ArticleNumber: "A-100", ChargeNumber: "C1", Quantity: decimal.NewFromInt(10)},
		{ArticleNumber: "B-200", ChargeNumber: "C2", Quantity: decimal.NewFromInt(5)},
	}
	if err := SaveInventory(db, project.ID, first); err != nil {
		t.Fatalf("first import: %v", err)
	}
	second := []importer.InventoryRow{
		{ArticleNumber: "A-100", ChargeNumber: "C9", Quantity: decimal.NewFromInt(10)},
	}
	if err := SaveInventory(db, project.ID, second); err != nil {
		t.Fatalf("second import: %v", err)
	}

	var items []models.InventoryItem
	if err := db.Where("project_id = ?", project.ID).Find(&items).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 || items[0].ChargeNumber != "C9" {
		t.Fatalf("expected replacement import, got %+v", items)
	}
}

func TestSaveArticleListRejectsEmptyImport(t *testing.T) {
	db := setupServiceTestDB(t)
	project := seedProject(t, db)
	if err := SaveArticleList(db, project.ID, nil, "aw"); err == nil {
		t.Fatal("expected error for empty import")
	}
}
