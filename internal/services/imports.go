package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/importer"
	"github.com/diewo77/traceflow/internal/models"
)

// SaveArticleList persists a normalized article-list import for a project in
// one transaction. Rows are upserted on (project, article, level); an already
// selected charge on an existing row is preserved, charge changes only ever
// go through reconciliation. The shared global article records are created or
// refreshed alongside.
func SaveArticleList(db *gorm.DB, projectID uint, rows []importer.ArticleRow, importedBy string) error {
	if len(rows) == 0 {
		return &ValidationError{Msg: "article list import is empty"}
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := upsertGlobalArticle(tx, row.ArticleNumber, row.Description, importedBy); err != nil {
				return err
			}
			var existing models.ProjectArticle
			err := tx.Where("project_id = ? AND article_number = ? AND level = ?",
				projectID, row.ArticleNumber, row.Level).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				article := models.ProjectArticle{
					ProjectID:     projectID,
					ArticleNumber: row.ArticleNumber,
					Level:         row.Level,
					Description:   row.Description,
					Quantity:      row.Quantity,
					ParentArticle: row.ParentArticle,
					SortOrder:     row.SortOrder,
				}
				if err := tx.Create(&article).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				updates := map[string]any{
					"description":    row.Description,
					"quantity":       row.Quantity,
					"parent_article": row.ParentArticle,
					"sort_order":     row.SortOrder,
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "save article list", Err: err}
	}
	return nil
}

// SaveInventory replaces a project's inventory rows with a fresh import, in
// one transaction. The inventory log is a full export, so replacement is the
// correct semantic; charge matching reads the result.
func SaveInventory(db *gorm.DB, projectID uint, rows []importer.InventoryRow) error {
	if len(rows) == 0 {
		return &ValidationError{Msg: "inventory import is empty"}
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.InventoryItem{}).Error; err != nil {
			return err
		}
		for _, row := range rows {
			item := models.InventoryItem{
				ProjectID:     projectID,
				ArticleNumber: row.ArticleNumber,
				ChargeNumber:  row.ChargeNumber,
				Quantity:      row.Quantity,
				BatchID:       row.BatchID,
				Location:      row.Location,
				ReceivedAt:    row.ReceivedAt,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "save inventory", Err: err}
	}
	return nil
}
