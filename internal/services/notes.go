package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/models"
)

// UpdateNotes writes a global article's notes and the matching audit row as
// one atomic unit: if the audit insert fails the note change rolls back.
// Notes are global, so this runs identically no matter which project's view
// triggered the edit.
//
// Unchanged notes are a no-op and write no audit row. Creating the article
// with non-empty notes writes a row with a null old value.
func UpdateNotes(db *gorm.DB, articleNumber, notes, changedBy string) error {
	articleNumber = strings.TrimSpace(articleNumber)
	if articleNumber == "" {
		return &ValidationError{Msg: "article_number cannot be empty"}
	}
	if changedBy == "" {
		changedBy = "user"
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var article models.GlobalArticle
		err := tx.Where("article_number = ?", articleNumber).First(&article).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			article = models.GlobalArticle{ArticleNumber: articleNumber, Notes: notes, ChangedBy: changedBy}
			if err := tx.Create(&article).Error; err != nil {
				return err
			}
			if notes == "" {
				return nil
			}
			return tx.Create(&models.ArticleNotesAudit{
				ArticleNumber: articleNumber,
				OldNotes:      nil,
				NewNotes:      notes,
				ChangedBy:     changedBy,
				ChangedAt:     time.Now(),
			}).Error
		case err != nil:
			return err
		}

		if article.Notes == notes {
			return nil
		}
		old := article.Notes
		if err := tx.Model(&article).Updates(map[string]any{"notes": notes, "changed_by": changedBy}).Error; err != nil {
			return err
		}
		return tx.Create(&models.ArticleNotesAudit{
			ArticleNumber: articleNumber,
			OldNotes:      &old,
			NewNotes:      notes,
			ChangedBy:     changedBy,
			ChangedAt:     time.Now(),
		}).Error
	})
	if err != nil {
		return &PersistenceError{Op: "update article notes", Err: err}
	}
	return nil
}

// NotesHistory returns the audit trail for one article, newest change first.
func NotesHistory(db *gorm.DB, articleNumber string, limit int) ([]models.ArticleNotesAudit, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var history []models.ArticleNotesAudit
	err := db.Where("article_number = ?", articleNumber).
		Order("changed_at DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("load notes history: %w", err)
	}
	return history, nil
}

// upsertGlobalArticle creates or refreshes the shared article record while
// preserving any existing notes. An initial non-empty note would come through
// UpdateNotes, never through an import.
func upsertGlobalArticle(tx *gorm.DB, articleNumber, description, changedBy string) error {
	var existing models.GlobalArticle
	err := tx.Where("article_number = ?", articleNumber).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.GlobalArticle{
			ArticleNumber: articleNumber,
			Description:   description,
			ChangedBy:     changedBy,
		}).Error
	}
	if err != nil {
		return err
	}
	if description != "" && description != existing.Description {
		return tx.Model(&existing).Updates(map[string]any{"description": description, "changed_by": changedBy}).Error
	}
	return nil
}
