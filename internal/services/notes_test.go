package services

import (
	"testing"
	"time"

	"github.com/diewo77/traceflow/internal/models"
)

func TestUpdateNotesWritesExactlyOneAuditRow(t *testing.T) {
	db := setupServiceTestDB(t)
	if err := db.Create(&models.GlobalArticle{ArticleNumber: "A-100", Notes: "check weld"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := UpdateNotes(db, "A-100", "weld approved", "aw"); err != nil {
		t.Fatalf("update notes: %v", err)
	}

	var rows []models.ArticleNotesAudit
	if err := db.Where("article_number = ?", "A-100").Find(&rows).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one audit row, got %d", len(rows))
	}
	row := rows[0]
	if row.OldNotes == nil || *row.OldNotes != "check weld" || row.NewNotes != "weld approved" {
		t.Fatalf("unexpected audit row: %+v", row)
	}
	if row.ChangedBy != "aw" {
		t.Fatalf("expected changed_by aw, got %q", row.ChangedBy)
	}

	var article models.GlobalArticle
	if err := db.Where("article_number = ?", "A-100").First(&article).Error; err != nil {
		t.Fatalf("reload article: %v", err)
	}
	if article.Notes != "weld approved" {
		t.Fatalf("notes not updated: %q", article.Notes)
	}
}

func TestUpdateNotesFirstNoteHasNullOldValue(t *testing.T) {
	db := setupServiceTestDB(t)

	if err := UpdateNotes(db, "A-100", "initial note", ""); err != nil {
		t.Fatalf("update notes: %v", err)
	}

	var row models.ArticleNotesAudit
	if err := db.Where("article_number = ?", "A-100").First(&row).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if row.OldNotes != nil {
		t.Fatalf("first note must have null old value, got %q", *row.OldNotes)
	}
	if row.ChangedBy != "user" {
		t.Fatalf("empty changed_by must default to user, got %q", row.ChangedBy)
	}
}

func TestUpdateNotesUnchangedIsNoOp(t *testing.T) {
	db := setupServiceTestDB(t)
	if err := db.Create(&models.GlobalArticle{ArticleNumber: "A-100", Notes: "same"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := UpdateNotes(db, "A-100", "same", "aw"); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	var count int64
	db.Model(&models.ArticleNotesAudit{}).Where("article_number = ?", "A-100").Count(&count)
	if count != 0 {
		t.Fatalf("unchanged notes must not write audit rows, got %d", count)
	}
}

func TestUpdateNotesRejectsEmptyArticleNumber(t *testing.T) {
	db := setupServiceTestDB(t)
	if err := UpdateNotes(db, "  ", "note", "aw"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNotesHistoryNewestFirst(t *testing.T) {
	db := setupServiceTestDB(t)
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, note := range []string{"first", "second", "third"} {
		row := models.ArticleNotesAudit{
			ArticleNumber: "A-100",
			NewNotes:      note,
			ChangedBy:     "aw",
			ChangedAt:     base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed audit: %v", err)
		}
	}

	history, err := NotesHistory(db, "A-100", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	if history[0].NewNotes != "third" || history[2].NewNotes != "first" {
		t.Fatalf("history not newest first: %v, %v, %v", history[0].NewNotes, history[1].NewNotes, history[2].NewNotes)
	}
}
