package models

import "time"

// ArticleNotesAudit is the append-only trail of notes changes on a global
// article. One row per committed change; OldNotes is null only for the row
// written when an article is created with non-empty notes. Rows are never
// updated or deleted.
type ArticleNotesAudit struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	ArticleNumber string  `gorm:"size:100;not null;index:idx_notes_audit_article,priority:1" json:"article_number"`
	OldNotes      *string `json:"old_notes"`
	NewNotes      string  `json:"new_notes"`
	ChangedBy     string  `gorm:"size:100;not null" json:"changed_by"`
	ChangedAt     time.Time `gorm:"not null;index:idx_notes_audit_article,priority:2,sort:desc" json:"changed_at"`
}
