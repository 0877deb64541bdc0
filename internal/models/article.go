package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GlobalArticle holds the data shared by every project that references an
// article number: the catalog description and the free-text notes. Notes
// edits are audited (see ArticleNotesAudit) no matter which project made them.
type GlobalArticle struct {
	ArticleNumber string `gorm:"primaryKey;size:100" json:"article_number"`
	Description   string `json:"description"`
	Notes         string `json:"notes"`
	ChangedBy     string `gorm:"size:100" json:"changed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProjectArticle is one BOM row of a project. The same article number may
// appear at several hierarchy levels, so (project, article, level) is the
// identity, not (project, article).
type ProjectArticle struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ProjectID     uint   `gorm:"not null;index:idx_project_article_level,unique,priority:1" json:"project_id"`
	ArticleNumber string `gorm:"size:100;not null;index:idx_project_article_level,unique,priority:2" json:"article_number"`
	// Level is the BOM path, e.g. "1.1.2".
	Level         string          `gorm:"size:50;not null;index:idx_project_article_level,priority:3" json:"level"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	ParentArticle string          `gorm:"size:100" json:"parent_article,omitempty"`
	ChargeNumber  string          `gorm:"size:100" json:"charge_number,omitempty"`
	BatchNumber   string          `gorm:"size:100" json:"batch_number,omitempty"`
	Verified      bool            `gorm:"default:false" json:"verified"`
	// SortOrder is the zero-based row position from the source spreadsheet.
	// It is the authoritative display order and is never derived from the
	// level or the article number.
	SortOrder int       `gorm:"not null;index" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArticleView is a ProjectArticle joined with its global data, the shape the
// article pages work with.
type ArticleView struct {
	ProjectArticle
	GlobalNotes       string `json:"global_notes"`
	GlobalDescription string `json:"global_description"`
}
