package models

import "time"

// Certificate is a stored traceability document (e.g. a material test
// certificate) evidencing a specific article/charge pairing. When the charge
// of the documented article changes, the certificate no longer applies and is
// removed by the cascade in services.
type Certificate struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ProjectID     uint   `gorm:"not null;index:idx_certificate_project_article,priority:1" json:"project_id"`
	ArticleNumber string `gorm:"size:100;not null;index:idx_certificate_project_article,priority:2" json:"article_number"`
	// CertificateID is the stable identifier the stored file is named after.
	CertificateID    string `gorm:"size:150;not null;unique" json:"certificate_id"`
	CertificateType  string `gorm:"size:100;not null" json:"certificate_type"`
	StoredPath       string `gorm:"size:500;not null" json:"stored_path"`
	StoredName       string `gorm:"size:255;not null" json:"stored_name"`
	OriginalName     string `gorm:"size:255;not null" json:"original_name"`
	PageCount        int    `gorm:"default:1" json:"page_count"`
	ProjectArticleID *uint  `json:"project_article_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CertificateType is a globally defined document category. SortOrder controls
// presentation order in dialogs and reports.
type CertificateType struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TypeName  string `gorm:"size:100;not null;unique" json:"type_name"`
	SearchPath string `gorm:"size:500" json:"search_path,omitempty"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectCertificateType is a project's own overlay of document categories.
// The overlay is additive: global types stay visible, project types extend
// and reorder the list for that project only.
type ProjectCertificateType struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID uint   `gorm:"not null;index:idx_project_cert_type,unique,priority:1" json:"project_id"`
	TypeName  string `gorm:"size:100;not null;index:idx_project_cert_type,unique,priority:2" json:"type_name"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}
