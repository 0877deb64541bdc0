package models

import (
	"time"
)

// Project is a traceability project: one customer order whose bill of
// material is validated against inventory before a report is issued.
type Project struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ProjectName string `gorm:"size:200;not null" json:"project_name"`
	// OrderNumber doubles as the project folder name on disk, so it is unique.
	OrderNumber         string `gorm:"size:100;not null;unique" json:"order_number"`
	Customer            string `gorm:"size:200;not null" json:"customer"`
	CreatedBy           string `gorm:"size:100;not null" json:"created_by"`
	PurchaseOrderNumber string `gorm:"size:100" json:"purchase_order_number,omitempty"`
	Description         string `json:"description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
