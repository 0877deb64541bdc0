package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is one receipt line from the inventory log: a batch of
// material for an article under a specific charge number.
//
// ChargeNumber may be empty (administrative rows, goods still in receiving);
// such rows are kept for bookkeeping but excluded from charge matching.
// Quantity may be negative (withdrawals and corrections).
type InventoryItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProjectID     uint            `gorm:"not null;index:idx_inventory_project_article,priority:1" json:"project_id"`
	ArticleNumber string          `gorm:"size:100;not null;index:idx_inventory_project_article,priority:2" json:"article_number"`
	ChargeNumber  string          `gorm:"size:100" json:"charge_number,omitempty"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	BatchID       string          `gorm:"size:100" json:"batch_id,omitempty"`
	Location      string          `gorm:"size:100" json:"location,omitempty"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
