package services

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/models"
)

// MatchStatus classifies the outcome of pairing one article with inventory.
type MatchStatus string

const (
	// NoChargeAvailable: no inventory row with a charge exists for the
	// article. A normal state, not an error.
	NoChargeAvailable MatchStatus = "no_charge_available"
	// AutoMatched: exactly one distinct charge exists and was selected.
	AutoMatched MatchStatus = "auto_matched"
	// RequiresManualSelection: several distinct charges exist; the caller
	// must pick one, the engine never does.
	RequiresManualSelection MatchStatus = "requires_manual_selection"
)

// MatchResult pairs one project article with its candidate charges.
// Candidates are ordered most recently received first; that ordering is the
// suggested default for the selection dialog, nothing more.
type MatchResult struct {
	Article          models.ArticleView `json:"article"`
	Status           MatchStatus        `json:"status"`
	AvailableCharges []string           `json:"available_charges"`
	SelectedCharge   string             `json:"selected_charge,omitempty"`
}

// MatchArticle classifies one article against the project's inventory rows.
// Pure computation: persistence of a chosen charge goes through
// ApplySelection.
func MatchArticle(article models.ArticleView, items []models.InventoryItem) MatchResult {
	charges := availableCharges(article.ArticleNumber, items)
	result := MatchResult{Article: article, AvailableCharges: charges}
	switch len(charges) {
	case 0:
		result.Status = NoChargeAvailable
	case 1:
		result.Status = AutoMatched
		result.SelectedCharge = charges[0]
	default:
		result.Status = RequiresManualSelection
	}
	return result
}

// availableCharges returns the distinct non-empty charges for an article,
// most recently received first. Duplicate batch rows for the same charge
// collapse into one candidate.
func availableCharges(articleNumber string, items []models.InventoryItem) []string {
	matching := make([]models.InventoryItem, 0, 4)
	for _, item := range items {
		if item.ArticleNumber == articleNumber && item.ChargeNumber != "" {
			matching = append(matching, item)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		a, b := matching[i].ReceivedAt, matching[j].ReceivedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	seen := map[string]bool{}
	var charges []string
	for _, item := range matching {
		if !seen[item.ChargeNumber] {
			charges = append(charges, item.ChargeNumber)
			seen[item.ChargeNumber] = true
		}
	}
	return charges
}

// MatchProject classifies every article of a project, in spreadsheet order.
func MatchProject(db *gorm.DB, projectID uint) ([]MatchResult, error) {
	articles, err := ArticlesForProject(db, projectID)
	if err != nil {
		return nil, err
	}
	var items []models.InventoryItem
	if err := db.Where("project_id = ?", projectID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	results := make([]MatchResult, 0, len(articles))
	for _, article := range articles {
		results = append(results, MatchArticle(article, items))
	}
	return results, nil
}

// ApplySelection persists a charge choice on one project article row. The
// charge must be among the article's current candidates; selections are
// explicit, nothing is inferred.
func ApplySelection(db *gorm.DB, projectID uint, articleNumber, level, charge, batch string) error {
	var article models.ProjectArticle
	err := db.Where("project_id = ? AND article_number = ? AND level = ?", projectID, articleNumber, level).
		First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Kind: "project article", Key: fmt.Sprintf("%s@%s", articleNumber, level)}
	}
	if err != nil {
		return fmt.Errorf("load project article: %w", err)
	}

	var items []models.InventoryItem
	if err := db.Where("project_id = ? AND article_number = ?", projectID, articleNumber).Find(&items).Error; err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	valid := false
	for _, c := range availableCharges(articleNumber, items) {
		if c == charge {
			valid = true
			break
		}
	}
	if !valid {
		return &ChargeNotAvailableError{ArticleNumber: articleNumber, Charge: charge}
	}

	updates := map[string]any{"charge_number": charge, "batch_number": batch}
	if err := db.Model(&article).Updates(updates).Error; err != nil {
		return &PersistenceError{Op: "apply charge selection", Err: err}
	}
	return nil
}

// MatchStatistics summarizes a project's matching state for the status bar.
type MatchStatistics struct {
	Total       int `json:"total"`
	Matched     int `json:"matched"`
	Unmatched   int `json:"unmatched"`
	NeedsManual int `json:"needs_manual"`
	Verified    int `json:"verified"`
}

// Statistics computes match statistics over current matching results.
func Statistics(results []MatchResult) MatchStatistics {
	stats := MatchStatistics{Total: len(results)}
	for _, r := range results {
		if r.Article.ChargeNumber != "" || r.Status == AutoMatched {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
		if r.Status == RequiresManualSelection && r.Article.ChargeNumber == "" {
			stats.NeedsManual++
		}
		if r.Article.Verified {
			stats.Verified++
		}
	}
	return stats
}
