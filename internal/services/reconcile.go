package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/config"
	"github.com/diewo77/traceflow/internal/importer"
	"github.com/diewo77/traceflow/internal/models"
)

// CompareInventory diffs a re-imported inventory log against the persisted
// project articles and reports charge changes. Pure computation, nothing is
// written.
//
// Current rows are indexed by article number: a charge applies to the
// article, so every level row carrying a stale charge gets its own update
// entry. An empty incoming charge is never a diff (clearing a charge is a
// manual act, not a reconciliation outcome), and articles absent from the
// import are left alone.
func CompareInventory(current []models.ArticleView, incoming []importer.InventoryRow) []models.ArticleUpdate {
	byArticle := map[string][]models.ArticleView{}
	for _, c := range current {
		byArticle[c.ArticleNumber] = append(byArticle[c.ArticleNumber], c)
	}

	var updates []models.ArticleUpdate
	seen := map[string]bool{}
	for _, row := range incoming {
		if row.ChargeNumber == "" {
			continue
		}
		for _, cur := range byArticle[row.ArticleNumber] {
			if cur.ChargeNumber == row.ChargeNumber {
				continue
			}
			key := cur.ArticleNumber + "\x00" + cur.Level + "\x00" + row.ChargeNumber
			if seen[key] {
				continue
			}
			seen[key] = true
			updates = append(updates, models.ArticleUpdate{
				ArticleNumber:       cur.ArticleNumber,
				Level:               cur.Level,
				Source:              models.SourceInventory,
				Field:               models.FieldChargeNumber,
				OldValue:            cur.ChargeNumber,
				NewValue:            row.ChargeNumber,
				AffectsCertificates: true,
			})
		}
	}
	return updates
}

// CompareArticleList diffs a re-imported article list against the persisted
// project articles. Pure computation.
//
// Current rows are indexed by (article number, level) since level is part of
// a row's identity. Incoming rows with no current counterpart are new
// articles, which insertion handles, not reconciliation. When an article
// moved level, every current row whose level the new import no longer claims
// is a plausible target, and one level diff per target is surfaced; the
// caller picks, ApplyUpdates refuses contradictory picks.
func CompareArticleList(current []models.ArticleView, incoming []importer.ArticleRow) []models.ArticleUpdate {
	type key struct{ article, level string }
	byKey := map[key]models.ArticleView{}
	byArticle := map[string][]models.ArticleView{}
	for _, c := range current {
		byKey[key{c.ArticleNumber, c.Level}] = c
		byArticle[c.ArticleNumber] = append(byArticle[c.ArticleNumber], c)
	}
	incomingLevels := map[key]bool{}
	for _, row := range incoming {
		incomingLevels[key{row.ArticleNumber, row.Level}] = true
	}

	var updates []models.ArticleUpdate
	for _, row := range incoming {
		cur, exists := byKey[key{row.ArticleNumber, row.Level}]
		if exists {
			updates = append(updates, fieldDiffs(cur, row)...)
			continue
		}
		candidates := make([]models.ArticleView, 0, 2)
		for _, c := range byArticle[row.ArticleNumber] {
			if !incomingLevels[key{c.ArticleNumber, c.Level}] {
				candidates = append(candidates, c)
			}
		}
		for _, c := range candidates {
			updates = append(updates, models.ArticleUpdate{
				ArticleNumber: row.ArticleNumber,
				Level:         c.Level,
				Source:        models.SourceArticleList,
				Field:         models.FieldLevel,
				OldValue:      c.Level,
				NewValue:      row.Level,
			})
		}
		// only with an unambiguous target are value diffs meaningful
		if len(candidates) == 1 {
			updates = append(updates, fieldDiffs(candidates[0], row)...)
		}
	}
	return updates
}

func fieldDiffs(cur models.ArticleView, row importer.ArticleRow) []models.ArticleUpdate {
	var updates []models.ArticleUpdate
	if !cur.Quantity.Equal(row.Quantity) {
		updates = append(updates, models.ArticleUpdate{
			ArticleNumber: cur.ArticleNumber,
			Level:         cur.Level,
			Source:        models.SourceArticleList,
			Field:         models.FieldQuantity,
			OldValue:      cur.Quantity.String(),
			NewValue:      row.Quantity.String(),
		})
	}
	if row.Description != "" && row.Description != cur.GlobalDescription {
		updates = append(updates, models.ArticleUpdate{
			ArticleNumber: cur.ArticleNumber,
			Level:         cur.Level,
			Source:        models.SourceArticleList,
			Field:         models.FieldDescription,
			OldValue:      cur.GlobalDescription,
			NewValue:      row.Description,
		})
	}
	return updates
}

// ApplyResult summarizes an applied reconciliation batch.
type ApplyResult struct {
	AppliedCount        int              `json:"applied_count"`
	CertificatesRemoved int              `json:"certificates_removed"`
	Warnings            []CleanupWarning `json:"warnings,omitempty"`
}

// ApplyUpdates writes a user-selected set of reconciliation updates in one
// transaction. Either every selected update and its certificate cascades
// commit, or none do. Certificate files are removed through the store only
// after the commit; those failures come back as warnings, never a rollback.
func ApplyUpdates(db *gorm.DB, store FileStore, projectID uint, selected []models.ArticleUpdate) (*ApplyResult, error) {
	levelTargets := map[string]string{}
	for _, u := range selected {
		if !u.Field.Valid() {
			return nil, fmt.Errorf("unknown update field %q", u.Field)
		}
		if u.Field == models.FieldLevel {
			if prev, ok := levelTargets[u.ArticleNumber]; ok && prev != u.OldValue {
				return nil, &ReconciliationConflictError{
					ArticleNumber: u.ArticleNumber,
					Msg:           "selection contains level moves for more than one source row; pick one",
				}
			}
			levelTargets[u.ArticleNumber] = u.OldValue
		}
	}

	// Value diffs are keyed to the row's pre-move level, so a batch that
	// contains both (one article moved level and changed quantity in the same
	// re-import) only resolves when the level moves run last.
	ordered := make([]models.ArticleUpdate, 0, len(selected))
	for _, u := range selected {
		if u.Field != models.FieldLevel {
			ordered = append(ordered, u)
		}
	}
	for _, u := range selected {
		if u.Field == models.FieldLevel {
			ordered = append(ordered, u)
		}
	}

	result := &ApplyResult{}
	var removed []models.Certificate
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, u := range ordered {
			if err := applyOne(tx, projectID, u); err != nil {
				return err
			}
			result.AppliedCount++
			if u.Field.CascadesCertificates() {
				certs, err := cascadeCertificates(tx, projectID, u.ArticleNumber)
				if err != nil {
					return err
				}
				removed = append(removed, certs...)
			}
		}
		return nil
	})
	if err != nil {
		var conflict *ReconciliationConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "apply updates", Err: err}
	}

	result.CertificatesRemoved = len(removed)
	if len(removed) > 0 {
		config.GetLogger().WithField("count", len(removed)).
			Info("certificates invalidated by charge changes")
		result.Warnings = removeStoredFiles(store, removed)
	}
	return result, nil
}

func applyOne(tx *gorm.DB, projectID uint, u models.ArticleUpdate) error {
	switch u.Field {
	case models.FieldChargeNumber:
		q := tx.Model(&models.ProjectArticle{}).
			Where("project_id = ? AND article_number = ?", projectID, u.ArticleNumber)
		if u.Level != "" {
			q = q.Where("level = ?", u.Level)
		}
		res := q.Update("charge_number", u.NewValue)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Kind: "project article", Key: u.ArticleNumber}
		}
		return nil

	case models.FieldQuantity:
		qty, err := decimal.NewFromString(u.NewValue)
		if err != nil {
			return fmt.Errorf("bad quantity %q for %s: %w", u.NewValue, u.ArticleNumber, err)
		}
		res := tx.Model(&models.ProjectArticle{}).
			Where("project_id = ? AND article_number = ? AND level = ?", projectID, u.ArticleNumber, u.Level).
			Update("quantity", qty)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Kind: "project article", Key: fmt.Sprintf("%s@%s", u.ArticleNumber, u.Level)}
		}
		return nil

	case models.FieldLevel:
		res := tx.Model(&models.ProjectArticle{}).
			Where("project_id = ? AND article_number = ? AND level = ?", projectID, u.ArticleNumber, u.OldValue).
			Update("level", u.NewValue)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Kind: "project article", Key: fmt.Sprintf("%s@%s", u.ArticleNumber, u.OldValue)}
		}
		return nil

	case models.FieldDescription:
		// descriptions live on the shared article record
		return upsertGlobalArticle(tx, u.ArticleNumber, u.NewValue, "reconciliation")

	default:
		return fmt.Errorf("unknown update field %q", u.Field)
	}
}
