package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/models"
)

// CreateProject validates and persists a new project. Every new project gets
// its own copy of the global certificate types so it can reorder and extend
// them independently.
func CreateProject(db *gorm.DB, project *models.Project) error {
	if strings.TrimSpace(project.ProjectName) == "" {
		return &ValidationError{Msg: "project_name cannot be empty"}
	}
	if strings.TrimSpace(project.OrderNumber) == "" {
		return &ValidationError{Msg: "order_number cannot be empty"}
	}
	if strings.TrimSpace(project.Customer) == "" {
		return &ValidationError{Msg: "customer cannot be empty"}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("order_number = ?", project.OrderNumber).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &DuplicateError{Kind: "project with order_number", Key: project.OrderNumber}
		}
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		var globalTypes []models.CertificateType
		if err := tx.Order("sort_order, type_name").Find(&globalTypes).Error; err != nil {
			return err
		}
		for _, gt := range globalTypes {
			pct := models.ProjectCertificateType{
				ProjectID: project.ID,
				TypeName:  gt.TypeName,
				SortOrder: gt.SortOrder,
			}
			if err := tx.Create(&pct).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var dup *DuplicateError
		if errors.As(err, &dup) {
			return dup
		}
		return &PersistenceError{Op: "create project", Err: err}
	}
	return nil
}

// GetProject loads one project.
func GetProject(db *gorm.DB, projectID uint) (*models.Project, error) {
	var project models.Project
	err := db.First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Kind: "project", Key: fmt.Sprint(projectID)}
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return &project, nil
}

// ListProjects returns projects most recently touched first.
func ListProjects(db *gorm.DB, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var projects []models.Project
	if err := db.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// UpdateProject writes new metadata on an existing project. The order number
// stays unique across projects.
func UpdateProject(db *gorm.DB, project *models.Project) error {
	var count int64
	if err := db.Model(&models.Project{}).
		Where("order_number = ? AND id <> ?", project.OrderNumber, project.ID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check order number: %w", err)
	}
	if count > 0 {
		return &DuplicateError{Kind: "project with order_number", Key: project.OrderNumber}
	}
	updates := map[string]any{
		"project_name":          project.ProjectName,
		"order_number":          project.OrderNumber,
		"customer":              project.Customer,
		"description":           project.Description,
		"purchase_order_number": project.PurchaseOrderNumber,
	}
	if err := db.Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
		return &PersistenceError{Op: "update project", Err: err}
	}
	return nil
}

// DeleteProject removes a project and everything it owns in one transaction:
// articles, inventory, certificates and the certificate-type overlay. Global
// articles stay, they may be referenced by other projects. Certificate files
// are removed through the store after the commit; failures come back as
// warnings.
func DeleteProject(db *gorm.DB, store FileStore, projectID uint) ([]CleanupWarning, error) {
	var certs []models.Certificate
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Find(&certs).Error; err != nil {
			return err
		}
		for _, model := range []any{
			&models.Certificate{}, &models.InventoryItem{},
			&models.ProjectCertificateType{}, &models.ProjectArticle{},
		} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Project{}, projectID).Error
	})
	if err != nil {
		return nil, &PersistenceError{Op: "delete project", Err: err}
	}
	return removeStoredFiles(store, certs), nil
}

// ArticlesForProject lists a project's articles joined with their global
// notes and description. Always ordered by sort_order: the spreadsheet order
// is part of the contract, listings never sort by level or article number.
func ArticlesForProject(db *gorm.DB, projectID uint) ([]models.ArticleView, error) {
	var views []models.ArticleView
	err := db.Table("project_articles AS pa").
		Select("pa.*, COALESCE(ga.notes, '') AS global_notes, COALESCE(ga.description, '') AS global_description").
		Joins("LEFT JOIN global_articles ga ON ga.article_number = pa.article_number").
		Where("pa.project_id = ?", projectID).
		Order("pa.sort_order ASC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("load project articles: %w", err)
	}
	return views, nil
}

// SetArticleVerified flags one project article row as checked off.
func SetArticleVerified(db *gorm.DB, projectID uint, articleNumber, level string, verified bool) error {
	res := db.Model(&models.ProjectArticle{}).
		Where("project_id = ? AND article_number = ? AND level = ?", projectID, articleNumber, level).
		Update("verified", verified)
	if res.Error != nil {
		return &PersistenceError{Op: "set verified", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Kind: "project article", Key: fmt.Sprintf("%s@%s", articleNumber, level)}
	}
	return nil
}

// MergedCertificateType is one entry of the combined global + project
// certificate-type list.
type MergedCertificateType struct {
	TypeName  string `json:"type_name"`
	SortOrder int    `json:"sort_order"`
	Global    bool   `json:"global"`
}

// CertificateTypesForProject merges the global types and the project overlay
// into one list ordered by sort_order then name. A project entry shadows the
// global entry of the same name (it carries the project's ordering).
func CertificateTypesForProject(db *gorm.DB, projectID uint) ([]MergedCertificateType, error) {
	var globalTypes []models.CertificateType
	if err := db.Order("sort_order, type_name").Find(&globalTypes).Error; err != nil {
		return nil, fmt.Errorf("load certificate types: %w", err)
	}
	var projectTypes []models.ProjectCertificateType
	if err := db.Where("project_id = ?", projectID).Order("sort_order, type_name").Find(&projectTypes).Error; err != nil {
		return nil, fmt.Errorf("load project certificate types: %w", err)
	}

	merged := make([]MergedCertificateType, 0, len(globalTypes)+len(projectTypes))
	fromProject := map[string]bool{}
	for _, pt := range projectTypes {
		merged = append(merged, MergedCertificateType{TypeName: pt.TypeName, SortOrder: pt.SortOrder})
		fromProject[pt.TypeName] = true
	}
	for _, gt := range globalTypes {
		if !fromProject[gt.TypeName] {
			merged = append(merged, MergedCertificateType{TypeName: gt.TypeName, SortOrder: gt.SortOrder, Global: true})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].SortOrder != merged[j].SortOrder {
			return merged[i].SortOrder < merged[j].SortOrder
		}
		return merged[i].TypeName < merged[j].TypeName
	})
	return merged, nil
}

// AddProjectCertificateType appends a project-specific type after the current
// last sort position.
func AddProjectCertificateType(db *gorm.DB, projectID uint, typeName string) error {
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		return &ValidationError{Msg: "type_name cannot be empty"}
	}
	var maxOrder int
	row := db.Model(&models.ProjectCertificateType{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(sort_order), 0)").Row()
	if err := row.Scan(&maxOrder); err != nil {
		return fmt.Errorf("read max sort_order: %w", err)
	}
	pct := models.ProjectCertificateType{ProjectID: projectID, TypeName: typeName, SortOrder: maxOrder + 1}
	if err := db.Create(&pct).Error; err != nil {
		return &PersistenceError{Op: "add certificate type", Err: err}
	}
	return nil
}

// ReorderProjectCertificateTypes rewrites the overlay's sort orders to match
// the given name sequence.
func ReorderProjectCertificateTypes(db *gorm.DB, projectID uint, orderedNames []string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		for i, name := range orderedNames {
			if err := tx.Model(&models.ProjectCertificateType{}).
				Where("project_id = ? AND type_name = ?", projectID, name).
				Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "reorder certificate types", Err: err}
	}
	return nil
}
