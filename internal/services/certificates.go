package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/traceflow/internal/config"
	"github.com/diewo77/traceflow/internal/models"
)

// FileStore is the certificate file storage collaborator. The core issues
// save/delete instructions and does not depend on the layout on disk.
type FileStore interface {
	Save(projectID uint, storedName string, r io.Reader) (storedPath string, err error)
	Delete(storedPath string) error
}

// DiskStore stores certificate files under BaseDir/<projectID>/.
type DiskStore struct {
	BaseDir string
}

func (s DiskStore) Save(projectID uint, storedName string, r io.Reader) (string, error) {
	dir := filepath.Join(s.BaseDir, fmt.Sprint(projectID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create certificate dir: %w", err)
	}
	path := filepath.Join(dir, storedName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create certificate file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write certificate file: %w", err)
	}
	return path, nil
}

func (s DiskStore) Delete(storedPath string) error {
	err := os.Remove(storedPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// cleanupAttempts bounds the retries for a failing file deletion; the delay
// doubles per attempt. Package vars so tests do not sleep.
var (
	cleanupAttempts = 3
	cleanupBaseWait = 500 * time.Millisecond
	cleanupMaxWait  = 5 * time.Second
)

// removeStoredFiles issues file deletions for already-invalidated certificate
// records. Transient failures (locked file, permissions) are retried with
// exponential backoff; whatever still fails becomes a warning. The database
// commit never waits on this.
func removeStoredFiles(store FileStore, certs []models.Certificate) []CleanupWarning {
	log := config.GetLogger()
	var warnings []CleanupWarning
	for _, cert := range certs {
		var err error
		for attempt := 1; attempt <= cleanupAttempts; attempt++ {
			if err = store.Delete(cert.StoredPath); err == nil {
				break
			}
			if attempt < cleanupAttempts {
				time.Sleep(cleanupBackoff(attempt))
			}
		}
		if err != nil {
			log.WithField("path", cert.StoredPath).Warnf("certificate file cleanup failed: %v", err)
			warnings = append(warnings, CleanupWarning{
				CertificateID: cert.CertificateID,
				Path:          cert.StoredPath,
				Reason:        err.Error(),
			})
		}
	}
	return warnings
}

// cleanupBackoff returns baseWait * 2^(attempt-1), capped.
func cleanupBackoff(attempt int) time.Duration {
	d := cleanupBaseWait
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > cleanupMaxWait {
			return cleanupMaxWait
		}
	}
	return d
}

// Certificate type detection by filename keyword, first match wins. The
// order matters: "material" must win over the generic "test".
var certTypeKeywords = []struct {
	keyword string
	typ     string
}{
	{"materialintyg", "Materialintyg"},
	{"material", "Materialintyg"},
	{"3.1", "Materialintyg"},
	{"3.2", "Materialintyg"},
	{"certifikat", "Certifikat"},
	{"certificate", "Certifikat"},
	{"svets", "Svetslogg"},
	{"weld", "Svetslogg"},
	{"kontroll", "Kontrollrapport"},
	{"inspection", "Kontrollrapport"},
	{"provning", "Provningsprotokoll"},
	{"test", "Provningsprotokoll"},
	{"leverantör", "Leverantörsintyg"},
	{"supplier", "Leverantörsintyg"},
	{"kvalitet", "Kvalitetsintyg"},
	{"quality", "Kvalitetsintyg"},
}

// GuessCertificateType maps a filename onto a certificate type, defaulting to
// "Andra handlingar" (other documents).
func GuessCertificateType(filename string) string {
	lower := strings.ToLower(filename)
	for _, kw := range certTypeKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.typ
		}
	}
	return "Andra handlingar"
}

func typeSlug(certType string) string {
	slug := strings.ToLower(strings.TrimSpace(certType))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}

// RegisterCertificateInput describes one uploaded certificate document.
type RegisterCertificateInput struct {
	ProjectID        uint
	ArticleNumber    string
	OriginalName     string
	CertificateType  string // guessed from the filename when empty
	PageCount        int
	ProjectArticleID *uint
}

// RegisterCertificate stores the uploaded file and inserts the certificate
// record. The stored name embeds a stable id so re-uploads never collide.
func RegisterCertificate(db *gorm.DB, store FileStore, in RegisterCertificateInput, file io.Reader) (*models.Certificate, error) {
	if strings.TrimSpace(in.ArticleNumber) == "" {
		return nil, &ValidationError{Msg: "article_number cannot be empty"}
	}
	if !strings.EqualFold(filepath.Ext(in.OriginalName), ".pdf") {
		return nil, &ValidationError{Msg: fmt.Sprintf("certificate must be a PDF: %s", in.OriginalName)}
	}
	certType := in.CertificateType
	if certType == "" {
		certType = GuessCertificateType(in.OriginalName)
	}
	pageCount := in.PageCount
	if pageCount <= 0 {
		pageCount = 1
	}

	certID := fmt.Sprintf("%s_%s_%s", in.ArticleNumber, typeSlug(certType), uuid.NewString()[:8])
	storedName := certID + ".pdf"
	storedPath, err := store.Save(in.ProjectID, storedName, file)
	if err != nil {
		return nil, fmt.Errorf("store certificate: %w", err)
	}

	cert := models.Certificate{
		ProjectID:        in.ProjectID,
		ArticleNumber:    in.ArticleNumber,
		CertificateID:    certID,
		CertificateType:  certType,
		StoredPath:       storedPath,
		StoredName:       storedName,
		OriginalName:     in.OriginalName,
		PageCount:        pageCount,
		ProjectArticleID: in.ProjectArticleID,
	}
	if err := db.Create(&cert).Error; err != nil {
		// the record is the source of truth; drop the orphaned file
		_ = store.Delete(storedPath)
		return nil, &PersistenceError{Op: "register certificate", Err: err}
	}
	return &cert, nil
}

// CertificatesForArticle lists the certificates of one (project, article)
// pair, newest first.
func CertificatesForArticle(db *gorm.DB, projectID uint, articleNumber string) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := db.Where("project_id = ? AND article_number = ?", projectID, articleNumber).
		Order("created_at DESC").Find(&certs).Error
	if err != nil {
		return nil, fmt.Errorf("load certificates: %w", err)
	}
	return certs, nil
}

// CertificatesForProject lists all certificates of a project grouped by
// article.
func CertificatesForProject(db *gorm.DB, projectID uint) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := db.Where("project_id = ?", projectID).
		Order("article_number, created_at DESC").Find(&certs).Error
	if err != nil {
		return nil, fmt.Errorf("load certificates: %w", err)
	}
	return certs, nil
}

// DeleteCertificate removes one certificate record and its stored file.
func DeleteCertificate(db *gorm.DB, store FileStore, certificateID string) ([]CleanupWarning, error) {
	var cert models.Certificate
	err := db.Where("certificate_id = ?", certificateID).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Kind: "certificate", Key: certificateID}
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if err := db.Delete(&cert).Error; err != nil {
		return nil, &PersistenceError{Op: "delete certificate", Err: err}
	}
	return removeStoredFiles(store, []models.Certificate{cert}), nil
}

// cascadeCertificates invalidates every certificate of the (project, article)
// pair inside the caller's transaction and returns the affected records so
// their files can be removed after commit. Certificates of the same article
// under other projects, or of other articles, are untouched.
func cascadeCertificates(tx *gorm.DB, projectID uint, articleNumber string) ([]models.Certificate, error) {
	var certs []models.Certificate
	if err := tx.Where("project_id = ? AND article_number = ?", projectID, articleNumber).Find(&certs).Error; err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, nil
	}
	if err := tx.Where("project_id = ? AND article_number = ?", projectID, articleNumber).
		Delete(&models.Certificate{}).Error; err != nil {
		return nil, err
	}
	return certs, nil
}
