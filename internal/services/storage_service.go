package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

// ObjectUploader is the remote object store behind StorageService
type ObjectUploader interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// StorageService stores rendered documents in Supabase when configured,
// otherwise in a local directory served under /files
type StorageService struct {
	remote  ObjectUploader
	dir     string
	baseURL string
	logger  *logrus.Logger
}

// NewStorageService creates a new storage service. A nil remote selects
// the local directory.
func NewStorageService(remote ObjectUploader, dir, baseURL string, logger *logrus.Logger) *StorageService {
	return &StorageService{
		remote:  remote,
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Upload stores data under key and returns its public URL
func (s *StorageService) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.remote != nil {
		url, err := s.remote.UploadFile(ctx, key, data, contentType)
		if err != nil {
			return "", ierr.WithError(err).
				WithHint("❌ Could not upload the PDF. Please try again.").
				Mark(ierr.ErrDependency)
		}
		return url, nil
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", ierr.WithError(err).WithMessage("error creating storage directory").Mark(ierr.ErrSystem)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", ierr.WithError(err).WithMessage("error writing file").Mark(ierr.ErrSystem)
	}

	url := s.baseURL + "/files/" + key
	s.logger.WithFields(logrus.Fields{
		"file": path,
		"url":  url,
		"size": len(data),
	}).Info("File stored locally")
	return url, nil
}

// InvoiceKey is the object key of an invoice PDF
func InvoiceKey(seller *models.Seller, number string) string {
	return fmt.Sprintf("%s/%s.pdf", seller.StorageKey(), number)
}

// CreditNoteKey is the object key of a credit note PDF
func CreditNoteKey(seller *models.Seller, number string) string {
	return fmt.Sprintf("%s/credit_notes/%s.pdf", seller.StorageKey(), number)
}

// ReportKey is the object key of a monthly report PDF
func ReportKey(seller *models.Seller, report *models.MonthlyReport) string {
	return fmt.Sprintf("%s/reports/%s_%d.pdf", seller.StorageKey(), report.MonthName(), report.Year)
}
