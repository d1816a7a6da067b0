package services

import (
	"context"

	"github.com/tallbag/gutinvoice/internal/models"
)

// Transcriber turns a voice note into English text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language models.Language) (string, error)
}

// Extractor turns an instruction into invoice fields
type Extractor interface {
	Extract(ctx context.Context, instruction string, seller *models.Seller) (*models.Extraction, error)
}

// Messenger delivers WhatsApp messages and fetches inbound media
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendDocument(ctx context.Context, to, body, mediaURL string) error
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// SellerStore persists seller profiles
type SellerStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Seller, error)
	Save(ctx context.Context, seller *models.Seller) error
}

// FileStore stores rendered documents and returns their public URL
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// EventPublisher emits ledger events
type EventPublisher interface {
	Publish(ctx context.Context, name string, data map[string]any) error
}

// ReportMailer e-mails monthly reports
type ReportMailer interface {
	SendMonthlyReport(ctx context.Context, to string, report *models.MonthlyReport, pdfURL string) error
}

// Event names
const (
	EventInvoiceIssued    = "gutinvoice/invoice.issued"
	EventInvoiceCancelled = "gutinvoice/invoice.cancelled"
	EventReportGenerated  = "gutinvoice/report.generated"
)
