package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
)

const contentTypePDF = "application/pdf"

// InvoiceDeps groups the collaborators of InvoiceService
type InvoiceDeps struct {
	Store      ledger.Store
	Extractor  Extractor
	Generator  *DocumentGenerator
	Files      FileStore
	Messenger  Messenger
	Events     EventPublisher
	Mailer     ReportMailer
	Allocator  *ledger.Allocator
	Canceller  *ledger.Canceller
	Aggregator *ledger.Aggregator
}

// InvoiceService issues, cancels and reports on a seller's documents
type InvoiceService struct {
	store      ledger.Store
	extractor  Extractor
	generator  *DocumentGenerator
	files      FileStore
	messenger  Messenger
	events     EventPublisher
	mailer     ReportMailer
	allocator  *ledger.Allocator
	canceller  *ledger.Canceller
	aggregator *ledger.Aggregator
	logger     *logrus.Logger
}

// NewInvoiceService creates a new invoice service. Ledger components left
// nil are built on deps.Store.
func NewInvoiceService(deps InvoiceDeps, logger *logrus.Logger) *InvoiceService {
	s := &InvoiceService{
		store:      deps.Store,
		extractor:  deps.Extractor,
		generator:  deps.Generator,
		files:      deps.Files,
		messenger:  deps.Messenger,
		events:     deps.Events,
		mailer:     deps.Mailer,
		allocator:  deps.Allocator,
		canceller:  deps.Canceller,
		aggregator: deps.Aggregator,
		logger:     logger,
	}
	if s.allocator == nil {
		s.allocator = ledger.NewAllocator(deps.Store, logger)
	}
	if s.canceller == nil {
		s.canceller = ledger.NewCanceller(deps.Store, logger)
	}
	if s.aggregator == nil {
		s.aggregator = ledger.NewAggregator(deps.Store, logger)
	}
	return s
}

// CreateFromInstruction turns a spoken or typed instruction into an issued
// invoice and delivers its PDF to the seller
func (s *InvoiceService) CreateFromInstruction(ctx context.Context, seller *models.Seller, instruction string) (*models.InvoiceRecord, error) {
	extraction, err := s.extractor.Extract(ctx, instruction, seller)
	if err != nil {
		return nil, err
	}

	rec, err := BuildInvoiceRecord(extraction, seller)
	if err != nil {
		return nil, err
	}

	if err := s.allocator.Issue(ctx, seller, rec); err != nil {
		return nil, err
	}

	// the number is allocated, failures from here on point at resend
	url, err := s.deliver(ctx, seller, rec)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"seller":         seller.Phone,
			"invoice_number": rec.InvoiceNumber,
			"error":          err.Error(),
		}).Error("Issued invoice not delivered")
		return rec, ierr.WithError(err).
			WithHint(undeliveredMessage(rec)).
			Mark(ierr.ErrDelivery)
	}

	s.publish(ctx, EventInvoiceIssued, map[string]any{
		"seller_phone":   seller.Phone,
		"invoice_number": rec.InvoiceNumber,
		"document_type":  rec.DocumentType,
		"total_amount":   rec.TotalAmount.StringFixed(2),
		"pdf_url":        url,
	})

	s.logger.WithFields(logrus.Fields{
		"seller":         seller.Phone,
		"invoice_number": rec.InvoiceNumber,
		"document_type":  rec.DocumentType,
		"total_amount":   rec.TotalAmount.StringFixed(2),
	}).Info("Invoice issued and delivered")
	return rec, nil
}

// Resend renders and delivers an already issued document again. No number
// is allocated.
func (s *InvoiceService) Resend(ctx context.Context, seller *models.Seller, fragment string) (*models.InvoiceRecord, error) {
	fragment = ledger.NormalizeFragment(fragment)
	if fragment == "" {
		return nil, s.messenger.SendText(ctx, seller.Phone, "Please tell me which invoice to send.\n\nExample: *resend TEJ001-022026*")
	}
	records, err := s.store.FindByFragment(ctx, seller.Phone, fragment)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("❌ Could not look up your invoices right now. Please try again in a minute.").
			Mark(ierr.ErrPersistence)
	}
	rec, outcome := ledger.Resolve(records, fragment)
	if outcome == ledger.OutcomeNotFound {
		return nil, s.messenger.SendText(ctx, seller.Phone, cancelOutcomeMessage(&ledger.CancelResult{Outcome: outcome, Fragment: fragment}))
	}

	if _, err := s.deliver(ctx, seller, rec); err != nil {
		return rec, ierr.WithError(err).
			WithHint(undeliveredMessage(rec)).
			Mark(ierr.ErrDelivery)
	}
	s.logger.WithFields(logrus.Fields{
		"seller":         seller.Phone,
		"invoice_number": rec.InvoiceNumber,
	}).Info("Document resent")
	return rec, nil
}

// Cancel voids the invoice matching fragment, delivers the credit note and
// answers every other outcome with a text message
func (s *InvoiceService) Cancel(ctx context.Context, seller *models.Seller, fragment, reason string) (*ledger.CancelResult, error) {
	result, err := s.canceller.Cancel(ctx, seller.Phone, fragment, reason)
	if err != nil {
		return nil, err
	}

	if result.Outcome != ledger.OutcomeCancelled {
		return result, s.messenger.SendText(ctx, seller.Phone, cancelOutcomeMessage(result))
	}

	cn := result.CreditNote
	url, err := s.renderAndUpload(ctx, seller, cn, CreditNoteKey(seller, cn.InvoiceNumber))
	if err == nil {
		err = s.messenger.SendDocument(ctx, seller.Phone, creditNoteMessage(result), url)
	}
	if err != nil {
		return result, ierr.WithError(err).
			WithHint(undeliveredMessage(cn)).
			Mark(ierr.ErrDelivery)
	}

	s.publish(ctx, EventInvoiceCancelled, map[string]any{
		"seller_phone":   seller.Phone,
		"invoice_number": result.Invoice.InvoiceNumber,
		"credit_note":    cn.InvoiceNumber,
		"total_amount":   cn.TotalAmount.StringFixed(2),
		"reason":         cn.Reason,
		"pdf_url":        url,
	})
	return result, nil
}

// MonthlyReport reconciles the seller period, delivers the report PDF and
// mails a copy to the seller's accountant when one is registered
func (s *InvoiceService) MonthlyReport(ctx context.Context, seller *models.Seller, period ledger.Period) (*models.MonthlyReport, error) {
	report, err := s.aggregator.Monthly(ctx, seller, period)
	if err != nil {
		return nil, err
	}

	if report.Empty {
		msg := fmt.Sprintf("📭 No invoices for %s %d.\n\nSend a voice note to create your first invoice.", report.MonthName(), report.Year)
		return report, s.messenger.SendText(ctx, seller.Phone, msg)
	}

	data, err := s.generator.RenderReport(report)
	if err != nil {
		return report, ierr.WithError(err).
			WithHint("❌ Could not create the report PDF. Please try again.").
			Mark(ierr.ErrSystem)
	}
	url, err := s.files.Upload(ctx, ReportKey(seller, report), data, contentTypePDF)
	if err != nil {
		return report, err
	}
	if err := s.messenger.SendDocument(ctx, seller.Phone, reportMessage(report), url); err != nil {
		return report, err
	}

	if s.mailer != nil && seller.AccountantEmail != "" {
		if err := s.mailer.SendMonthlyReport(ctx, seller.AccountantEmail, report, url); err != nil {
			// the seller already has the PDF
			s.logger.WithFields(logrus.Fields{
				"seller": seller.Phone,
				"to":     seller.AccountantEmail,
				"error":  err.Error(),
			}).Warn("Accountant report e-mail failed")
		}
	}

	s.publish(ctx, EventReportGenerated, map[string]any{
		"seller_phone": seller.Phone,
		"period":       period.Suffix(),
		"invoices":     report.Summary.TotalInvoices,
		"net_tax":      report.Summary.NetTax.StringFixed(2),
		"pdf_url":      url,
	})
	return report, nil
}

func (s *InvoiceService) deliver(ctx context.Context, seller *models.Seller, rec *models.InvoiceRecord) (string, error) {
	key := InvoiceKey(seller, rec.InvoiceNumber)
	if rec.IsCreditNote() {
		key = CreditNoteKey(seller, rec.InvoiceNumber)
	}
	url, err := s.renderAndUpload(ctx, seller, rec, key)
	if err != nil {
		return "", err
	}
	if err := s.messenger.SendDocument(ctx, seller.Phone, readyMessage(rec), url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *InvoiceService) renderAndUpload(ctx context.Context, seller *models.Seller, rec *models.InvoiceRecord, key string) (string, error) {
	data, err := s.generator.RenderInvoice(rec, seller)
	if err != nil {
		return "", err
	}

	url, err := s.files.Upload(ctx, key, data, contentTypePDF)
	if err != nil {
		return "", err
	}
	rec.PDFURL = url

	if err := s.store.SetPDFURL(ctx, rec.ID, url); err != nil {
		s.logger.WithFields(logrus.Fields{
			"invoice_number": rec.InvoiceNumber,
			"error":          err.Error(),
		}).Warn("Could not store PDF URL")
	}
	return url, nil
}

func (s *InvoiceService) publish(ctx context.Context, name string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, name, data); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event": name,
			"error": err.Error(),
		}).Warn("Event publish failed")
	}
}

// WholeRupees renders d rounded to whole rupees with separators
func WholeRupees(d decimal.Decimal) string {
	return strings.TrimSuffix(FormatAmount(d.Round(0)), ".00")
}

func readyMessage(rec *models.InvoiceRecord) string {
	return fmt.Sprintf("✅ *Your %s is Ready!*\n\n📋 %s\n👤 %s\n💰 ₹%s\n\nPowered by *GutInvoice* 🎙️\n_Every Invoice has a Voice_",
		titleCase(string(rec.DocumentType)), rec.InvoiceNumber, rec.CustomerName, WholeRupees(rec.TotalAmount))
}

func undeliveredMessage(rec *models.InvoiceRecord) string {
	head := fmt.Sprintf("⚠️ %s *%s* is saved, but its PDF could not be sent.\n\n", titleCase(string(rec.DocumentType)), rec.InvoiceNumber)
	if rec.IsCreditNote() {
		return head + fmt.Sprintf("Reply *resend %s* to get the PDF.", rec.InvoiceNumber)
	}
	return head + fmt.Sprintf("Please do not send the details again. Reply *resend %s* to get the PDF, or *cancel %s* to void it.",
		rec.InvoiceNumber, rec.InvoiceNumber)
}

func creditNoteMessage(result *ledger.CancelResult) string {
	cn := result.CreditNote
	return fmt.Sprintf("✅ *Invoice %s cancelled*\n\n📋 Credit Note %s\n👤 %s\n💰 ₹%s reversed\n\nThis credit note will reduce your GST for this month.",
		result.Invoice.InvoiceNumber, cn.InvoiceNumber, cn.CustomerName, WholeRupees(cn.TotalAmount))
}

func cancelOutcomeMessage(result *ledger.CancelResult) string {
	switch result.Outcome {
	case ledger.OutcomeAlreadyCancelled:
		return fmt.Sprintf("ℹ️ Invoice %s is already cancelled.", result.Invoice.InvoiceNumber)
	case ledger.OutcomeNotCancellable:
		return fmt.Sprintf("❌ %s is a credit note and cannot be cancelled.", result.Invoice.InvoiceNumber)
	default:
		if result.Fragment == "" {
			return "Please tell me which invoice to cancel.\n\nExample: *cancel TEJ001-022026*"
		}
		return fmt.Sprintf("❌ No invoice found matching *%s*.\n\nCheck the number and try again, e.g. *cancel TEJ001-022026*", result.Fragment)
	}
}

func reportMessage(report *models.MonthlyReport) string {
	s := report.Summary
	return fmt.Sprintf("📊 *GST Report %s %d*\n\n🧾 %d invoices\n💼 Taxable ₹%s\n🏛️ Net GST payable ₹%s\n\nShare this report with your Chartered Accountant.",
		report.MonthName(), report.Year, s.TotalInvoices, WholeRupees(s.NetTaxable), WholeRupees(s.NetTax))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
