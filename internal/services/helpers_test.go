package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
)

const testPhone = "whatsapp:+919876543210"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amount(s string) models.Amount {
	return models.NewAmount(dec(s))
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func tejesh() *models.Seller {
	return &models.Seller{
		Phone:          testPhone,
		BusinessName:   "Tejesh Traders",
		Address:        "Kukatpally, Hyderabad",
		GSTIN:          "36ABCDE1234F1Z5",
		Language:       models.LanguageEnglish,
		OnboardingStep: models.OnboardingComplete,
	}
}

type fakeExtractor struct {
	extraction   *models.Extraction
	err          error
	instructions []string
}

func (f *fakeExtractor) Extract(ctx context.Context, instruction string, seller *models.Seller) (*models.Extraction, error) {
	f.instructions = append(f.instructions, instruction)
	return f.extraction, f.err
}

type fakeTranscriber struct {
	transcript string
	err        error
	language   models.Language
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, language models.Language) (string, error) {
	f.language = language
	return f.transcript, f.err
}

type sentMessage struct {
	to       string
	body     string
	mediaURL string
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	audio   []byte
	sendErr error
}

func (f *fakeMessenger) SendText(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return f.sendErr
}

func (f *fakeMessenger) SendDocument(ctx context.Context, to, body, mediaURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, body: body, mediaURL: mediaURL})
	return f.sendErr
}

func (f *fakeMessenger) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	return f.audio, nil
}

func (f *fakeMessenger) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeEvents struct {
	names []string
}

func (f *fakeEvents) Publish(ctx context.Context, name string, data map[string]any) error {
	f.names = append(f.names, name)
	return nil
}

type fakeMailer struct {
	to []string
}

func (f *fakeMailer) SendMonthlyReport(ctx context.Context, to string, report *models.MonthlyReport, pdfURL string) error {
	f.to = append(f.to, to)
	return nil
}

// ironRods is 50 iron rods at Rs. 800 with the default 18% split
func ironRods() *models.Extraction {
	return &models.Extraction{
		InvoiceType:  "TAX INVOICE",
		CustomerName: "Suresh",
		Items: []models.ExtractedItem{{
			Description: "Iron rods",
			HSNSAC:      "7214",
			Quantity:    amount("50"),
			Unit:        "Nos",
			Rate:        amount("800"),
		}},
	}
}

type testEnv struct {
	store     *ledger.MemoryStore
	sellers   *MemorySellerStore
	extractor *fakeExtractor
	messenger *fakeMessenger
	events    *fakeEvents
	mailer    *fakeMailer
	invoices  *InvoiceService
	dir       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := quietLogger()
	env := &testEnv{
		store:     ledger.NewMemoryStore(),
		sellers:   NewMemorySellerStore(),
		extractor: &fakeExtractor{extraction: ironRods()},
		messenger: &fakeMessenger{audio: []byte("OggS")},
		events:    &fakeEvents{},
		mailer:    &fakeMailer{},
		dir:       t.TempDir(),
	}
	env.invoices = NewInvoiceService(InvoiceDeps{
		Store:     env.store,
		Extractor: env.extractor,
		Generator: NewDocumentGenerator(logger, true),
		Files:     NewStorageService(nil, env.dir, "http://localhost:8080", logger),
		Messenger: env.messenger,
		Events:    env.events,
		Mailer:    env.mailer,
	}, logger)
	return env
}
