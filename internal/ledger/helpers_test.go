package ledger

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/models"
)

var feb2026 = time.Date(2026, time.February, 10, 11, 0, 0, 0, IST)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// taxInvoice builds an intra-state 18% tax invoice for one line
func taxInvoice(taxable string, hsn string) *models.InvoiceRecord {
	value := dec(taxable)
	half := value.Mul(dec("0.09")).Round(2)
	return &models.InvoiceRecord{
		DocumentType: models.DocumentTypeTaxInvoice,
		CustomerName: "Ravi Kumar",
		Items: []models.LineItem{{
			SNo: 1, Description: "Cotton shirts", HSNSAC: hsn,
			Quantity: dec("10"), Unit: "Nos", Rate: value.Div(dec("10")), Amount: value,
		}},
		TaxableValue: value,
		CGSTRate:     dec("9"),
		CGSTAmount:   half,
		SGSTRate:     dec("9"),
		SGSTAmount:   half,
		TotalAmount:  value.Add(half).Add(half),
	}
}

func record(number string, docType models.DocumentType, status models.InvoiceStatus, created time.Time) *models.InvoiceRecord {
	return &models.InvoiceRecord{
		ID:            uuid.New(),
		SellerPhone:   "whatsapp:+919876543210",
		InvoiceNumber: number,
		DocumentType:  docType,
		Status:        status,
		CreatedAt:     created,
	}
}

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) IssueInvoice(context.Context, SequenceKey, *models.InvoiceRecord, NumberFunc) error {
	return f.err
}

func (f *failingStore) FindByFragment(context.Context, string, string) ([]*models.InvoiceRecord, error) {
	return nil, f.err
}

func (f *failingStore) ListByPeriod(context.Context, string, Period) ([]*models.InvoiceRecord, error) {
	return nil, f.err
}

var errStoreDown = errors.New("store down")
