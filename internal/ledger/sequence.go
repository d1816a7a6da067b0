package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

// DefaultPrefix is used when a business name has fewer than three letters
const DefaultPrefix = "GUT"

// CreditNotePrefix is prepended to the voided invoice number
const CreditNotePrefix = "CN-"

// DerivePrefix returns the first three ASCII letters of name, uppercased
func DerivePrefix(businessName string) string {
	var b strings.Builder
	for _, r := range businessName {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == 3 {
			return b.String()
		}
	}
	return DefaultPrefix
}

// FormatNumber renders {PREFIX}{SEQ:03d}-{MM}{YYYY}
func FormatNumber(prefix string, seq int, period Period) string {
	return fmt.Sprintf("%s%03d-%s", prefix, seq, period.Suffix())
}

// CreditNoteNumber returns the credit note number for a voided invoice
func CreditNoteNumber(invoiceNumber string) string {
	return CreditNotePrefix + invoiceNumber
}

// Allocator assigns invoice numbers
type Allocator struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewAllocator creates a new allocator
func NewAllocator(store Store, logger *logrus.Logger) *Allocator {
	return &Allocator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Issue allocates the next invoice number of the seller period and
// persists rec under it. Period fields, status and timestamps are set here.
func (a *Allocator) Issue(ctx context.Context, seller *models.Seller, rec *models.InvoiceRecord) error {
	now := a.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	period := PeriodOf(rec.CreatedAt)
	prefix := DerivePrefix(seller.BusinessName)

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.SellerPhone = seller.Phone
	rec.PeriodMonth = period.Month
	rec.PeriodYear = period.Year
	rec.Status = models.InvoiceStatusActive
	if rec.InvoiceDate == "" {
		rec.InvoiceDate = rec.CreatedAt.In(IST).Format(models.InvoiceDateLayout)
	}

	key := SequenceKey{SellerPhone: seller.Phone, Kind: SequenceInvoice, Period: period}
	err := a.store.IssueInvoice(ctx, key, rec, func(seq int) string {
		return FormatNumber(prefix, seq, period)
	})
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"seller": seller.Phone,
			"period": period.Suffix(),
			"error":  err.Error(),
		}).Error("Invoice sequence allocation failed")
		return ierr.WithError(err).
			WithHint("❌ Could not number your invoice right now. Please try again in a minute.").
			Mark(ierr.ErrPersistence)
	}

	a.logger.WithFields(logrus.Fields{
		"seller":         seller.Phone,
		"invoice_number": rec.InvoiceNumber,
		"sequence":       rec.Sequence,
	}).Info("Invoice number allocated")
	return nil
}
