package ledger

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

// CancelOutcome is the result of a cancellation request
type CancelOutcome string

const (
	OutcomeCancelled        CancelOutcome = "cancelled"
	OutcomeNotFound         CancelOutcome = "not_found"
	OutcomeAlreadyCancelled CancelOutcome = "already_cancelled"
	OutcomeNotCancellable   CancelOutcome = "not_cancellable"
)

// CancelResult describes what a cancellation did. Invoice is the matched
// record, if any. CreditNote is set only when the outcome is cancelled.
type CancelResult struct {
	Outcome    CancelOutcome         `json:"outcome"`
	Fragment   string                `json:"fragment"`
	Invoice    *models.InvoiceRecord `json:"invoice,omitempty"`
	CreditNote *models.InvoiceRecord `json:"credit_note,omitempty"`
}

// NormalizeFragment uppercases a user supplied number and drops whitespace
func NormalizeFragment(fragment string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, fragment)
}

type matchTier func(number, fragment string) bool

var matchTiers = []matchTier{
	func(n, f string) bool { return n == f },
	strings.HasSuffix,
	strings.Contains,
}

// matchFirst applies exact, suffix and substring matching in that order.
// records must be newest first so the most recent wins within a tier.
func matchFirst(records []*models.InvoiceRecord, fragment string) *models.InvoiceRecord {
	for _, tier := range matchTiers {
		for _, rec := range records {
			if tier(strings.ToUpper(rec.InvoiceNumber), fragment) {
				return rec
			}
		}
	}
	return nil
}

// Resolve finds the invoice a fragment refers to. Active invoices are tried
// first; only when none matches are void invoices and credit notes consulted
// to explain the rejection.
func Resolve(records []*models.InvoiceRecord, fragment string) (*models.InvoiceRecord, CancelOutcome) {
	fragment = NormalizeFragment(fragment)
	if fragment == "" {
		return nil, OutcomeNotFound
	}
	sorted := make([]*models.InvoiceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	eligible := make([]*models.InvoiceRecord, 0, len(sorted))
	for _, rec := range sorted {
		if rec.IsActive() && !rec.IsCreditNote() {
			eligible = append(eligible, rec)
		}
	}
	if rec := matchFirst(eligible, fragment); rec != nil {
		return rec, OutcomeCancelled
	}

	rec := matchFirst(sorted, fragment)
	switch {
	case rec == nil:
		return nil, OutcomeNotFound
	case rec.IsCreditNote():
		return rec, OutcomeNotCancellable
	default:
		return rec, OutcomeAlreadyCancelled
	}
}

// BuildCreditNote creates the reversal of original. Monetary fields and
// line items are copied, never recomputed.
func BuildCreditNote(original *models.InvoiceRecord, reason string, now time.Time) *models.InvoiceRecord {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultCancelReason
	}
	period := PeriodOf(now)
	items := make([]models.LineItem, len(original.Items))
	copy(items, original.Items)

	return &models.InvoiceRecord{
		ID:              uuid.New(),
		SellerPhone:     original.SellerPhone,
		InvoiceNumber:   CreditNoteNumber(original.InvoiceNumber),
		DocumentType:    models.DocumentTypeCreditNote,
		PeriodMonth:     period.Month,
		PeriodYear:      period.Year,
		InvoiceDate:     now.In(IST).Format(models.InvoiceDateLayout),
		Status:          models.InvoiceStatusActive,
		CustomerName:    original.CustomerName,
		CustomerAddress: original.CustomerAddress,
		CustomerGSTIN:   original.CustomerGSTIN,
		PlaceOfSupply:   original.PlaceOfSupply,
		ReverseCharge:   original.ReverseCharge,
		Items:           items,
		TaxableValue:    original.TaxableValue,
		CGSTRate:        original.CGSTRate,
		CGSTAmount:      original.CGSTAmount,
		SGSTRate:        original.SGSTRate,
		SGSTAmount:      original.SGSTAmount,
		IGSTRate:        original.IGSTRate,
		IGSTAmount:      original.IGSTAmount,
		TotalAmount:     original.TotalAmount,

		OriginalInvoiceNumber: original.InvoiceNumber,
		OriginalInvoiceDate:   original.InvoiceDate,
		Reason:                reason,
		CreatedAt:             now,
	}
}

// Canceller voids invoices and issues their credit notes
type Canceller struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewCanceller creates a new canceller
func NewCanceller(store Store, logger *logrus.Logger) *Canceller {
	return &Canceller{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Cancel voids the seller's invoice matching fragment and records its
// credit note. Lookup misses are outcomes, not errors.
func (c *Canceller) Cancel(ctx context.Context, sellerPhone, fragment, reason string) (*CancelResult, error) {
	normalized := NormalizeFragment(fragment)
	result := &CancelResult{Fragment: normalized, Outcome: OutcomeNotFound}
	if normalized == "" {
		return result, nil
	}

	records, err := c.store.FindByFragment(ctx, sellerPhone, normalized)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"seller":   sellerPhone,
			"fragment": normalized,
			"error":    err.Error(),
		}).Error("Invoice lookup failed")
		return nil, ierr.WithError(err).
			WithHint("❌ Could not look up your invoices right now. Please try again.").
			Mark(ierr.ErrPersistence)
	}

	match, outcome := Resolve(records, normalized)
	result.Invoice = match
	result.Outcome = outcome
	if outcome != OutcomeCancelled {
		c.logger.WithFields(logrus.Fields{
			"seller":   sellerPhone,
			"fragment": normalized,
			"outcome":  outcome,
		}).Info("Cancellation rejected")
		return result, nil
	}

	now := c.now()
	cn := BuildCreditNote(match, reason, now)
	key := SequenceKey{SellerPhone: sellerPhone, Kind: SequenceCreditNote, Period: PeriodOf(now)}

	voided, err := c.store.VoidWithCreditNote(ctx, match.ID, cn, key)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"seller":         sellerPhone,
			"invoice_number": match.InvoiceNumber,
			"error":          err.Error(),
		}).Error("Invoice void failed")
		return nil, ierr.WithError(err).
			WithHint("❌ Could not cancel the invoice right now. Please try again.").
			Mark(ierr.ErrPersistence)
	}
	if !voided {
		// Lost the race to a concurrent cancellation
		result.Outcome = OutcomeAlreadyCancelled
		return result, nil
	}

	match.Status = models.InvoiceStatusCancelled
	match.CancelledAt = &now
	result.CreditNote = cn

	c.logger.WithFields(logrus.Fields{
		"seller":         sellerPhone,
		"invoice_number": match.InvoiceNumber,
		"credit_note":    cn.InvoiceNumber,
	}).Info("Invoice cancelled")
	return result, nil
}
