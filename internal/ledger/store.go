package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/tallbag/gutinvoice/internal/models"
)

// SequenceKind selects one of the two counters of a seller period
type SequenceKind string

const (
	SequenceInvoice    SequenceKind = "invoice"
	SequenceCreditNote SequenceKind = "credit_note"
)

// SequenceKey identifies a counter
type SequenceKey struct {
	SellerPhone string
	Kind        SequenceKind
	Period      Period
}

// NumberFunc formats the document number for an allocated sequence
type NumberFunc func(seq int) string

// Store persists invoice records and their counters.
//
// IssueInvoice and VoidWithCreditNote must be atomic: a sequence is consumed
// only when the record using it is written, and an invoice is voided only
// together with the insertion of its credit note.
type Store interface {
	// IssueInvoice increments the counter of key, assigns the sequence and
	// the number produced by number to rec, and inserts rec. If the full
	// insert fails the store retries with the core columns only.
	IssueInvoice(ctx context.Context, key SequenceKey, rec *models.InvoiceRecord, number NumberFunc) error

	// SetPDFURL stores the public document link of a record
	SetPDFURL(ctx context.Context, id uuid.UUID, url string) error

	// FindByFragment returns every record of the seller whose number
	// contains fragment, newest first
	FindByFragment(ctx context.Context, sellerPhone, fragment string) ([]*models.InvoiceRecord, error)

	// VoidWithCreditNote flips the invoice to cancelled if it is still
	// active and inserts cn with the next credit note sequence of key.
	// It returns false, with nothing written, when the invoice was no
	// longer active.
	VoidWithCreditNote(ctx context.Context, originalID uuid.UUID, cn *models.InvoiceRecord, key SequenceKey) (bool, error)

	// ListByPeriod returns every record of the seller period, any status
	// and credit notes included, oldest first
	ListByPeriod(ctx context.Context, sellerPhone string, period Period) ([]*models.InvoiceRecord, error)
}
