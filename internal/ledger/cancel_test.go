package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

func TestNormalizeFragment(t *testing.T) {
	assert.Equal(t, "TEJ002-022026", NormalizeFragment("  tej 002-022026 "))
	assert.Equal(t, "002-022026", NormalizeFragment("002-022026"))
	assert.Equal(t, "", NormalizeFragment(" \t"))
}

func TestResolve(t *testing.T) {
	base := feb2026
	active1 := record("TEJ001-022026", models.DocumentTypeTaxInvoice, models.InvoiceStatusActive, base)
	active2 := record("TEJ002-022026", models.DocumentTypeTaxInvoice, models.InvoiceStatusActive, base.Add(time.Hour))
	active12 := record("TEJ012-022026", models.DocumentTypeTaxInvoice, models.InvoiceStatusActive, base.Add(2*time.Hour))
	voided := record("TEJ003-022026", models.DocumentTypeTaxInvoice, models.InvoiceStatusCancelled, base.Add(3*time.Hour))
	cn := record("CN-TEJ003-022026", models.DocumentTypeCreditNote, models.InvoiceStatusActive, base.Add(4*time.Hour))
	all := []*models.InvoiceRecord{active1, active2, active12, voided, cn}

	tests := []struct {
		name     string
		fragment string
		want     *models.InvoiceRecord
		outcome  CancelOutcome
	}{
		{name: "exact", fragment: "TEJ002-022026", want: active2, outcome: OutcomeCancelled},
		{name: "lowercase exact", fragment: "tej001-022026", want: active1, outcome: OutcomeCancelled},
		{name: "bare fragment suffix", fragment: "002-022026", want: active2, outcome: OutcomeCancelled},
		{name: "suffix match", fragment: "12-022026", want: active12, outcome: OutcomeCancelled},
		{name: "substring picks most recent", fragment: "TEJ0", want: active12, outcome: OutcomeCancelled},
		{name: "only void matches", fragment: "TEJ003-022026", want: voided, outcome: OutcomeAlreadyCancelled},
		{name: "credit note", fragment: "CN-TEJ003-022026", want: cn, outcome: OutcomeNotCancellable},
		{name: "no match", fragment: "999-022026", want: nil, outcome: OutcomeNotFound},
		{name: "empty", fragment: " ", want: nil, outcome: OutcomeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := Resolve(all, tt.fragment)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCreditNoteCopiesAmounts(t *testing.T) {
	original := taxInvoice("1234.56", "6205")
	original.InvoiceNumber = "TEJ001-022026"
	original.InvoiceDate = "10/02/2026"
	original.SellerPhone = "p1"
	original.CustomerGSTIN = "36ABCDE1234F1Z5"
	original.IGSTRate = dec("0")

	cn := BuildCreditNote(original, "", time.Date(2026, time.March, 2, 9, 0, 0, 0, IST))

	assert.Equal(t, "CN-TEJ001-022026", cn.InvoiceNumber)
	assert.Equal(t, models.DocumentTypeCreditNote, cn.DocumentType)
	assert.Equal(t, models.DefaultCancelReason, cn.Reason)
	assert.Equal(t, "TEJ001-022026", cn.OriginalInvoiceNumber)
	assert.Equal(t, "10/02/2026", cn.OriginalInvoiceDate)
	assert.Equal(t, "02/03/2026", cn.InvoiceDate)
	assert.Equal(t, 3, cn.PeriodMonth)
	assert.True(t, cn.TaxableValue.Equal(original.TaxableValue))
	assert.True(t, cn.CGSTAmount.Equal(original.CGSTAmount))
	assert.True(t, cn.SGSTAmount.Equal(original.SGSTAmount))
	assert.True(t, cn.IGSTAmount.Equal(original.IGSTAmount))
	assert.True(t, cn.TotalAmount.Equal(original.TotalAmount))
	assert.Equal(t, original.Items, cn.Items)
	assert.Equal(t, original.CustomerGSTIN, cn.CustomerGSTIN)

	// Items are copied, not shared
	cn.Items[0].Description = "changed"
	assert.Equal(t, "Cotton shirts", original.Items[0].Description)
}

func TestCancellerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logger := quietLogger()
	alloc := NewAllocator(store, logger)
	alloc.now = clockAt(feb2026)
	canceller := NewCanceller(store, logger)
	canceller.now = clockAt(feb2026.Add(time.Hour))
	seller := &models.Seller{Phone: "p1", BusinessName: "Tejesh Traders"}

	inv := taxInvoice("1000", "6205")
	require.NoError(t, alloc.Issue(ctx, seller, inv))

	res, err := canceller.Cancel(ctx, seller.Phone, "001-022026", "Wrong amount")
	require.NoError(t, err)
	require.Equal(t, OutcomeCancelled, res.Outcome)
	require.NotNil(t, res.CreditNote)
	assert.Equal(t, "CN-TEJ001-022026", res.CreditNote.InvoiceNumber)
	assert.Equal(t, 1, res.CreditNote.Sequence)
	assert.Equal(t, "Wrong amount", res.CreditNote.Reason)
	assert.True(t, res.CreditNote.TotalAmount.Equal(inv.TotalAmount))
	assert.Equal(t, models.InvoiceStatusCancelled, res.Invoice.Status)

	stored, ok := store.Get(seller.Phone, "TEJ001-022026")
	require.True(t, ok)
	assert.Equal(t, models.InvoiceStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)

	again, err := canceller.Cancel(ctx, seller.Phone, "TEJ001-022026", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCancelled, again.Outcome)
	assert.Nil(t, again.CreditNote)

	cnAgain, err := canceller.Cancel(ctx, seller.Phone, "CN-TEJ001-022026", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotCancellable, cnAgain.Outcome)

	records, err := store.ListByPeriod(ctx, seller.Phone, Period{Year: 2026, Month: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCancellerConcurrentCancelIssuesOneCreditNote(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logger := quietLogger()
	alloc := NewAllocator(store, logger)
	alloc.now = clockAt(feb2026)
	seller := &models.Seller{Phone: "p1", BusinessName: "Tejesh Traders"}
	require.NoError(t, alloc.Issue(ctx, seller, taxInvoice("1000", "6205")))

	canceller := NewCanceller(store, logger)
	canceller.now = clockAt(feb2026.Add(time.Hour))

	const n = 10
	var wg sync.WaitGroup
	outcomes := make(chan CancelOutcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := canceller.Cancel(ctx, seller.Phone, "TEJ001-022026", "")
			if err == nil {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	cancelled := 0
	for o := range outcomes {
		if o == OutcomeCancelled {
			cancelled++
		} else {
			assert.Equal(t, OutcomeAlreadyCancelled, o)
		}
	}
	assert.Equal(t, 1, cancelled)

	records, err := store.ListByPeriod(ctx, seller.Phone, Period{Year: 2026, Month: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCancellerLookupFailure(t *testing.T) {
	canceller := NewCanceller(&failingStore{MemoryStore: NewMemoryStore(), err: errStoreDown}, quietLogger())

	res, err := canceller.Cancel(context.Background(), "p1", "TEJ001-022026", "")

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, ierr.IsPersistence(err))
}
