package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tallbag/gutinvoice/internal/models"
)

type LedgerScenarioSuite struct {
	suite.Suite
	ctx        context.Context
	store      *MemoryStore
	allocator  *Allocator
	canceller  *Canceller
	aggregator *Aggregator
	seller     *models.Seller
}

func TestLedgerScenario(t *testing.T) {
	suite.Run(t, new(LedgerScenarioSuite))
}

func (s *LedgerScenarioSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	logger := quietLogger()
	s.allocator = NewAllocator(s.store, logger)
	s.allocator.now = clockAt(feb2026)
	s.canceller = NewCanceller(s.store, logger)
	s.canceller.now = clockAt(feb2026.Add(time.Hour))
	s.aggregator = NewAggregator(s.store, logger)
	s.aggregator.now = clockAt(feb2026.Add(48 * time.Hour))
	s.seller = &models.Seller{
		Phone:        "whatsapp:+919876543210",
		BusinessName: "Tejesh Traders",
		GSTIN:        "36ABCDE1234F1Z5",
	}
}

func (s *LedgerScenarioSuite) TestCancelAndReissue() {
	first := taxInvoice("1000", "6205")
	s.Require().NoError(s.allocator.Issue(s.ctx, s.seller, first))
	s.Equal("TEJ001-022026", first.InvoiceNumber)

	res, err := s.canceller.Cancel(s.ctx, s.seller.Phone, "TEJ001-022026", "")
	s.Require().NoError(err)
	s.Equal(OutcomeCancelled, res.Outcome)
	s.Equal("CN-TEJ001-022026", res.CreditNote.InvoiceNumber)
	s.True(res.CreditNote.TotalAmount.Equal(first.TotalAmount))

	s.allocator.now = clockAt(feb2026.Add(2 * time.Hour))
	second := taxInvoice("2000", "6205")
	s.Require().NoError(s.allocator.Issue(s.ctx, s.seller, second))
	s.Equal("TEJ002-022026", second.InvoiceNumber)

	report, err := s.aggregator.Monthly(s.ctx, s.seller, Period{Year: 2026, Month: 2})
	s.Require().NoError(err)
	s.False(report.Empty)

	sum := report.Summary
	s.Equal(2, sum.TotalInvoices)
	s.Equal(1, sum.ActiveInvoices)
	s.Equal(1, sum.CancelledInvoices)
	s.Equal(1, sum.CreditNotes)

	// gross covers both invoices, net only the live one
	s.True(sum.GrossTaxable.Equal(dec("3000")), sum.GrossTaxable.String())
	s.True(sum.GrossCGST.Equal(dec("270")), sum.GrossCGST.String())
	s.True(sum.GrossTax.Equal(dec("540")), sum.GrossTax.String())
	s.True(sum.ReversedTax.Equal(dec("180")), sum.ReversedTax.String())
	s.True(sum.NetTax.Equal(dec("360")), sum.NetTax.String())
	s.True(sum.NetTax.Equal(sum.GrossTax.Sub(sum.ReversedTax)))
	s.True(sum.NetTaxable.Equal(second.TaxableValue))

	s.Len(report.TaxInvoices.Lines, 2)
	s.Equal(models.InvoiceStatusCancelled, report.TaxInvoices.Lines[0].Status)
	s.True(report.TaxInvoices.Lines[0].Cancelled())
	s.Len(report.CreditNotes, 1)
	s.Equal("TEJ001-022026", report.CreditNotes[0].OriginalInvoiceNumber)

	// HSN covers the active invoice only
	s.Require().Len(report.HSN, 1)
	s.True(report.HSN[0].TaxableValue.Equal(dec("2000")))
	s.True(report.HSN[0].TotalTax().Equal(dec("360")))
}

func (s *LedgerScenarioSuite) TestEmptyPeriod() {
	report, err := s.aggregator.Monthly(s.ctx, s.seller, Period{Year: 2026, Month: 1})
	s.Require().NoError(err)
	s.True(report.Empty)
	s.Zero(report.Summary.TotalInvoices)
	s.True(report.Summary.NetTax.IsZero())
}

func TestAggregateCategories(t *testing.T) {
	seller := &models.Seller{Phone: "p1", BusinessName: "Shop"}
	period := Period{Year: 2026, Month: 2}

	taxed := taxInvoice("100", "1001")
	taxed.Status = models.InvoiceStatusActive
	taxed.CreatedAt = feb2026

	bill := &models.InvoiceRecord{
		DocumentType: models.DocumentTypeBillOfSupply,
		Status:       models.InvoiceStatusActive,
		TaxableValue: dec("500"),
		TotalAmount:  dec("500"),
		Items:        []models.LineItem{{Description: "Rice", Amount: dec("500"), Quantity: dec("5")}},
		CreatedAt:    feb2026.Add(time.Minute),
	}
	plain := &models.InvoiceRecord{
		DocumentType: models.DocumentTypeInvoice,
		Status:       models.InvoiceStatusActive,
		TaxableValue: dec("50"),
		TotalAmount:  dec("50"),
		CreatedAt:    feb2026.Add(2 * time.Minute),
	}
	// "TAX" wins over "BILL"
	mixed := taxInvoice("10", "1001")
	mixed.DocumentType = "TAX BILL"
	mixed.Status = models.InvoiceStatusActive
	mixed.CreatedAt = feb2026.Add(3 * time.Minute)

	report := Aggregate(seller, period, []*models.InvoiceRecord{plain, bill, taxed, mixed}, feb2026)

	assert.Equal(t, 2, report.TaxInvoices.Count)
	assert.Equal(t, 1, report.Bills.Count)
	assert.Equal(t, 1, report.NonGST.Count)
	assert.True(t, report.TaxInvoices.TaxableValue.Equal(dec("110")))
	assert.True(t, report.Bills.TaxableValue.Equal(dec("500")))
	assert.Equal(t, "Rice", report.Bills.Lines[0].Description)

	// unclassified lines group under NA, sorted after coded rows
	require.Len(t, report.HSN, 2)
	assert.Equal(t, "1001", report.HSN[0].HSNSAC)
	assert.Equal(t, UnclassifiedHSN, report.HSN[1].HSNSAC)
	assert.True(t, report.HSN[1].TaxableValue.Equal(dec("550")))
}

func TestAggregateHSNProrationKeepsInvoiceTotals(t *testing.T) {
	inv := &models.InvoiceRecord{
		DocumentType: models.DocumentTypeTaxInvoice,
		Status:       models.InvoiceStatusActive,
		Items: []models.LineItem{
			{HSNSAC: "6205", Description: "Shirts", Quantity: dec("1"), Amount: dec("33.33")},
			{HSNSAC: "6203", Description: "Trousers", Quantity: dec("1"), Amount: dec("33.33")},
			{HSNSAC: "6205", Description: "Shirts", Quantity: dec("1"), Amount: dec("33.34")},
		},
		TaxableValue: dec("100"),
		CGSTAmount:   dec("9"),
		SGSTAmount:   dec("9"),
		TotalAmount:  dec("118"),
		CreatedAt:    feb2026,
	}

	report := Aggregate(&models.Seller{Phone: "p1"}, Period{Year: 2026, Month: 2}, []*models.InvoiceRecord{inv}, feb2026)

	require.Len(t, report.HSN, 2)
	total := dec("0")
	taxable := dec("0")
	for _, row := range report.HSN {
		total = total.Add(row.CGST)
		taxable = taxable.Add(row.TaxableValue)
	}
	assert.True(t, total.Equal(dec("9")), total.String())
	assert.True(t, taxable.Equal(dec("100")), taxable.String())
	assert.Equal(t, "6203", report.HSN[0].HSNSAC)
	assert.True(t, report.HSN[1].Quantity.Equal(dec("2")))
}

func TestAggregateNetInvariant(t *testing.T) {
	var records []*models.InvoiceRecord
	for i := 0; i < 6; i++ {
		inv := taxInvoice("1000", "6205")
		inv.CreatedAt = feb2026.Add(time.Duration(i) * time.Minute)
		inv.Status = models.InvoiceStatusActive
		if i%2 == 0 {
			inv.Status = models.InvoiceStatusCancelled
			records = append(records, BuildCreditNote(inv, "", feb2026.Add(time.Hour)))
		}
		records = append(records, inv)
	}

	report := Aggregate(&models.Seller{Phone: "p1"}, Period{Year: 2026, Month: 2}, records, feb2026)
	sum := report.Summary

	assert.True(t, sum.NetTax.Equal(sum.GrossTax.Sub(sum.ReversedTax)))
	assert.True(t, sum.NetCGST.Equal(sum.GrossCGST.Sub(sum.ReversedCGST)))
	assert.True(t, sum.GrossTax.Equal(dec("1080")), sum.GrossTax.String())
	assert.True(t, sum.NetTax.Equal(dec("540")), sum.NetTax.String())
	assert.True(t, report.CreditNoteSums.Total.Equal(dec("3540")))
}
