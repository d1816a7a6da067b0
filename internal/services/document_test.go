package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
)

func TestAmountInWords(t *testing.T) {
	cases := map[string]string{
		"0":         "Zero Rupees Only",
		"7":         "Seven Rupees Only",
		"47200":     "Forty Seven Thousand Two Hundred Rupees Only",
		"11800.75":  "Eleven Thousand Eight Hundred Rupees Only",
		"100000":    "One Lakh Rupees Only",
		"123456789": "Twelve Crore Thirty Four Lakh Fifty Six Thousand Seven Hundred Eighty Nine Rupees Only",
	}
	for in, want := range cases {
		assert.Equal(t, want, AmountInWords(dec(in)), in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", FormatAmount(dec("0")))
	assert.Equal(t, "999.00", FormatAmount(dec("999")))
	assert.Equal(t, "1,234,567.50", FormatAmount(dec("1234567.5")))
	assert.Equal(t, "-1,500.00", FormatAmount(dec("-1500")))
	assert.Equal(t, "Rs. 47,200.00", Rupees(dec("47200")))
	assert.Equal(t, "47,200", WholeRupees(dec("47199.6")))
}

func issuedTaxInvoice(t *testing.T) *models.InvoiceRecord {
	t.Helper()
	rec, err := BuildInvoiceRecord(ironRods(), tejesh())
	require.NoError(t, err)
	rec.InvoiceNumber = "TEJ001-022026"
	rec.InvoiceDate = "10/02/2026"
	rec.Status = models.InvoiceStatusActive
	return rec
}

func TestRenderTaxInvoiceRoundTrip(t *testing.T) {
	gen := NewDocumentGenerator(quietLogger(), false)
	rec := issuedTaxInvoice(t)

	data, err := gen.RenderInvoice(rec, tejesh())
	require.NoError(t, err)

	text, err := ExtractText(data)
	require.NoError(t, err)
	text = compact(text)
	for _, want := range []string{
		"TEJ001-022026", "TAXINVOICE", "TejeshTraders", "36ABCDE1234F1Z5",
		"Rs.40,000.00", "CGST@9%", "Rs.3,600.00", "GRANDTOTAL", "Rs.47,200.00",
		"FortySevenThousandTwoHundredRupeesOnly", compact(FooterBrand), compact(FooterDisclaimer),
	} {
		assert.Contains(t, text, want)
	}
}

func TestRenderBillOfSupplyHasNoTax(t *testing.T) {
	gen := NewDocumentGenerator(quietLogger(), true)
	ex := ironRods()
	ex.InvoiceType = "BILL OF SUPPLY"
	rec, err := BuildInvoiceRecord(ex, tejesh())
	require.NoError(t, err)
	rec.InvoiceNumber = "TEJ002-022026"

	data, err := gen.RenderInvoice(rec, tejesh())
	require.NoError(t, err)
	text, err := ExtractText(data)
	require.NoError(t, err)
	text = compact(text)
	assert.Contains(t, text, "BILLOFSUPPLY")
	assert.Contains(t, text, "SubTotal")
	assert.Contains(t, text, "Rs.40,000.00")
	assert.NotContains(t, text, "CGST@")
}

func TestRenderCreditNote(t *testing.T) {
	gen := NewDocumentGenerator(quietLogger(), true)
	original := issuedTaxInvoice(t)
	cn := ledger.BuildCreditNote(original, "Wrong customer", time.Date(2026, time.February, 12, 10, 0, 0, 0, ledger.IST))
	cn.InvoiceDate = "12/02/2026"

	data, err := gen.RenderInvoice(cn, tejesh())
	require.NoError(t, err)
	text, err := ExtractText(data)
	require.NoError(t, err)
	text = compact(text)
	for _, want := range []string{
		"CREDITNOTE", "CN-TEJ001-022026", "AgainstInvoiceNo", "TEJ001-022026",
		"Wrongcustomer", "TaxableValueReversed", "(Reversed)", "TOTALCREDITAMOUNT", "Rs.47,200.00",
	} {
		assert.Contains(t, text, want)
	}
}

func TestRenderReport(t *testing.T) {
	gen := NewDocumentGenerator(quietLogger(), false)
	seller := tejesh()
	period := ledger.Period{Year: 2026, Month: 2}

	first := issuedTaxInvoice(t)
	first.CreatedAt = time.Date(2026, time.February, 10, 10, 0, 0, 0, ledger.IST)
	second := issuedTaxInvoice(t)
	second.InvoiceNumber = "TEJ002-022026"
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.Status = models.InvoiceStatusCancelled
	cn := ledger.BuildCreditNote(second, "", second.CreatedAt.Add(time.Hour))

	report := ledger.Aggregate(seller, period, []*models.InvoiceRecord{first, second, cn}, time.Now())
	data, err := gen.RenderReport(report)
	require.NoError(t, err)

	text, err := ExtractText(data)
	require.NoError(t, err)
	text = compact(text)
	for _, want := range []string{
		"InvoiceNo", "Status", "TEJ001-022026", "TEJ002-022026", "CANCELLED", "SECTIOND-HSN-WISETAXSUMMARY", "7214",
		"SECTIONE-CREDITNOTES(CancelledInvoices)", "CN-TEJ002-022026",
		"FINALTAXLIABILITYSUMMARY", "NETGSTPAYABLETOGOVERNMENT", "Rs.7,200.00",
		"Noinvoicesinthiscategory.",
	} {
		assert.Contains(t, text, want)
	}
}

func TestRenderReportKeepsLargeAmounts(t *testing.T) {
	gen := NewDocumentGenerator(quietLogger(), false)
	ex := ironRods()
	ex.Items[0].Quantity = amount("1000")
	rec, err := BuildInvoiceRecord(ex, tejesh())
	require.NoError(t, err)
	rec.InvoiceNumber = "TEJ001-022026"
	rec.InvoiceDate = "10/02/2026"
	rec.CreatedAt = time.Date(2026, time.February, 10, 10, 0, 0, 0, ledger.IST)
	rec.Status = models.InvoiceStatusCancelled
	cn := ledger.BuildCreditNote(rec, "", rec.CreatedAt.Add(time.Hour))

	report := ledger.Aggregate(tejesh(), ledger.Period{Year: 2026, Month: 2}, []*models.InvoiceRecord{rec, cn}, time.Now())
	data, err := gen.RenderReport(report)
	require.NoError(t, err)
	text, err := ExtractText(data)
	require.NoError(t, err)
	text = compact(text)

	assert.Contains(t, text, "TEJ001-022026"+"10/02/2026"+"Suresh"+"CANCELLED"+"800,000.0072,000.0072,000.000.00944,000.00")
	assert.Contains(t, text, "944,000.00TOTAL(1)800,000.0072,000.0072,000.000.00944,000.00")
}

func TestRenderEmptyReport(t *testing.T) {
	gen := NewDocumentGenerator(quietLogger(), false)
	report := ledger.Aggregate(tejesh(), ledger.Period{Year: 2026, Month: 3}, nil, time.Now())

	data, err := gen.RenderReport(report)
	require.NoError(t, err)
	text, err := ExtractText(data)
	require.NoError(t, err)
	assert.Contains(t, compact(text), "NoinvoicesforMarch2026.")
}

func TestVerifyDocument(t *testing.T) {
	gen := NewDocumentGenerator(quietLogger(), false)
	data, err := gen.RenderInvoice(issuedTaxInvoice(t), tejesh())
	require.NoError(t, err)

	assert.NoError(t, VerifyDocument(data, "TEJ001-022026", "GRAND TOTAL"))
	assert.Error(t, VerifyDocument(data, "TEJ999-022026"))

	_, err = ExtractText([]byte("not a pdf"))
	assert.Error(t, err)
}
