package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
)

// Footer lines printed on every document
const (
	FooterBrand      = "Powered by GutInvoice, Every Invoice has a voice !!"
	FooterDeveloper  = "Developed by Tallbag Advisory and Tech Solutions Private Limited"
	FooterDisclaimer = "Disclaimer: Double check the Invoice details generated before sharing to anyone"
)

const (
	pageMargin   = 14.0
	contentWidth = 210.0 - 2*pageMargin
	lineHeight   = 5.5
)

type rgb struct{ r, g, b int }

var (
	colorTeal      = rgb{2, 128, 144}
	colorTealLight = rgb{224, 244, 246}
	colorTealMid   = rgb{178, 223, 229}
	colorDark      = rgb{26, 26, 46}
	colorText      = rgb{51, 51, 51}
	colorGrey      = rgb{102, 102, 102}
	colorRowAlt    = rgb{245, 245, 245}
	colorAlert     = rgb{204, 68, 0}
	colorWhite     = rgb{255, 255, 255}
)

// DocumentGenerator renders invoices, credit notes and monthly reports
type DocumentGenerator struct {
	logger *logrus.Logger
	verify bool
}

// NewDocumentGenerator creates a new generator. With verify set every
// rendered PDF is read back and checked for its document number.
func NewDocumentGenerator(logger *logrus.Logger, verify bool) *DocumentGenerator {
	return &DocumentGenerator{
		logger: logger,
		verify: verify,
	}
}

// RenderInvoice renders rec with the layout of its document type
func (d *DocumentGenerator) RenderInvoice(rec *models.InvoiceRecord, seller *models.Seller) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case rec.IsCreditNote():
		data, err = d.renderCreditNote(rec, seller)
	default:
		data, err = d.renderSale(rec, seller)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error generating PDF").
			WithHint("❌ Could not create the PDF. Please try again.").
			Mark(ierr.ErrSystem)
	}

	if d.verify {
		if err := VerifyDocument(data, rec.InvoiceNumber); err != nil {
			d.logger.WithFields(logrus.Fields{
				"invoice_number": rec.InvoiceNumber,
				"error":          err.Error(),
			}).Error("Rendered PDF failed verification")
			return nil, err
		}
	}

	d.logger.WithFields(logrus.Fields{
		"invoice_number": rec.InvoiceNumber,
		"document_type":  rec.DocumentType,
		"pdf_size":       len(data),
	}).Info("Invoice PDF generated")
	return data, nil
}

func (d *DocumentGenerator) renderSale(rec *models.InvoiceRecord, seller *models.Seller) ([]byte, error) {
	doc := newPDFDoc()
	doc.header(string(rec.DocumentType))

	sellerRows := []kv{
		{"Business Name", seller.BusinessName},
		{"Address", seller.Address},
	}
	if rec.Category() != models.CategoryUnregistered {
		sellerRows = append(sellerRows, kv{"GSTIN", orDefault(seller.GSTIN, "N/A")})
	}
	invoiceRows := []kv{
		{"Invoice No", rec.InvoiceNumber},
		{"Invoice Date", rec.InvoiceDate},
		{"Place of Supply", rec.PlaceOfSupply},
	}
	if rec.Category() == models.CategoryTaxed {
		invoiceRows = append(invoiceRows, kv{"Reverse Charge", orDefault(rec.ReverseCharge, "No")})
	}
	doc.twoBox("SELLER DETAILS", sellerRows, "INVOICE DETAILS", invoiceRows)
	doc.billTo(rec)
	doc.itemsTable(rec.Items)

	var rows []kv
	grand := "TOTAL AMOUNT"
	switch rec.Category() {
	case models.CategoryTaxed:
		grand = "GRAND TOTAL"
		rows = append(rows, kv{"Taxable Value", Rupees(rec.TaxableValue)})
		rows = append(rows, taxRows(rec, "")...)
	case models.CategoryComposition:
		grand = "GRAND TOTAL"
		rows = append(rows, kv{"Sub Total", Rupees(rec.TaxableValue)})
	default:
		rows = append(rows, kv{"Sub Total", Rupees(rec.TaxableValue)})
	}
	doc.totals(rows, kv{grand, Rupees(rec.TotalAmount)})
	doc.words(rec.TotalAmount)
	doc.declaration(rec.Declaration, rec.PaymentTerms, rec.Category() == models.CategoryTaxed)
	doc.signatory(seller.BusinessName)
	return doc.output()
}

func (d *DocumentGenerator) renderCreditNote(cn *models.InvoiceRecord, seller *models.Seller) ([]byte, error) {
	doc := newPDFDoc()
	doc.header(string(models.DocumentTypeCreditNote))

	doc.twoBox("SELLER DETAILS", []kv{
		{"Business Name", seller.BusinessName},
		{"Address", seller.Address},
		{"GSTIN", orDefault(seller.GSTIN, "N/A")},
	}, "CREDIT NOTE DETAILS", []kv{
		{"Credit Note No", cn.InvoiceNumber},
		{"Credit Note Date", cn.InvoiceDate},
		{"Against Invoice No", cn.OriginalInvoiceNumber},
		{"Original Invoice Date", cn.OriginalInvoiceDate},
		{"Reason", cn.Reason},
	})
	doc.billTo(cn)
	doc.itemsTable(cn.Items)

	rows := []kv{{"Taxable Value Reversed", Rupees(cn.TaxableValue)}}
	rows = append(rows, taxRows(cn, " (Reversed)")...)
	doc.totals(rows, kv{"TOTAL CREDIT AMOUNT", Rupees(cn.TotalAmount)})
	doc.words(cn.TotalAmount)
	doc.declaration("This Credit Note cancels and fully reverses the above mentioned invoice. "+
		"The tax liability has been reduced accordingly. "+
		"This document is valid for GST credit note purposes under Section 34 of CGST Act 2017.",
		fmt.Sprintf("Original Invoice: %s | Reason: %s", cn.OriginalInvoiceNumber, cn.Reason), false)
	doc.signatory(seller.BusinessName)
	return doc.output()
}

// RenderReport renders a monthly reconciliation report
func (d *DocumentGenerator) RenderReport(report *models.MonthlyReport) ([]byte, error) {
	doc := newPDFDoc()
	doc.header(fmt.Sprintf("Invoice & Tax Liability Report - %s %d", report.MonthName(), report.Year))

	doc.fill(colorTealLight)
	doc.draw(colorTealMid)
	doc.text(colorText)
	doc.pdf.SetFont("Helvetica", "B", 9)
	doc.cell(contentWidth*0.6, 7, fmt.Sprintf(" %s | %s", report.BusinessName, report.Address), "LTB", 0, "L", true)
	doc.pdf.SetFont("Helvetica", "", 8)
	doc.cell(contentWidth*0.4, 7, fmt.Sprintf("GSTIN: %s | Generated: %s ",
		orDefault(report.GSTIN, "N/A"), report.GeneratedAt.In(ledger.IST).Format(models.InvoiceDateLayout)), "RTB", 1, "R", true)
	doc.pdf.Ln(3)

	s := report.Summary
	doc.fill(colorDark)
	doc.text(colorWhite)
	doc.pdf.SetFont("Helvetica", "B", 9)
	third := contentWidth / 3
	doc.cell(third, 6, "Total Invoices", "", 0, "C", true)
	doc.cell(third, 6, "Total Taxable Value", "", 0, "C", true)
	doc.cell(third, 6, "Total GST Payable", "", 1, "C", true)
	doc.pdf.SetFont("Helvetica", "B", 12)
	doc.cell(third, 8, fmt.Sprintf("%d", s.TotalInvoices), "", 0, "C", true)
	doc.cell(third, 8, Rupees(s.NetTaxable), "", 0, "C", true)
	doc.cell(third, 8, Rupees(s.NetTax), "", 1, "C", true)
	doc.pdf.Ln(4)

	if report.Empty {
		doc.sectionHeader(fmt.Sprintf("No invoices for %s %d.", report.MonthName(), report.Year), colorGrey)
		return doc.output()
	}

	for _, section := range []models.ReportSection{report.TaxInvoices, report.Bills, report.NonGST} {
		doc.reportSection(section)
	}
	doc.hsnSection(report.HSN)
	doc.creditNoteSection(report.CreditNotes, report.CreditNoteSums)
	doc.liabilitySummary(s)
	return doc.output()
}

func taxRows(rec *models.InvoiceRecord, suffix string) []kv {
	var rows []kv
	if rec.CGSTAmount.IsPositive() {
		rows = append(rows, kv{fmt.Sprintf("CGST @ %s%%%s", FormatRate(rec.CGSTRate), suffix), Rupees(rec.CGSTAmount)})
	}
	if rec.SGSTAmount.IsPositive() {
		rows = append(rows, kv{fmt.Sprintf("SGST @ %s%%%s", FormatRate(rec.SGSTRate), suffix), Rupees(rec.SGSTAmount)})
	}
	if rec.IGSTAmount.IsPositive() {
		rows = append(rows, kv{fmt.Sprintf("IGST @ %s%%%s", FormatRate(rec.IGSTRate), suffix), Rupees(rec.IGSTAmount)})
	}
	return rows
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

type kv struct {
	label string
	value string
}

// pdfDoc wraps a gofpdf document with the shared layout blocks
type pdfDoc struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newPDFDoc() *pdfDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 24)
	doc := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(doc.footer)
	pdf.AddPage()
	return doc
}

func (d *pdfDoc) fill(c rgb) { d.pdf.SetFillColor(c.r, c.g, c.b) }
func (d *pdfDoc) draw(c rgb) { d.pdf.SetDrawColor(c.r, c.g, c.b) }
func (d *pdfDoc) text(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }

// cell writes one line, cut to fit its width
func (d *pdfDoc) cell(w, h float64, s, border string, ln int, align string, fill bool) {
	d.pdf.CellFormat(w, h, d.fit(d.tr(s), w-2), border, ln, align, fill, 0, "")
}

func (d *pdfDoc) fit(s string, w float64) string {
	if d.pdf.GetStringWidth(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && d.pdf.GetStringWidth(string(runes)+"...") > w {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (d *pdfDoc) header(title string) {
	d.fill(colorTeal)
	d.text(colorWhite)
	d.pdf.SetFont("Helvetica", "B", 12)
	d.cell(40, 14, " GutInvoice", "", 0, "L", true)
	size := 15.0
	d.pdf.SetFont("Helvetica", "B", size)
	for size > 9 && d.pdf.GetStringWidth(d.tr(title)) > contentWidth-82 {
		size--
		d.pdf.SetFont("Helvetica", "B", size)
	}
	d.cell(contentWidth-80, 14, title, "", 0, "C", true)
	d.cell(40, 14, "", "", 1, "R", true)
	d.pdf.Ln(3)
}

func (d *pdfDoc) labelled(x, w float64, row kv) {
	d.pdf.SetX(x)
	d.pdf.SetFont("Helvetica", "B", 8.5)
	label := d.tr(row.label + ": ")
	lw := d.pdf.GetStringWidth(label) + 1
	d.pdf.CellFormat(lw, lineHeight, label, "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 8.5)
	d.cell(w-lw, lineHeight, row.value, "", 1, "L", false)
}

func (d *pdfDoc) twoBox(leftTitle string, left []kv, rightTitle string, right []kv) {
	lw, rw := contentWidth*0.55, contentWidth*0.45
	rows := len(left)
	if len(right) > rows {
		rows = len(right)
	}
	top := d.pdf.GetY()
	height := lineHeight*float64(rows+1) + 3

	d.fill(colorTealLight)
	d.pdf.Rect(pageMargin, top, contentWidth, lineHeight+1, "F")
	d.draw(colorTealMid)
	d.pdf.Rect(pageMargin, top, lw, height, "D")
	d.pdf.Rect(pageMargin+lw, top, rw, height, "D")

	d.text(colorTeal)
	d.pdf.SetFont("Helvetica", "B", 7.5)
	d.pdf.SetXY(pageMargin+2, top+0.5)
	d.cell(lw-4, lineHeight, leftTitle, "", 0, "L", false)
	d.pdf.SetX(pageMargin + lw + 2)
	d.cell(rw-4, lineHeight, rightTitle, "", 1, "L", false)

	d.text(colorText)
	y := d.pdf.GetY() + 1
	d.pdf.SetY(y)
	for _, row := range left {
		d.labelled(pageMargin+2, lw-4, row)
	}
	d.pdf.SetY(y)
	for _, row := range right {
		d.labelled(pageMargin+lw+2, rw-4, row)
	}
	d.pdf.SetY(top + height + 2)
}

func (d *pdfDoc) billTo(rec *models.InvoiceRecord) {
	rows := []kv{
		{"Name", rec.CustomerName},
		{"Address", orDefault(rec.CustomerAddress, "-")},
		{"GSTIN", orDefault(rec.CustomerGSTIN, "Unregistered")},
	}
	top := d.pdf.GetY()
	height := lineHeight*float64(len(rows)+1) + 3

	d.fill(colorTealLight)
	d.pdf.Rect(pageMargin, top, contentWidth, lineHeight+1, "F")
	d.draw(colorTealMid)
	d.pdf.Rect(pageMargin, top, contentWidth, height, "D")

	d.text(colorTeal)
	d.pdf.SetFont("Helvetica", "B", 7.5)
	d.pdf.SetXY(pageMargin+2, top+0.5)
	d.cell(contentWidth-4, lineHeight, "BILL TO (CUSTOMER DETAILS)", "", 1, "L", false)
	d.text(colorText)
	d.pdf.SetY(d.pdf.GetY() + 1)
	for _, row := range rows {
		d.labelled(pageMargin+2, contentWidth-4, row)
	}
	d.pdf.SetY(top + height + 2)
}

var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 0.05, "C"},
	{"Description", 0.30, "L"},
	{"HSN/SAC", 0.10, "C"},
	{"Qty", 0.07, "R"},
	{"Unit", 0.08, "C"},
	{"Rate (Rs.)", 0.18, "R"},
	{"Amount (Rs.)", 0.22, "R"},
}

func (d *pdfDoc) itemsTable(items []models.LineItem) {
	d.fill(colorTeal)
	d.text(colorWhite)
	d.draw(colorTealMid)
	d.pdf.SetFont("Helvetica", "B", 8)
	for i, col := range itemColumns {
		ln := 0
		if i == len(itemColumns)-1 {
			ln = 1
		}
		d.cell(col.width*contentWidth, 7, col.title, "1", ln, "C", true)
	}

	d.text(colorText)
	d.pdf.SetFont("Helvetica", "", 8)
	for i, it := range items {
		if i%2 == 0 {
			d.fill(colorWhite)
		} else {
			d.fill(colorTealLight)
		}
		values := []string{
			fmt.Sprintf("%d", it.SNo),
			it.Description,
			it.HSNSAC,
			it.Quantity.String(),
			it.Unit,
			FormatAmount(it.Rate),
			FormatAmount(it.Amount),
		}
		for j, col := range itemColumns {
			ln := 0
			if j == len(itemColumns)-1 {
				ln = 1
			}
			d.cell(col.width*contentWidth, 6.5, values[j], "1", ln, col.align, true)
		}
	}
	d.pdf.Ln(2)
}

func (d *pdfDoc) totals(rows []kv, grand kv) {
	x := pageMargin + contentWidth*0.45
	w := contentWidth * 0.55
	d.draw(colorTealMid)
	d.text(colorText)
	d.pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		d.pdf.SetX(x)
		d.cell(w*0.55, 6.5, " "+row.label, "1", 0, "L", false)
		d.cell(w*0.45, 6.5, row.value+" ", "1", 1, "R", false)
	}
	d.fill(colorTeal)
	d.text(colorWhite)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetX(x)
	d.cell(w*0.55, 8, " "+grand.label, "1", 0, "L", true)
	d.cell(w*0.45, 8, grand.value+" ", "1", 1, "R", true)
	d.pdf.Ln(2)
}

func (d *pdfDoc) words(total decimal.Decimal) {
	d.text(colorText)
	d.labelled(pageMargin, contentWidth, kv{"Amount in Words", AmountInWords(total)})
	d.pdf.Ln(2)
}

func (d *pdfDoc) declaration(declaration, terms string, split bool) {
	d.draw(colorTealMid)
	d.text(colorText)
	top := d.pdf.GetY()
	if split {
		lw, rw := contentWidth*0.6, contentWidth*0.4
		d.pdf.SetFont("Helvetica", "B", 8.5)
		d.cell(lw, lineHeight, " DECLARATION", "LTR", 0, "L", false)
		d.cell(rw, lineHeight, " PAYMENT TERMS", "LTR", 1, "L", false)
		d.pdf.SetFont("Helvetica", "", 8.5)
		d.pdf.MultiCell(lw, lineHeight, d.tr(" "+orDefault(declaration, "-")), "LBR", "L", false)
		bottom := d.pdf.GetY()
		d.pdf.SetXY(pageMargin+lw, top+lineHeight)
		d.pdf.MultiCell(rw, lineHeight, d.tr(" "+orDefault(terms, models.DefaultPaymentTerms)), "LBR", "L", false)
		if d.pdf.GetY() < bottom {
			d.pdf.SetY(bottom)
		}
	} else {
		d.pdf.SetFont("Helvetica", "B", 8.5)
		d.cell(contentWidth, lineHeight, " DECLARATION", "LTR", 1, "L", false)
		d.pdf.SetFont("Helvetica", "", 8.5)
		d.pdf.MultiCell(contentWidth, lineHeight, d.tr(" "+orDefault(declaration, "-")), "LR", "L", false)
		d.pdf.MultiCell(contentWidth, lineHeight, d.tr(" Payment Terms: "+orDefault(terms, models.DefaultPaymentTerms)), "LBR", "L", false)
	}
	d.pdf.Ln(3)
}

func (d *pdfDoc) signatory(name string) {
	d.draw(colorTealMid)
	d.text(colorText)
	d.pdf.SetFont("Helvetica", "B", 9)
	d.cell(contentWidth, 7, " For "+name, "LTR", 1, "L", false)
	d.cell(contentWidth, 10, "", "LR", 1, "L", false)
	d.pdf.SetFont("Helvetica", "", 9)
	d.cell(contentWidth, 7, " Authorised Signatory", "LBR", 1, "L", false)
}

func (d *pdfDoc) footer() {
	d.pdf.SetY(-20)
	d.draw(colorTealMid)
	d.pdf.Line(pageMargin, d.pdf.GetY(), pageMargin+contentWidth, d.pdf.GetY())
	d.pdf.Ln(1.5)
	d.text(colorGrey)
	d.pdf.SetFont("Helvetica", "I", 7)
	d.cell(contentWidth, 4, FooterBrand, "", 1, "C", false)
	d.cell(contentWidth, 4, FooterDeveloper, "", 1, "C", false)
	d.text(colorAlert)
	d.cell(contentWidth, 4, FooterDisclaimer, "", 1, "C", false)
}

func (d *pdfDoc) sectionHeader(title string, bg rgb) {
	d.fill(bg)
	d.text(colorWhite)
	d.pdf.SetFont("Helvetica", "B", 9)
	d.cell(contentWidth, 7, " "+title, "", 1, "L", true)
}

type column struct {
	title string
	width float64
	align string
}

func (d *pdfDoc) tableHeader(cols []column) {
	d.fill(colorTealMid)
	d.text(colorDark)
	d.draw(colorTealMid)
	d.pdf.SetFont("Helvetica", "B", 7.5)
	for i, col := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		d.cell(col.width*contentWidth, 6, col.title, "1", ln, "C", true)
	}
}

func (d *pdfDoc) tableRow(cols []column, values []string, bold bool, bg rgb, fg rgb) {
	d.fill(bg)
	d.text(fg)
	style := ""
	if bold {
		style = "B"
	}
	for i, col := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		d.pdf.SetFont("Helvetica", style, 7.5)
		if col.align == "R" {
			d.amountCell(col.width*contentWidth, 6, values[i], style, ln)
			continue
		}
		d.cell(col.width*contentWidth, 6, values[i], "1", ln, col.align, true)
	}
}

// amountCell never cuts a figure, it shrinks the font until the value fits
func (d *pdfDoc) amountCell(w, h float64, s, style string, ln int) {
	s = d.tr(s)
	size := 7.5
	for size > 4 && d.pdf.GetStringWidth(s) > w-2 {
		size -= 0.5
		d.pdf.SetFont("Helvetica", style, size)
	}
	d.pdf.CellFormat(w, h, s, "1", ln, "R", true, 0, "")
	d.pdf.SetFont("Helvetica", style, 7.5)
}

var invoiceSectionColumns = []column{
	{"#", 0.03, "C"},
	{"Invoice No", 0.14, "L"},
	{"Date", 0.09, "C"},
	{"Customer", 0.11, "L"},
	{"Status", 0.11, "C"},
	{"Taxable Rs.", 0.11, "R"},
	{"CGST Rs.", 0.10, "R"},
	{"SGST Rs.", 0.10, "R"},
	{"IGST Rs.", 0.10, "R"},
	{"Amount Rs.", 0.11, "R"},
}

func (d *pdfDoc) reportSection(s models.ReportSection) {
	d.sectionHeader(s.Title, colorTeal)
	if len(s.Lines) == 0 {
		d.text(colorGrey)
		d.pdf.SetFont("Helvetica", "I", 8)
		d.cell(contentWidth, 7, " No invoices in this category.", "", 1, "L", false)
		d.pdf.Ln(3)
		return
	}

	d.tableHeader(invoiceSectionColumns)
	for i, line := range s.Lines {
		status, fg := "Active", colorText
		if line.Cancelled() {
			status, fg = "CANCELLED", colorAlert
		}
		bg := colorWhite
		if i%2 == 1 {
			bg = colorRowAlt
		}
		d.tableRow(invoiceSectionColumns, []string{
			fmt.Sprintf("%d", i+1), line.InvoiceNumber, line.InvoiceDate, line.CustomerName, status,
			FormatAmount(line.TaxableValue), FormatAmount(line.CGST), FormatAmount(line.SGST),
			FormatAmount(line.IGST), FormatAmount(line.Total),
		}, false, bg, fg)
	}
	d.tableRow(invoiceSectionColumns, []string{
		"", "TOTAL", "", fmt.Sprintf("(%d invoices)", s.Count), "",
		FormatAmount(s.TaxableValue), FormatAmount(s.CGST), FormatAmount(s.SGST),
		FormatAmount(s.IGST), FormatAmount(s.Total),
	}, true, colorTealLight, colorDark)
	d.pdf.Ln(4)
}

var hsnColumns = []column{
	{"HSN Code", 0.10, "C"},
	{"Description", 0.20, "L"},
	{"Qty", 0.08, "R"},
	{"Taxable Rs.", 0.14, "R"},
	{"CGST Rs.", 0.12, "R"},
	{"SGST Rs.", 0.12, "R"},
	{"IGST Rs.", 0.12, "R"},
	{"Total Tax Rs.", 0.12, "R"},
}

func (d *pdfDoc) hsnSection(lines []models.HSNLine) {
	d.sectionHeader("SECTION D - HSN-WISE TAX SUMMARY", rgb{27, 94, 59})
	if len(lines) == 0 {
		d.text(colorGrey)
		d.pdf.SetFont("Helvetica", "I", 8)
		d.cell(contentWidth, 7, " No HSN data available.", "", 1, "L", false)
		d.pdf.Ln(3)
		return
	}
	d.tableHeader(hsnColumns)
	for i, h := range lines {
		bg := colorWhite
		if i%2 == 1 {
			bg = colorRowAlt
		}
		d.tableRow(hsnColumns, []string{
			h.HSNSAC, h.Description, h.Quantity.String(), FormatAmount(h.TaxableValue),
			FormatAmount(h.CGST), FormatAmount(h.SGST), FormatAmount(h.IGST), FormatAmount(h.TotalTax()),
		}, false, bg, colorText)
	}
	d.pdf.Ln(4)
}

var creditNoteColumns = []column{
	{"Credit Note No", 0.16, "L"},
	{"Against Invoice", 0.13, "L"},
	{"Date", 0.09, "C"},
	{"Customer", 0.08, "L"},
	{"Taxable Rs.", 0.11, "R"},
	{"CGST Rs.", 0.10, "R"},
	{"SGST Rs.", 0.10, "R"},
	{"IGST Rs.", 0.10, "R"},
	{"Total Rs.", 0.13, "R"},
}

func (d *pdfDoc) creditNoteSection(lines []models.CreditNoteLine, sums models.CreditNoteLine) {
	d.sectionHeader("SECTION E - CREDIT NOTES (Cancelled Invoices)", rgb{136, 0, 0})
	if len(lines) == 0 {
		d.text(colorGrey)
		d.pdf.SetFont("Helvetica", "I", 8)
		d.cell(contentWidth, 7, " No credit notes issued this month.", "", 1, "L", false)
		d.pdf.Ln(3)
		return
	}
	d.tableHeader(creditNoteColumns)
	for i, cn := range lines {
		bg := colorWhite
		if i%2 == 1 {
			bg = rgb{255, 245, 245}
		}
		d.tableRow(creditNoteColumns, []string{
			cn.CreditNoteNumber, cn.OriginalInvoiceNumber, cn.Date, cn.CustomerName,
			FormatAmount(cn.TaxableValue), FormatAmount(cn.CGST), FormatAmount(cn.SGST),
			FormatAmount(cn.IGST), FormatAmount(cn.Total),
		}, false, bg, colorText)
	}
	d.tableRow(creditNoteColumns, []string{
		fmt.Sprintf("TOTAL (%d)", len(lines)), "", "", "",
		FormatAmount(sums.TaxableValue), FormatAmount(sums.CGST), FormatAmount(sums.SGST),
		FormatAmount(sums.IGST), FormatAmount(sums.Total),
	}, true, rgb{255, 245, 245}, colorDark)
	d.pdf.Ln(4)
}

func (d *pdfDoc) liabilitySummary(s models.ReportSummary) {
	d.sectionHeader("FINAL TAX LIABILITY SUMMARY", colorDark)
	rows := []kv{
		{"Gross Taxable Value (all invoices)", Rupees(s.GrossTaxable)},
		{"Gross CGST Collected", Rupees(s.GrossCGST)},
		{"Gross SGST Collected", Rupees(s.GrossSGST)},
		{"Gross IGST Collected", Rupees(s.GrossIGST)},
		{"Less: CGST Reversed (Credit Notes)", "(" + Rupees(s.ReversedCGST) + ")"},
		{"Less: SGST Reversed (Credit Notes)", "(" + Rupees(s.ReversedSGST) + ")"},
		{"Less: IGST Reversed (Credit Notes)", "(" + Rupees(s.ReversedIGST) + ")"},
	}
	d.draw(colorTealMid)
	d.text(colorText)
	d.pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		d.cell(contentWidth*0.65, 6.5, " "+row.label, "1", 0, "L", false)
		d.cell(contentWidth*0.35, 6.5, row.value+" ", "1", 1, "R", false)
	}
	d.fill(colorTeal)
	d.text(colorWhite)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.cell(contentWidth*0.65, 8, " NET GST PAYABLE TO GOVERNMENT", "1", 0, "L", true)
	d.cell(contentWidth*0.35, 8, Rupees(s.NetTax)+" ", "1", 1, "R", true)
	d.pdf.Ln(3)

	d.text(colorGrey)
	d.pdf.SetFont("Helvetica", "I", 8)
	d.pdf.MultiCell(contentWidth, 4.5, d.tr("Use this report to prepare your GSTR-1 filing. "+
		"Verify all amounts with your Chartered Accountant before submission."), "", "L", false)
}

func (d *pdfDoc) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
