package ledger

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

// UnclassifiedHSN groups line items without an HSN/SAC code
const UnclassifiedHSN = "NA"

const (
	titleTaxInvoices = "SECTION A - TAX INVOICES (GST Registered)"
	titleBills       = "SECTION B - BILL OF SUPPLY (Composition / Exempt)"
	titleNonGST      = "SECTION C - NON-GST INVOICES (Unregistered)"
)

// Aggregator builds monthly reconciliation reports
type Aggregator struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewAggregator creates a new aggregator
func NewAggregator(store Store, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Monthly loads every record of the seller period and aggregates it.
// An empty period yields a report with Empty set, not an error.
func (a *Aggregator) Monthly(ctx context.Context, seller *models.Seller, period Period) (*models.MonthlyReport, error) {
	records, err := a.store.ListByPeriod(ctx, seller.Phone, period)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"seller": seller.Phone,
			"period": period.Suffix(),
			"error":  err.Error(),
		}).Error("Report records lookup failed")
		return nil, ierr.WithError(err).
			WithHint("❌ Could not load your invoices for the report. Please try again.").
			Mark(ierr.ErrPersistence)
	}

	report := Aggregate(seller, period, records, a.now())
	a.logger.WithFields(logrus.Fields{
		"seller":       seller.Phone,
		"period":       period.Suffix(),
		"invoices":     report.Summary.TotalInvoices,
		"credit_notes": report.Summary.CreditNotes,
		"net_tax":      report.Summary.NetTax.StringFixed(2),
	}).Info("Monthly report aggregated")
	return report, nil
}

// Aggregate reconciles the records of one seller period.
//
// Sections and gross figures include voided invoices; the HSN breakdown
// covers active invoices only. Net is gross minus the credit notes.
func Aggregate(seller *models.Seller, period Period, records []*models.InvoiceRecord, now time.Time) *models.MonthlyReport {
	report := &models.MonthlyReport{
		SellerPhone:  seller.Phone,
		BusinessName: seller.BusinessName,
		Address:      seller.Address,
		GSTIN:        seller.GSTIN,
		Month:        period.Month,
		Year:         period.Year,
		GeneratedAt:  now,
		Empty:        len(records) == 0,
		TaxInvoices:  newSection(models.CategoryTaxed, titleTaxInvoices),
		Bills:        newSection(models.CategoryComposition, titleBills),
		NonGST:       newSection(models.CategoryUnregistered, titleNonGST),
		HSN:          []models.HSNLine{},
		CreditNotes:  []models.CreditNoteLine{},
	}

	sorted := make([]*models.InvoiceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	invoices, creditNotes := lo.FilterReject(sorted, func(r *models.InvoiceRecord, _ int) bool {
		return !r.IsCreditNote()
	})

	hsn := newHSNAccumulator()
	s := &report.Summary
	for _, inv := range invoices {
		addLine(reportSection(report, inv.Category()), inv)

		s.TotalInvoices++
		s.GrossTaxable = s.GrossTaxable.Add(inv.TaxableValue)
		s.GrossCGST = s.GrossCGST.Add(inv.CGSTAmount)
		s.GrossSGST = s.GrossSGST.Add(inv.SGSTAmount)
		s.GrossIGST = s.GrossIGST.Add(inv.IGSTAmount)

		if inv.IsActive() {
			s.ActiveInvoices++
			hsn.add(inv)
		} else {
			s.CancelledInvoices++
		}
	}

	sums := &report.CreditNoteSums
	for _, cn := range creditNotes {
		line := models.CreditNoteLine{
			CreditNoteNumber:      cn.InvoiceNumber,
			OriginalInvoiceNumber: cn.OriginalInvoiceNumber,
			Date:                  cn.InvoiceDate,
			CustomerName:          cn.CustomerName,
			Reason:                cn.Reason,
			TaxableValue:          cn.TaxableValue,
			CGST:                  cn.CGSTAmount,
			SGST:                  cn.SGSTAmount,
			IGST:                  cn.IGSTAmount,
			Total:                 cn.TotalAmount,
		}
		report.CreditNotes = append(report.CreditNotes, line)
		sums.TaxableValue = sums.TaxableValue.Add(line.TaxableValue)
		sums.CGST = sums.CGST.Add(line.CGST)
		sums.SGST = sums.SGST.Add(line.SGST)
		sums.IGST = sums.IGST.Add(line.IGST)
		sums.Total = sums.Total.Add(line.Total)
		s.CreditNotes++
	}

	s.GrossTax = s.GrossCGST.Add(s.GrossSGST).Add(s.GrossIGST)
	s.ReversedTaxable = sums.TaxableValue
	s.ReversedCGST = sums.CGST
	s.ReversedSGST = sums.SGST
	s.ReversedIGST = sums.IGST
	s.ReversedTax = s.ReversedCGST.Add(s.ReversedSGST).Add(s.ReversedIGST)
	s.NetTaxable = s.GrossTaxable.Sub(s.ReversedTaxable)
	s.NetCGST = s.GrossCGST.Sub(s.ReversedCGST)
	s.NetSGST = s.GrossSGST.Sub(s.ReversedSGST)
	s.NetIGST = s.GrossIGST.Sub(s.ReversedIGST)
	s.NetTax = s.NetCGST.Add(s.NetSGST).Add(s.NetIGST)

	report.HSN = hsn.lines()
	return report
}

func newSection(c models.Category, title string) models.ReportSection {
	return models.ReportSection{Category: c, Title: title, Lines: []models.ReportLine{}}
}

func addLine(s *models.ReportSection, inv *models.InvoiceRecord) {
	description := ""
	if len(inv.Items) > 0 {
		description = inv.Items[0].Description
	}
	s.Lines = append(s.Lines, models.ReportLine{
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   inv.InvoiceDate,
		CustomerName:  inv.CustomerName,
		CustomerGSTIN: inv.CustomerGSTIN,
		Description:   description,
		Status:        inv.Status,
		TaxableValue:  inv.TaxableValue,
		CGST:          inv.CGSTAmount,
		SGST:          inv.SGSTAmount,
		IGST:          inv.IGSTAmount,
		Total:         inv.TotalAmount,
	})
	s.Count++
	s.TaxableValue = s.TaxableValue.Add(inv.TaxableValue)
	s.CGST = s.CGST.Add(inv.CGSTAmount)
	s.SGST = s.SGST.Add(inv.SGSTAmount)
	s.IGST = s.IGST.Add(inv.IGSTAmount)
	s.Total = s.Total.Add(inv.TotalAmount)
}

func reportSection(r *models.MonthlyReport, c models.Category) *models.ReportSection {
	switch c {
	case models.CategoryTaxed:
		return &r.TaxInvoices
	case models.CategoryComposition:
		return &r.Bills
	default:
		return &r.NonGST
	}
}

type hsnAccumulator struct {
	rows map[string]*models.HSNLine
}

func newHSNAccumulator() *hsnAccumulator {
	return &hsnAccumulator{rows: map[string]*models.HSNLine{}}
}

// add spreads the invoice totals over its lines by amount. The rounding
// residue goes to the last line so each invoice's shares sum exactly.
func (h *hsnAccumulator) add(inv *models.InvoiceRecord) {
	items := inv.Items
	if len(items) == 0 {
		items = []models.LineItem{{Amount: inv.TaxableValue}}
	}
	weight := decimal.Zero
	for _, it := range items {
		weight = weight.Add(it.Amount)
	}

	taxable := split(inv.TaxableValue, items, weight)
	cgst := split(inv.CGSTAmount, items, weight)
	sgst := split(inv.SGSTAmount, items, weight)
	igst := split(inv.IGSTAmount, items, weight)

	for i, it := range items {
		code := strings.ToUpper(strings.TrimSpace(it.HSNSAC))
		if code == "" {
			code = UnclassifiedHSN
		}
		row, ok := h.rows[code]
		if !ok {
			row = &models.HSNLine{HSNSAC: code, Description: it.Description}
			h.rows[code] = row
		}
		row.Quantity = row.Quantity.Add(it.Quantity)
		row.TaxableValue = row.TaxableValue.Add(taxable[i])
		row.CGST = row.CGST.Add(cgst[i])
		row.SGST = row.SGST.Add(sgst[i])
		row.IGST = row.IGST.Add(igst[i])
	}
}

func split(total decimal.Decimal, items []models.LineItem, weight decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(items))
	allocated := decimal.Zero
	last := len(items) - 1
	for i, it := range items[:last] {
		share := decimal.Zero
		if weight.IsPositive() {
			share = total.Mul(it.Amount).Div(weight).Round(2)
		}
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[last] = total.Sub(allocated)
	return shares
}

// lines returns the rows ordered by code with unclassified items last
func (h *hsnAccumulator) lines() []models.HSNLine {
	out := make([]models.HSNLine, 0, len(h.rows))
	for _, row := range h.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].HSNSAC == UnclassifiedHSN) != (out[j].HSNSAC == UnclassifiedHSN) {
			return out[j].HSNSAC == UnclassifiedHSN
		}
		return out[i].HSNSAC < out[j].HSNSAC
	})
	return out
}
