package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportLine is one invoice row in a report section
type ReportLine struct {
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	CustomerName  string          `json:"customer_name"`
	CustomerGSTIN string          `json:"customer_gstin,omitempty"`
	Description   string          `json:"description"`
	Status        InvoiceStatus   `json:"status"`
	TaxableValue  decimal.Decimal `json:"taxable_value"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	IGST          decimal.Decimal `json:"igst"`
	Total         decimal.Decimal `json:"total"`
}

// Cancelled reports whether the row belongs to a voided invoice
func (l ReportLine) Cancelled() bool {
	return l.Status == InvoiceStatusCancelled
}

// ReportSection lists the invoices of one category with running totals
type ReportSection struct {
	Category     Category        `json:"category"`
	Title        string          `json:"title"`
	Lines        []ReportLine    `json:"lines"`
	Count        int             `json:"count"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	Total        decimal.Decimal `json:"total"`
}

// HSNLine is one row of the HSN/SAC breakdown
type HSNLine struct {
	HSNSAC       string          `json:"hsn_sac"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
}

// TotalTax returns the tax of the HSN row
func (h HSNLine) TotalTax() decimal.Decimal {
	return h.CGST.Add(h.SGST).Add(h.IGST)
}

// CreditNoteLine is one credit note row of a report
type CreditNoteLine struct {
	CreditNoteNumber      string          `json:"credit_note_number"`
	OriginalInvoiceNumber string          `json:"original_invoice_number"`
	Date                  string          `json:"date"`
	CustomerName          string          `json:"customer_name"`
	Reason                string          `json:"reason"`
	TaxableValue          decimal.Decimal `json:"taxable_value"`
	CGST                  decimal.Decimal `json:"cgst"`
	SGST                  decimal.Decimal `json:"sgst"`
	IGST                  decimal.Decimal `json:"igst"`
	Total                 decimal.Decimal `json:"total"`
}

// ReportSummary is the reconciliation box of a monthly report
type ReportSummary struct {
	TotalInvoices     int `json:"total_invoices"`
	ActiveInvoices    int `json:"active_invoices"`
	CancelledInvoices int `json:"cancelled_invoices"`
	CreditNotes       int `json:"credit_notes"`

	GrossTaxable decimal.Decimal `json:"gross_taxable"`
	GrossCGST    decimal.Decimal `json:"gross_cgst"`
	GrossSGST    decimal.Decimal `json:"gross_sgst"`
	GrossIGST    decimal.Decimal `json:"gross_igst"`
	GrossTax     decimal.Decimal `json:"gross_tax"`

	ReversedTaxable decimal.Decimal `json:"reversed_taxable"`
	ReversedCGST    decimal.Decimal `json:"reversed_cgst"`
	ReversedSGST    decimal.Decimal `json:"reversed_sgst"`
	ReversedIGST    decimal.Decimal `json:"reversed_igst"`
	ReversedTax     decimal.Decimal `json:"reversed_tax"`

	NetTaxable decimal.Decimal `json:"net_taxable"`
	NetCGST    decimal.Decimal `json:"net_cgst"`
	NetSGST    decimal.Decimal `json:"net_sgst"`
	NetIGST    decimal.Decimal `json:"net_igst"`
	NetTax     decimal.Decimal `json:"net_tax"`
}

// MonthlyReport is the reconciliation of one seller's month
type MonthlyReport struct {
	SellerPhone  string        `json:"seller_phone"`
	BusinessName string        `json:"business_name"`
	Address      string        `json:"address"`
	GSTIN        string        `json:"gstin,omitempty"`
	Month        int           `json:"month"`
	Year         int           `json:"year"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Empty        bool          `json:"empty"`
	TaxInvoices  ReportSection `json:"tax_invoices"`
	Bills        ReportSection `json:"bills_of_supply"`
	NonGST       ReportSection `json:"non_gst"`
	HSN          []HSNLine     `json:"hsn_summary"`

	CreditNotes    []CreditNoteLine `json:"credit_notes"`
	CreditNoteSums CreditNoteLine   `json:"credit_note_totals"`

	Summary ReportSummary `json:"summary"`
}

// MonthName returns the English month name of the report period
func (r *MonthlyReport) MonthName() string {
	return time.Month(r.Month).String()
}
