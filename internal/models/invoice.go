package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType is the printed title of an issued document
type DocumentType string

const (
	DocumentTypeTaxInvoice   DocumentType = "TAX INVOICE"
	DocumentTypeBillOfSupply DocumentType = "BILL OF SUPPLY"
	DocumentTypeInvoice      DocumentType = "INVOICE"
	DocumentTypeCreditNote   DocumentType = "CREDIT NOTE"
)

// InvoiceStatus is the lifecycle state of a record. Cancelled is terminal.
type InvoiceStatus string

const (
	InvoiceStatusActive    InvoiceStatus = "active"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Category groups invoices for the monthly report
type Category string

const (
	CategoryTaxed        Category = "tax_invoice"
	CategoryComposition  Category = "bill_of_supply"
	CategoryUnregistered Category = "non_gst"
)

// Categorize classifies a document type by its markers. TAX wins over BILL.
func Categorize(docType DocumentType) Category {
	upper := strings.ToUpper(string(docType))
	switch {
	case strings.Contains(upper, "TAX"):
		return CategoryTaxed
	case strings.Contains(upper, "BILL"):
		return CategoryComposition
	default:
		return CategoryUnregistered
	}
}

// DocumentTypeFor returns the document type printed for a category
func DocumentTypeFor(c Category) DocumentType {
	switch c {
	case CategoryTaxed:
		return DocumentTypeTaxInvoice
	case CategoryComposition:
		return DocumentTypeBillOfSupply
	default:
		return DocumentTypeInvoice
	}
}

// Declarations printed on documents that carry no tax
const (
	DeclarationComposition  = "Composition taxable person, not eligible to collect tax on supplies"
	DeclarationUnregistered = "Seller not registered under GST"
	DefaultPaymentTerms     = "Pay within 15 days"
	DefaultPlaceOfSupply    = "Telangana"
	DefaultCancelReason     = "Invoice cancelled by seller"
	DefaultUnit             = "Nos"
	InvoiceDateLayout       = "02/01/2006"
)

// LineItem is one billed line of an invoice
type LineItem struct {
	SNo         int             `json:"sno"`
	Description string          `json:"description" validate:"required,max=200"`
	HSNSAC      string          `json:"hsn_sac"`
	Quantity    decimal.Decimal `json:"qty"`
	Unit        string          `json:"unit"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceRecord is one issued document, credit notes included
type InvoiceRecord struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	SellerPhone   string        `json:"seller_phone" db:"seller_phone"`
	InvoiceNumber string        `json:"invoice_number" db:"invoice_number"`
	Sequence      int           `json:"sequence" db:"sequence"`
	DocumentType  DocumentType  `json:"document_type" db:"document_type"`
	PeriodMonth   int           `json:"period_month" db:"period_month"`
	PeriodYear    int           `json:"period_year" db:"period_year"`
	InvoiceDate   string        `json:"invoice_date" db:"invoice_date"`
	Status        InvoiceStatus `json:"status" db:"status"`

	// Counterparty
	CustomerName    string `json:"customer_name" db:"customer_name"`
	CustomerAddress string `json:"customer_address" db:"customer_address"`
	CustomerGSTIN   string `json:"customer_gstin,omitempty" db:"customer_gstin"`
	PlaceOfSupply   string `json:"place_of_supply" db:"place_of_supply"`
	ReverseCharge   string `json:"reverse_charge" db:"reverse_charge"`

	// Amounts
	Items        []LineItem      `json:"items" db:"items" validate:"required,min=1,dive"`
	TaxableValue decimal.Decimal `json:"taxable_value" db:"taxable_value"`
	CGSTRate     decimal.Decimal `json:"cgst_rate" db:"cgst_rate"`
	CGSTAmount   decimal.Decimal `json:"cgst_amount" db:"cgst_amount"`
	SGSTRate     decimal.Decimal `json:"sgst_rate" db:"sgst_rate"`
	SGSTAmount   decimal.Decimal `json:"sgst_amount" db:"sgst_amount"`
	IGSTRate     decimal.Decimal `json:"igst_rate" db:"igst_rate"`
	IGSTAmount   decimal.Decimal `json:"igst_amount" db:"igst_amount"`
	TotalAmount  decimal.Decimal `json:"total_amount" db:"total_amount"`

	Declaration  string `json:"declaration,omitempty" db:"declaration"`
	PaymentTerms string `json:"payment_terms,omitempty" db:"payment_terms"`

	// Credit note references
	OriginalInvoiceNumber string `json:"original_invoice_number,omitempty" db:"original_invoice_number"`
	OriginalInvoiceDate   string `json:"original_invoice_date,omitempty" db:"original_invoice_date"`
	Reason                string `json:"reason,omitempty" db:"reason"`

	PDFURL      string     `json:"pdf_url,omitempty" db:"pdf_url"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsCreditNote reports whether the record is a credit note
func (r *InvoiceRecord) IsCreditNote() bool {
	return r.DocumentType == DocumentTypeCreditNote
}

// IsActive reports whether the record has not been voided
func (r *InvoiceRecord) IsActive() bool {
	return r.Status == InvoiceStatusActive
}

// Category returns the report category of the record
func (r *InvoiceRecord) Category() Category {
	return Categorize(r.DocumentType)
}

// TotalTax returns the sum of the three tax components
func (r *InvoiceRecord) TotalTax() decimal.Decimal {
	return r.CGSTAmount.Add(r.SGSTAmount).Add(r.IGSTAmount)
}

// IsInterState reports whether the record carries integrated tax
func (r *InvoiceRecord) IsInterState() bool {
	return r.IGSTAmount.IsPositive() || r.IGSTRate.IsPositive()
}
