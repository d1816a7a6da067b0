package services

import (
	"strings"

	"github.com/shopspring/decimal"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
	"github.com/tallbag/gutinvoice/internal/validator"
)

var (
	hundred        = decimal.NewFromInt(100)
	defaultGSTHalf = decimal.NewFromInt(9)
)

const defaultItemDescription = "Goods / Services"

// BuildInvoiceRecord normalises extracted fields into an unnumbered
// invoice record for seller. Amounts are recomputed from the lines.
func BuildInvoiceRecord(ex *models.Extraction, seller *models.Seller) (*models.InvoiceRecord, error) {
	if ex == nil {
		return nil, ierr.NewError("no invoice fields extracted").
			WithHint("❌ Could not find invoice details in your message.").
			Mark(ierr.ErrValidation)
	}

	category := invoiceCategory(ex.InvoiceType, seller)
	rec := &models.InvoiceRecord{
		DocumentType:    models.DocumentTypeFor(category),
		CustomerName:    strings.TrimSpace(ex.CustomerName),
		CustomerAddress: strings.TrimSpace(ex.CustomerAddress),
		CustomerGSTIN:   strings.ToUpper(strings.TrimSpace(ex.CustomerGSTIN)),
		PlaceOfSupply:   firstNonEmpty(ex.PlaceOfSupply, models.DefaultPlaceOfSupply),
		ReverseCharge:   firstNonEmpty(ex.ReverseCharge, "No"),
		PaymentTerms:    firstNonEmpty(ex.PaymentTerms, models.DefaultPaymentTerms),
		Declaration:     strings.TrimSpace(ex.Declaration),
	}
	if rec.CustomerName == "" {
		rec.CustomerName = "Customer"
	}

	rec.Items = buildItems(ex)
	if len(rec.Items) == 0 {
		return nil, ierr.NewError("invoice has no items or amount").
			WithHint("❌ I could not find any items or amounts. Please mention what you sold, the quantity and the price.").
			Mark(ierr.ErrValidation)
	}

	taxable := decimal.Zero
	for _, item := range rec.Items {
		taxable = taxable.Add(item.Amount)
	}
	if !taxable.IsPositive() {
		return nil, ierr.NewError("invoice total is zero").
			WithHint("❌ The invoice amount came out as zero. Please mention the price of each item.").
			Mark(ierr.ErrValidation)
	}
	rec.TaxableValue = taxable.Round(2)

	switch category {
	case models.CategoryTaxed:
		applyGST(rec, ex)
	case models.CategoryComposition:
		if rec.Declaration == "" {
			rec.Declaration = models.DeclarationComposition
		}
	default:
		if rec.Declaration == "" {
			rec.Declaration = models.DeclarationUnregistered
		}
	}
	rec.TotalAmount = rec.TaxableValue.Add(rec.TotalTax())

	if err := validator.ValidateRequest(rec); err != nil {
		return nil, ierr.WithError(err).
			WithHint("❌ Some invoice details are missing. Please describe the invoice again.").
			Mark(ierr.ErrValidation)
	}
	return rec, nil
}

// invoiceCategory picks the document kind. Only GST registered sellers can
// issue tax invoices or bills of supply.
func invoiceCategory(extracted string, seller *models.Seller) models.Category {
	if !seller.GSTRegistered() {
		return models.CategoryUnregistered
	}
	if models.Categorize(models.DocumentType(extracted)) == models.CategoryComposition {
		return models.CategoryComposition
	}
	return models.CategoryTaxed
}

func buildItems(ex *models.Extraction) []models.LineItem {
	items := make([]models.LineItem, 0, len(ex.Items))
	for _, it := range ex.Items {
		qty := it.Quantity.Decimal
		if !it.Quantity.Set || !qty.IsPositive() {
			qty = decimal.NewFromInt(1)
		}

		var rate, amount decimal.Decimal
		switch {
		case it.Rate.Set && it.Rate.IsPositive():
			rate = it.Rate.Decimal
			amount = qty.Mul(rate)
		case it.Amount.Set && it.Amount.IsPositive():
			amount = it.Amount.Decimal
			rate = amount.Div(qty)
		default:
			continue
		}

		items = append(items, models.LineItem{
			SNo:         len(items) + 1,
			Description: ierr.Truncate(firstNonEmpty(it.Description, defaultItemDescription), 200),
			HSNSAC:      strings.TrimSpace(it.HSNSAC),
			Quantity:    qty,
			Unit:        firstNonEmpty(it.Unit, models.DefaultUnit),
			Rate:        rate.Round(2),
			Amount:      amount.Round(2),
		})
	}

	// A bare amount with no usable lines becomes one line
	if len(items) == 0 && ex.TaxableValue.Set && ex.TaxableValue.IsPositive() {
		items = append(items, models.LineItem{
			SNo:         1,
			Description: defaultItemDescription,
			Quantity:    decimal.NewFromInt(1),
			Unit:        models.DefaultUnit,
			Rate:        ex.TaxableValue.Round(2),
			Amount:      ex.TaxableValue.Round(2),
		})
	}
	return items
}

// applyGST sets the tax split. IGST is used only when an IGST rate is
// present, otherwise CGST and SGST halves default to 9% each.
func applyGST(rec *models.InvoiceRecord, ex *models.Extraction) {
	if ex.IGSTRate.Set && ex.IGSTRate.IsPositive() {
		rec.IGSTRate = ex.IGSTRate.Decimal
		rec.IGSTAmount = percentOf(rec.TaxableValue, rec.IGSTRate)
		return
	}

	cgst, sgst := defaultGSTHalf, defaultGSTHalf
	switch {
	case ex.CGSTRate.Set && ex.SGSTRate.Set:
		cgst, sgst = ex.CGSTRate.Decimal, ex.SGSTRate.Decimal
	case ex.CGSTRate.Set:
		cgst, sgst = ex.CGSTRate.Decimal, ex.CGSTRate.Decimal
	case ex.SGSTRate.Set:
		cgst, sgst = ex.SGSTRate.Decimal, ex.SGSTRate.Decimal
	}
	rec.CGSTRate = cgst
	rec.SGSTRate = sgst
	rec.CGSTAmount = percentOf(rec.TaxableValue, cgst)
	rec.SGSTAmount = percentOf(rec.TaxableValue, sgst)
}

func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred).Round(2)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
