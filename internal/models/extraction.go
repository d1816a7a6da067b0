package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount decodes a number the LLM may send as a JSON number, a quoted
// string with thousands separators, an empty string or null
type Amount struct {
	decimal.Decimal
	Set bool
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "₹")
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	a.Decimal = d
	a.Set = true
	return nil
}

// MarshalJSON implements json.Marshaler
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Set {
		return []byte("null"), nil
	}
	return json.Marshal(a.Decimal.InexactFloat64())
}

// NewAmount wraps a decimal as a present amount
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d, Set: true}
}

// ExtractedItem is a line item as returned by the extractor
type ExtractedItem struct {
	SNo         int    `json:"sno"`
	Description string `json:"description"`
	HSNSAC      string `json:"hsn_sac"`
	Quantity    Amount `json:"qty"`
	Unit        string `json:"unit"`
	Rate        Amount `json:"rate"`
	Amount      Amount `json:"amount"`
}

// Extraction holds invoice fields extracted from a seller instruction.
// Seller fields and the invoice number are ignored: the service owns them.
type Extraction struct {
	InvoiceType     string          `json:"invoice_type"`
	InvoiceDate     string          `json:"invoice_date"`
	CustomerName    string          `json:"customer_name"`
	CustomerAddress string          `json:"customer_address"`
	CustomerGSTIN   string          `json:"customer_gstin"`
	PlaceOfSupply   string          `json:"place_of_supply"`
	ReverseCharge   string          `json:"reverse_charge"`
	Items           []ExtractedItem `json:"items"`
	TaxableValue    Amount          `json:"taxable_value"`
	CGSTRate        Amount          `json:"cgst_rate"`
	CGSTAmount      Amount          `json:"cgst_amount"`
	SGSTRate        Amount          `json:"sgst_rate"`
	SGSTAmount      Amount          `json:"sgst_amount"`
	IGSTRate        Amount          `json:"igst_rate"`
	IGSTAmount      Amount          `json:"igst_amount"`
	TotalAmount     Amount          `json:"total_amount"`
	Declaration     string          `json:"declaration"`
	PaymentTerms    string          `json:"payment_terms"`
}
