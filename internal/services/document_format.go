package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ones = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen"}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells the whole rupees of d in the Indian system
// (Crore, Lakh, Thousand)
func AmountInWords(d decimal.Decimal) string {
	n := d.Abs().IntPart()
	if n == 0 {
		return "Zero Rupees Only"
	}

	var parts []string
	crore := n / 10_000_000
	n %= 10_000_000
	lakh := n / 100_000
	n %= 100_000
	thousand := n / 1_000
	n %= 1_000

	if crore > 0 {
		// Crores above 999 are spelled recursively, e.g. "One Thousand Crore"
		parts = append(parts, strings.TrimSuffix(AmountInWords(decimal.NewFromInt(crore)), " Rupees Only")+" Crore")
	}
	if lakh > 0 {
		parts = append(parts, belowThousand(lakh)+" Lakh")
	}
	if thousand > 0 {
		parts = append(parts, belowThousand(thousand)+" Thousand")
	}
	if n > 0 {
		parts = append(parts, belowThousand(n))
	}
	return strings.Join(parts, " ") + " Rupees Only"
}

func belowHundred(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}

func belowThousand(n int64) string {
	if n < 100 {
		return belowHundred(n)
	}
	words := ones[n/100] + " Hundred"
	if n%100 != 0 {
		words += " " + belowHundred(n%100)
	}
	return words
}

// FormatAmount renders d with two decimals and thousands separators
func FormatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// Rupees renders d as "Rs. 1,234.00"
func Rupees(d decimal.Decimal) string {
	return "Rs. " + FormatAmount(d)
}

// FormatRate renders a tax rate without trailing zeros
func FormatRate(d decimal.Decimal) string {
	return d.String()
}
