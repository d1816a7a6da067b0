package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IST is the timezone invoice periods are computed in
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Period is one calendar month of a seller's ledger
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodOf returns the IST calendar month containing t
func PeriodOf(t time.Time) Period {
	local := t.In(IST)
	return Period{Year: local.Year(), Month: int(local.Month())}
}

// NewPeriod validates and builds a period
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid month %d", month)
	}
	if year < 2000 || year > 9999 {
		return Period{}, fmt.Errorf("invalid year %d", year)
	}
	return Period{Year: year, Month: month}, nil
}

// Suffix returns the MMYYYY part of an invoice number
func (p Period) Suffix() string {
	return fmt.Sprintf("%02d%04d", p.Month, p.Year)
}

// Previous returns the month before p
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month), p.Year)
}

// ParsePeriod reads a "month year" phrase such as "february 2026", "feb",
// "02 2026" or "last". Missing parts default to the period of now.
func ParsePeriod(args []string, now time.Time) (Period, error) {
	current := PeriodOf(now)
	if len(args) == 0 {
		return current, nil
	}
	if len(args) == 1 && (strings.EqualFold(args[0], "last") || strings.EqualFold(args[0], "previous")) {
		return current.Previous(), nil
	}

	month, err := parseMonth(args[0])
	if err != nil {
		return Period{}, err
	}
	year := current.Year
	if len(args) > 1 {
		y, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return Period{}, fmt.Errorf("invalid year %q", args[1])
		}
		year = y
	}
	return NewPeriod(month, year)
}

func parseMonth(raw string) (int, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("invalid month %q", raw)
		}
		return n, nil
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if raw == name || (len(raw) >= 3 && strings.HasPrefix(name, raw)) {
			return int(m), nil
		}
	}
	return 0, fmt.Errorf("invalid month %q", raw)
}
