package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, IST)

	tests := []struct {
		name    string
		args    []string
		want    Period
		wantErr bool
	}{
		{name: "default is current month", args: nil, want: Period{Year: 2026, Month: 3}},
		{name: "full name", args: []string{"february", "2026"}, want: Period{Year: 2026, Month: 2}},
		{name: "short name current year", args: []string{"Feb"}, want: Period{Year: 2026, Month: 2}},
		{name: "numeric", args: []string{"11", "2025"}, want: Period{Year: 2025, Month: 11}},
		{name: "last month", args: []string{"last"}, want: Period{Year: 2026, Month: 2}},
		{name: "bad month", args: []string{"13"}, wantErr: true},
		{name: "unknown word", args: []string{"ma"}, wantErr: true},
		{name: "bad year", args: []string{"jan", "20x6"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.args, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodHelpers(t *testing.T) {
	p := Period{Year: 2026, Month: 1}
	assert.Equal(t, "012026", p.Suffix())
	assert.Equal(t, Period{Year: 2025, Month: 12}, p.Previous())
	assert.Equal(t, "January 2026", p.String())
}
