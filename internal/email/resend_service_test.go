package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallbag/gutinvoice/internal/models"
)

func testReport() *models.MonthlyReport {
	return &models.MonthlyReport{
		BusinessName: "Tejesh & Sons",
		GSTIN:        "36ABCDE1234F1Z5",
		Month:        2,
		Year:         2026,
		Summary: models.ReportSummary{
			TotalInvoices:     3,
			CancelledInvoices: 1,
			CreditNotes:       1,
			GrossTaxable:      decimal.NewFromInt(22000),
			GrossTax:          decimal.NewFromInt(3960),
			ReversedTax:       decimal.NewFromInt(360),
			NetTax:            decimal.NewFromInt(3600),
		},
	}
}

func TestSendMonthlyReport(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"em_123"}`))
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := NewResendService("re_test", "", logger)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	svc.client.BaseURL = base

	err = svc.SendMonthlyReport(context.Background(), "ca@example.com", testReport(), "https://cdn.example.com/r.pdf")
	require.NoError(t, err)

	assert.Equal(t, defaultFrom, got["from"])
	assert.Equal(t, []any{"ca@example.com"}, got["to"])
	assert.Equal(t, "GST Report February 2026 - Tejesh & Sons", got["subject"])
}

func TestReportHTML(t *testing.T) {
	body := reportHTML(testReport(), "https://cdn.example.com/r.pdf")
	assert.Contains(t, body, "Tejesh &amp; Sons")
	assert.Contains(t, body, "Rs. 3600.00")
	assert.Contains(t, body, "February 2026")
	assert.Contains(t, body, "3 (1 cancelled)")
}
