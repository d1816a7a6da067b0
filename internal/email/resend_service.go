package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

const defaultFrom = "GutInvoice <onboarding@resend.dev>"

// ResendService sends accountant copies of monthly reports through Resend
type ResendService struct {
	client    *resend.Client
	fromEmail string
	logger    *logrus.Logger
}

// NewResendService creates a new instance of ResendService
func NewResendService(apiKey, from string, logger *logrus.Logger) *ResendService {
	if from == "" {
		from = defaultFrom
	}
	return &ResendService{
		client:    resend.NewClient(apiKey),
		fromEmail: from,
		logger:    logger,
	}
}

// SendMonthlyReport e-mails the report summary and its PDF link to the
// seller's accountant
func (s *ResendService) SendMonthlyReport(ctx context.Context, to string, report *models.MonthlyReport, pdfURL string) error {
	subject := fmt.Sprintf("GST Report %s %d - %s", report.MonthName(), report.Year, report.BusinessName)

	request := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    reportHTML(report, pdfURL),
	}

	result, err := s.client.Emails.SendWithContext(ctx, request)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"to":    to,
			"error": err.Error(),
		}).Error("Report email failed")
		return ierr.WithError(err).
			WithMessage("error sending email via Resend").
			Mark(ierr.ErrDelivery)
	}

	s.logger.WithFields(logrus.Fields{
		"email_id": result.Id,
		"to":       to,
		"subject":  subject,
	}).Info("Report email sent via Resend")
	return nil
}

func reportHTML(r *models.MonthlyReport, pdfURL string) string {
	gstin := r.GSTIN
	if gstin == "" {
		gstin = "Unregistered"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>GST Report</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #0d7377; color: #fff; padding: 20px; text-align: center; border-radius: 8px; }
        .button { display: inline-block; padding: 12px 24px; background-color: #0d7377; color: white; text-decoration: none; border-radius: 5px; }
        .net { font-size: 18px; font-weight: bold; color: #0d7377; }
        .footer { margin-top: 30px; font-size: 13px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Invoice &amp; Tax Liability Report</h1>
            <p>%s %d</p>
        </div>
        <p><strong>%s</strong><br>GSTIN: %s</p>
        <ul>
            <li><strong>Total invoices:</strong> %d (%d cancelled)</li>
            <li><strong>Credit notes:</strong> %d</li>
            <li><strong>Gross taxable value:</strong> Rs. %s</li>
            <li><strong>Gross GST collected:</strong> Rs. %s</li>
            <li><strong>Less reversed:</strong> Rs. %s</li>
            <li><strong>Net GST payable:</strong> <span class="net">Rs. %s</span></li>
        </ul>
        <p style="text-align: center;"><a href="%s" class="button">Download report PDF</a></p>
        <div class="footer">
            <p>Use this report to prepare your GSTR-1 filing. Verify all amounts before submission.</p>
            <p>Powered by GutInvoice, Every Invoice has a voice !!</p>
        </div>
    </div>
</body>
</html>`,
		r.MonthName(), r.Year,
		html.EscapeString(r.BusinessName), html.EscapeString(gstin),
		r.Summary.TotalInvoices, r.Summary.CancelledInvoices,
		r.Summary.CreditNotes,
		r.Summary.GrossTaxable.StringFixed(2),
		r.Summary.GrossTax.StringFixed(2),
		r.Summary.ReversedTax.StringFixed(2),
		r.Summary.NetTax.StringFixed(2),
		html.EscapeString(pdfURL),
	)
}
