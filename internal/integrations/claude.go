package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/config"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/httpclient"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
)

// ClaudeClient extracts invoice fields from instructions with the Messages API
type ClaudeClient struct {
	client anthropic.Client
	cfg    config.ClaudeConfig
	logger *logrus.Logger
	now    func() time.Time
}

// NewClaudeClient creates a new extraction client. Retries come from the
// shared retryable transport, so the SDK's own retry loop is off.
func NewClaudeClient(cfg config.ClaudeConfig, logger *logrus.Logger) *ClaudeClient {
	transport := httpclient.New(httpclient.ClientConfig{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}, logger)
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(transport.Standard()),
		option.WithMaxRetries(0),
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.URL, "/v1/messages")))
	}
	return &ClaudeClient{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Extract turns an instruction into invoice fields for seller
func (c *ClaudeClient) Extract(ctx context.Context, instruction string, seller *models.Seller) (*models.Extraction, error) {
	prompt := BuildExtractionPrompt(instruction, seller, c.now())
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		fields := logrus.Fields{
			"seller": seller.Phone,
			"error":  err.Error(),
		}
		var apiErr *anthropic.Error
		if ierr.As(err, &apiErr) {
			fields["status"] = apiErr.StatusCode
		}
		c.logger.WithFields(fields).Error("Extraction request failed")
		return nil, ierr.WithError(err).
			WithMessage("claude extraction").
			WithHint("❌ Could not read the invoice details. Please try again.").
			Mark(ierr.ErrExtraction)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	extraction, err := ParseExtraction(text.String())
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"seller":      seller.Phone,
			"stop_reason": string(msg.StopReason),
			"error":       err.Error(),
		}).Warn("Extraction output was not valid JSON")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"seller":       seller.Phone,
		"invoice_type": extraction.InvoiceType,
		"customer":     extraction.CustomerName,
		"items":        len(extraction.Items),
	}).Info("Invoice fields extracted")
	return extraction, nil
}

// ParseExtraction decodes the model output, tolerating markdown fences and
// prose around the JSON object
func ParseExtraction(text string) (*models.Extraction, error) {
	body := strings.TrimSpace(text)
	if _, after, ok := strings.Cut(body, "```json"); ok {
		body, _, _ = strings.Cut(after, "```")
	} else if _, after, ok := strings.Cut(body, "```"); ok {
		body, _, _ = strings.Cut(after, "```")
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, ierr.NewError("no JSON object in extraction output").
			WithHint("❌ Could not read the invoice details. Please describe the invoice again.").
			Mark(ierr.ErrExtraction)
	}

	var extraction models.Extraction
	if err := json.Unmarshal([]byte(body[start:end+1]), &extraction); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error decoding extraction JSON").
			WithHint("❌ Could not read the invoice details. Please describe the invoice again.").
			Mark(ierr.ErrExtraction)
	}
	return &extraction, nil
}

// BuildExtractionPrompt renders the instruction prompt for seller
func BuildExtractionPrompt(instruction string, seller *models.Seller, now time.Time) string {
	invoiceType := models.DocumentTypeFor(models.CategoryUnregistered)
	if seller.GSTRegistered() {
		invoiceType = models.DocumentTypeTaxInvoice
	}
	gstin := seller.GSTIN
	if gstin == "" {
		gstin = "not registered"
	}
	date := now.In(ledger.IST).Format(models.InvoiceDateLayout)

	return fmt.Sprintf(`You are a GST invoice assistant for Indian small businesses.
Extract invoice details from this instruction and return ONLY valid JSON.
The seller may speak Telugu, Hindi, English, or a mix.

Instruction: %s

Seller: %s, %s, GSTIN: %s
Date: %s

Rules:
- invoice_type: "TAX INVOICE" (seller has GSTIN) | "BILL OF SUPPLY" (composition) | "INVOICE" (unregistered). Default for this seller: "%s".
- Intra-state: use CGST+SGST. Inter-state: use IGST only.
- amount = qty x rate. total_amount = taxable_value + all taxes.
- Default GST 18%% if not mentioned. Split equally for CGST/SGST.
- For BILL OF SUPPLY declaration: "%s"
- For INVOICE declaration: "%s"
- Use numbers for every amount and rate. Leave unknown strings empty.

Return ONLY this JSON, no other text:
{"invoice_type":"%s","invoice_date":"%s","customer_name":"","customer_address":"","customer_gstin":"","place_of_supply":"%s","reverse_charge":"No","items":[{"sno":1,"description":"","hsn_sac":"","qty":0,"unit":"%s","rate":0,"amount":0}],"taxable_value":0,"cgst_rate":9,"cgst_amount":0,"sgst_rate":9,"sgst_amount":0,"igst_rate":0,"igst_amount":0,"total_amount":0,"declaration":"","payment_terms":"%s"}`,
		instruction,
		seller.BusinessName, seller.Address, gstin,
		date,
		invoiceType,
		models.DeclarationComposition,
		models.DeclarationUnregistered,
		invoiceType, date,
		models.DefaultPlaceOfSupply, models.DefaultUnit, models.DefaultPaymentTerms,
	)
}
