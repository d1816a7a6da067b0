package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
	"github.com/tallbag/gutinvoice/internal/validator"
)

const (
	msgSendVoiceNote = "Please send a *voice note* 🎙️"
	msgVoiceReceived = "🎙️ Voice note received! Generating your invoice... ⏳\n_(Ready in ~30 seconds)_"
	msgTextReceived  = "📝 Got it! Generating your invoice... ⏳"
	msgTimeout       = "⏳ That took too long and was stopped. Please send your message again."

	msgProfileUnavailable = "⚠️ Your profile could not be loaded right now, so nothing was changed. Please try again in a minute."
)

var invoiceNumberPattern = regexp.MustCompile(`(?i)\b([A-Za-z]{2,6})?(\d{3})-(\d{6})\b`)

var greetings = []string{"help", "hi", "hello", "menu", "start"}

func helpMessage(seller *models.Seller) string {
	lines := []string{
		"🎙️ *GutInvoice, Every Invoice has a Voice*",
		"",
		"Send a *voice note* with your invoice details.",
		"",
		"Example:",
		"_\"Customer Suresh, 50 iron rods, 800 rupees each, 18% GST\"_",
	}
	if seller != nil && seller.Language == models.LanguageTelugu {
		lines = append(lines, "", "_Telugu లో కూడా చెప్పవచ్చు! 🙏_")
	}
	if seller != nil && seller.Language == models.LanguageHindi {
		lines = append(lines, "", "_हिंदी में भी बोल सकते हैं! 🙏_")
	}
	lines = append(lines,
		"",
		"*Commands*",
		"• *cancel TEJ001-022026 [reason]*: cancel an invoice",
		"• *resend TEJ001-022026*: get an invoice PDF again",
		"• *report [month] [year]*: monthly GST report",
		"• *profile*: your business details",
		"• *update name|address|gstin|email <value>*",
		"• *language*: change voice language",
	)
	return strings.Join(lines, "\n")
}

// TimeoutMessage is sent when a message task is stopped
func TimeoutMessage() string {
	return msgTimeout
}

// BotService routes inbound WhatsApp messages
type BotService struct {
	sellers     SellerStore
	onboarding  *OnboardingService
	invoices    *InvoiceService
	transcriber Transcriber
	messenger   Messenger
	logger      *logrus.Logger
	now         func() time.Time
}

// NewBotService creates a new bot service
func NewBotService(sellers SellerStore, invoices *InvoiceService, transcriber Transcriber, messenger Messenger, logger *logrus.Logger) *BotService {
	return &BotService{
		sellers:     sellers,
		onboarding:  NewOnboardingService(sellers, logger),
		invoices:    invoices,
		transcriber: transcriber,
		messenger:   messenger,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleMessage processes one inbound message end to end. Failures are
// answered with their user message and returned for logging.
func (b *BotService) HandleMessage(ctx context.Context, msg *models.InboundMessage) error {
	logger := b.logger.WithFields(logrus.Fields{
		"from":       msg.From,
		"sid":        msg.SID,
		"num_media":  msg.NumMedia,
		"media_type": msg.MediaContentType,
	})
	logger.Info("Message received")

	reply, err := b.route(ctx, msg)
	if err != nil {
		logger.WithField("error", err.Error()).Error("Message handling failed")
		if sendErr := b.messenger.SendText(ctx, msg.From, ierr.UserMessage(err)); sendErr != nil {
			logger.WithField("error", sendErr.Error()).Error("Error reply failed")
		}
		return err
	}
	if reply != "" {
		return b.messenger.SendText(ctx, msg.From, reply)
	}
	return nil
}

func (b *BotService) route(ctx context.Context, msg *models.InboundMessage) (string, error) {
	seller, err := b.sellers.GetByPhone(ctx, msg.From)
	fallback := false
	switch {
	case err == nil:
	case ierr.IsNotFound(err):
		_, prompt, err := b.onboarding.Start(ctx, msg.From)
		return prompt, err
	default:
		b.logger.WithFields(logrus.Fields{
			"from":  msg.From,
			"error": err.Error(),
		}).Warn("Seller lookup failed, using default profile")
		seller = models.DefaultSeller(msg.From)
		fallback = true
	}

	if !seller.Onboarded() {
		return b.onboarding.Advance(ctx, seller, msg.Text())
	}

	if msg.NumMedia > 0 {
		if !msg.HasAudio() {
			return msgSendVoiceNote, nil
		}
		return "", b.handleVoiceNote(ctx, seller, msg)
	}

	text := msg.Text()
	if text == "" {
		return helpMessage(seller), nil
	}
	fields := strings.Fields(text)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch {
	case lo.Contains(greetings, command) && len(args) == 0:
		return helpMessage(seller), nil
	case command == "cancel":
		number, reason := parseCancelArgs(args)
		_, err := b.invoices.Cancel(ctx, seller, number, reason)
		return "", err
	case command == "resend":
		number, _ := parseCancelArgs(args)
		_, err := b.invoices.Resend(ctx, seller, number)
		return "", err
	case (command == "update" || command == "language") && fallback:
		return msgProfileUnavailable, nil
	case command == "report":
		period, err := ledger.ParsePeriod(args, b.now())
		if err != nil {
			return "❌ I could not read that month. Try *report february 2026* or *report last*.", nil
		}
		_, err = b.invoices.MonthlyReport(ctx, seller, period)
		return "", err
	case command == "profile" && len(args) == 0:
		return profileMessage(seller), nil
	case command == "update":
		return b.updateProfile(ctx, seller, args)
	case command == "language":
		return b.changeLanguage(ctx, seller, args)
	}

	if err := b.messenger.SendText(ctx, seller.Phone, msgTextReceived); err != nil {
		return "", err
	}
	_, err = b.invoices.CreateFromInstruction(ctx, seller, text)
	return "", err
}

func (b *BotService) handleVoiceNote(ctx context.Context, seller *models.Seller, msg *models.InboundMessage) error {
	if err := b.messenger.SendText(ctx, seller.Phone, msgVoiceReceived); err != nil {
		return err
	}

	audio, err := b.messenger.DownloadMedia(ctx, msg.MediaURL)
	if err != nil {
		return err
	}
	transcript, err := b.transcriber.Transcribe(ctx, audio, seller.Language)
	if err != nil {
		return err
	}

	b.logger.WithFields(logrus.Fields{
		"seller":     seller.Phone,
		"transcript": ierr.Truncate(transcript, 200),
	}).Info("Voice note transcribed")

	_, err = b.invoices.CreateFromInstruction(ctx, seller, transcript)
	return err
}

// parseCancelArgs splits "cancel" arguments into an invoice number and a
// reason. The number is the first token shaped like one, or the first token.
func parseCancelArgs(args []string) (string, string) {
	if len(args) == 0 {
		return "", ""
	}
	idx := lo.IndexOf(lo.Map(args, func(a string, _ int) bool {
		return invoiceNumberPattern.MatchString(a)
	}), true)
	if idx < 0 {
		idx = 0
	}
	number := strings.Trim(args[idx], ".,;:")
	rest := append(append([]string{}, args[:idx]...), args[idx+1:]...)
	return number, strings.Join(rest, " ")
}

func (b *BotService) updateProfile(ctx context.Context, seller *models.Seller, args []string) (string, error) {
	const usage = "Usage: *update name|address|gstin|email <value>*"
	if len(args) < 2 {
		return usage, nil
	}
	field := strings.ToLower(args[0])
	value := strings.TrimSpace(strings.Join(args[1:], " "))

	updated := *seller
	switch field {
	case "name":
		updated.BusinessName = ierr.Truncate(value, maxProfileField)
	case "address":
		updated.Address = ierr.Truncate(value, maxProfileField)
	case "gstin":
		switch {
		case isSkip(value):
			updated.GSTIN = ""
		case models.ValidGSTIN(value):
			updated.GSTIN = strings.ToUpper(value)
		default:
			return msgInvalidGSTIN, nil
		}
	case "email":
		if err := validator.GetValidator().Var(value, "required,email"); err != nil {
			return "❌ That e-mail address does not look right.", nil
		}
		updated.AccountantEmail = value
	default:
		return usage, nil
	}

	if err := b.sellers.Save(ctx, &updated); err != nil {
		return "", ierr.WithError(err).
			WithHint("❌ Could not update your profile. Please try again.").
			Mark(ierr.ErrPersistence)
	}
	*seller = updated
	return "✅ Profile updated.\n\n" + profileMessage(seller), nil
}

func (b *BotService) changeLanguage(ctx context.Context, seller *models.Seller, args []string) (string, error) {
	if len(args) == 0 {
		return msgLanguagePrompt, nil
	}
	lang, ok := ParseLanguage(args[0])
	if !ok {
		return msgLanguagePrompt, nil
	}
	updated := *seller
	updated.Language = lang
	if err := b.sellers.Save(ctx, &updated); err != nil {
		return "", ierr.WithError(err).
			WithHint("❌ Could not change your language. Please try again.").
			Mark(ierr.ErrPersistence)
	}
	*seller = updated
	return fmt.Sprintf("✅ Language set to *%s*.", LanguageName(lang)), nil
}

func profileMessage(seller *models.Seller) string {
	gstin := seller.GSTIN
	if gstin == "" {
		gstin = "Not registered"
	}
	email := seller.AccountantEmail
	if email == "" {
		email = "-"
	}
	return fmt.Sprintf("🏪 *%s*\n📍 %s\n🧾 GSTIN: %s\n🗣️ Language: %s\n📧 Accountant: %s\n🔢 Invoice prefix: %s",
		seller.BusinessName, seller.Address, gstin, LanguageName(seller.Language), email,
		ledger.DerivePrefix(seller.BusinessName))
}
